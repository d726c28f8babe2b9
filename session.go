// Package keypad gates an unlock output behind a numeric credential entered
// on a panel keypad.
package keypad

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.tigermatt.uk/keypad/audit"
)

// Status lines shown instead of the mask.
const (
	PromptText = "Enter the password"
	ErrorText  = "Wrong password!"
)

// Each entered digit is shown as a mask glyph followed by a separator.
const (
	maskGlyph = '*'
	maskSep   = ' '
	maskWidth = 2
)

type State uint8

const (
	StateIdle State = iota
	StateShowingPrompt
	StateShowingError
	StateEntering
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateShowingPrompt:
		return "SHOWING_PROMPT"
	case StateShowingError:
		return "SHOWING_ERROR"
	case StateEntering:
		return "ENTERING"
	default:
		return "UNKNOWN"
	}
}

func (s State) showingStatus() bool {
	return s == StateShowingPrompt || s == StateShowingError
}

// Session is the entry state of one panel keypad. It is not safe for
// concurrent use; see Panels for the locked wrapper.
type Session struct {
	id         string
	panel      string
	credential Credential
	display    DisplaySink
	unlock     UnlockSink
	log        *slog.Logger
	trail      audit.Logger

	state  State
	digits []byte
	text   []byte
}

type SessionOption func(*Session)

// WithPanel names the panel the session belongs to in logs and audit events.
func WithPanel(id string) SessionOption {
	return func(s *Session) { s.panel = id }
}

func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

func WithAudit(l audit.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.trail = l
		}
	}
}

// NewSession creates an Idle session. Call Start to show the prompt.
func NewSession(cred Credential, display DisplaySink, unlock UnlockSink, opts ...SessionOption) *Session {
	s := &Session{
		id:         uuid.NewString(),
		credential: cred,
		display:    display,
		unlock:     unlock,
		log:        slog.Default(),
		trail:      audit.NoopLogger{},
	}

	for _, opt := range opts {
		opt(s)
	}

	s.log = s.log.With(slog.String("session_id", s.id))
	if s.panel != "" {
		s.log = s.log.With(slog.String("panel", s.panel))
	}

	return s
}

func (s *Session) ID() string   { return s.id }
func (s *Session) State() State { return s.state }
func (s *Session) Text() string { return string(s.text) }

// Len returns the number of digits entered so far.
func (s *Session) Len() int { return len(s.digits) }

// Start shows the prompt. It is called once when the panel registers.
func (s *Session) Start() {
	s.showStatus(StateShowingPrompt, PromptText, "start")
}

// OnDigit appends d, which must be '0' to '9'. Other bytes are ignored.
func (s *Session) OnDigit(d byte) {
	if d < '0' || d > '9' {
		return
	}

	if s.state.showingStatus() {
		s.text = s.text[:0]
	}

	s.digits = append(s.digits, d)
	s.text = append(s.text, maskGlyph, maskSep)
	s.transition(StateEntering, "digit")
	s.push()
}

// OnBackspace drops the last digit. It does nothing while a status line is
// shown or when nothing has been entered.
func (s *Session) OnBackspace() {
	if len(s.digits) == 0 || s.state.showingStatus() {
		return
	}

	s.digits = s.digits[:len(s.digits)-1]
	s.text = s.text[:len(s.text)-maskWidth]
	s.transition(StateEntering, "backspace")
	s.push()
}

// OnSubmit compares the entry with the credential, resets the entry and
// reports whether the unlock pulse was sent.
func (s *Session) OnSubmit() bool {
	ok := s.credential.Matches(string(s.digits))

	// The buffer is reused; overwrite the old entry before dropping it.
	for i := range s.digits {
		s.digits[i] = 0
	}
	s.digits = s.digits[:0]

	if !ok {
		s.showStatus(StateShowingError, ErrorText, "submit")
		s.record(audit.CategoryDeny, "", "", "submit")
		s.log.Info("wrong password entered")
		return false
	}

	s.showStatus(StateShowingPrompt, PromptText, "submit")
	s.record(audit.CategoryUnlock, "", "", "submit")
	s.log.Info("unlocking")
	s.unlock.Pulse()
	return true
}

func (s *Session) showStatus(state State, status, reason string) {
	s.text = append(s.text[:0], status...)
	s.transition(state, reason)
	s.push()
}

func (s *Session) transition(to State, reason string) {
	from := s.state
	s.state = to
	if from == to {
		return
	}

	s.log.Debug("keypad state change",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.String("reason", reason))
	s.record(audit.CategoryState, from.String(), to.String(), reason)
}

func (s *Session) record(c audit.Category, from, to, reason string) {
	s.trail.Log(audit.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Panel:     s.panel,
		Category:  c,
		OldState:  from,
		NewState:  to,
		Reason:    reason,
	})
}

func (s *Session) push() {
	s.display.SetText(s.Text())
}
