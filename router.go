package keypad

import "log/slog"

// DefaultGroup is the signal group the keypad reports on.
const DefaultGroup = 1

// Element ids inside the keypad group. Ids 0 to 9 are the digit keys.
const (
	ElementZero      = 10
	ElementBackspace = 11
	ElementSubmit    = 12
)

// SignalEvent is a value change of one element on a panel.
type SignalEvent struct {
	Group   int
	Element int
	Value   bool
}

// Router feeds keypad press events into a session.
type Router struct {
	group   int
	session *Session
	log     *slog.Logger
}

func NewRouter(group int, session *Session, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{group: group, session: session, log: log}
}

func (r *Router) Session() *Session { return r.session }

// Dispatch acts on presses of keypad elements and reports whether ev changed
// anything the router knows about. Releases, other groups and unknown
// elements are dropped.
func (r *Router) Dispatch(ev SignalEvent) bool {
	if !ev.Value || ev.Group != r.group {
		return false
	}

	switch {
	case ev.Element >= 0 && ev.Element <= 9:
		r.session.OnDigit(byte('0' + ev.Element))
	case ev.Element == ElementZero:
		r.session.OnDigit('0')
	case ev.Element == ElementBackspace:
		r.session.OnBackspace()
	case ev.Element == ElementSubmit:
		r.session.OnSubmit()
	default:
		r.log.Debug("ignoring keypad element", slog.Int("element", ev.Element))
		return false
	}

	return true
}
