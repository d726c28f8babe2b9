package keypad

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"go.tigermatt.uk/keypad/audit"
)

var (
	ErrUnknownPanel = errors.New("unknown panel")
	ErrPanelExists  = errors.New("panel already registered")
)

// Panels owns one session per connected panel and serializes the events of
// each panel. Sessions of different panels never share state.
type Panels struct {
	group      int
	credential Credential
	log        *slog.Logger
	trail      audit.Logger

	mu     sync.RWMutex
	panels map[string]*panel
}

type panel struct {
	mu     sync.Mutex
	router *Router
}

type Option func(*Panels)

func WithPanelsLogger(l *slog.Logger) Option {
	return func(p *Panels) {
		if l != nil {
			p.log = l
		}
	}
}

func WithPanelsAudit(l audit.Logger) Option {
	return func(p *Panels) {
		if l != nil {
			p.trail = l
		}
	}
}

func NewPanels(group int, cred Credential, opts ...Option) *Panels {
	p := &Panels{
		group:      group,
		credential: cred,
		log:        slog.Default(),
		trail:      audit.NoopLogger{},
		panels:     make(map[string]*panel),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Register creates and starts a session for the panel id.
func (p *Panels) Register(id string, display DisplaySink, unlock UnlockSink) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.panels[id]; ok {
		return nil, fmt.Errorf("registering %q: %w", id, ErrPanelExists)
	}

	s := NewSession(p.credential, display, unlock,
		WithPanel(id),
		WithLogger(p.log),
		WithAudit(p.trail),
	)

	pn := &panel{router: NewRouter(p.group, s, p.log.With(slog.String("panel", id)))}
	p.panels[id] = pn

	pn.mu.Lock()
	s.Start()
	pn.mu.Unlock()

	p.log.Info("panel registered", slog.String("panel", id), slog.String("session_id", s.ID()))

	return s, nil
}

// Unregister drops the panel's session. Unknown ids are ignored.
func (p *Panels) Unregister(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.panels[id]; !ok {
		return
	}

	delete(p.panels, id)
	p.log.Info("panel unregistered", slog.String("panel", id))
}

// Dispatch routes ev to the panel's session. See Router.Dispatch for the
// meaning of the returned bool.
func (p *Panels) Dispatch(id string, ev SignalEvent) (bool, error) {
	p.mu.RLock()
	pn, ok := p.panels[id]
	p.mu.RUnlock()

	if !ok {
		return false, fmt.Errorf("dispatching to %q: %w", id, ErrUnknownPanel)
	}

	pn.mu.Lock()
	defer pn.mu.Unlock()

	return pn.router.Dispatch(ev), nil
}

// Handler returns the event callback for one panel, for hosts that deliver
// events per device.
func (p *Panels) Handler(id string) func(SignalEvent) {
	return func(ev SignalEvent) {
		if _, err := p.Dispatch(id, ev); err != nil {
			p.log.Warn("dropping event", slog.Any("err", err))
		}
	}
}

func (p *Panels) IDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.panels))
	for id := range p.panels {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}
