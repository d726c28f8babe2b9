package keypad

import (
	"strings"
	"sync"
	"testing"

	"go.tigermatt.uk/keypad/audit"
)

// screen records every text pushed to it.
type screen struct {
	updates []string
}

func (s *screen) SetText(text string) { s.updates = append(s.updates, text) }

func (s *screen) last() string {
	if len(s.updates) == 0 {
		return ""
	}
	return s.updates[len(s.updates)-1]
}

type lock struct {
	mu     sync.Mutex
	pulses int
}

func (l *lock) Pulse() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pulses++
}

func (l *lock) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pulses
}

type trail struct {
	mu     sync.Mutex
	events []audit.Event
}

func (t *trail) Log(e audit.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
}

func (t *trail) categories() []audit.Category {
	t.mu.Lock()
	defer t.mu.Unlock()
	var cs []audit.Category
	for _, e := range t.events {
		cs = append(cs, e.Category)
	}
	return cs
}

func mustCredential(t *testing.T, s string) Credential {
	t.Helper()
	c, err := NewCredential(s)
	if err != nil {
		t.Fatalf("NewCredential(%q) error = %v", s, err)
	}
	return c
}

func newTestSession(t *testing.T) (*Session, *screen, *lock) {
	t.Helper()
	sc, lk := &screen{}, &lock{}
	s := NewSession(mustCredential(t, DefaultCredential), sc, lk)
	s.Start()
	return s, sc, lk
}

func mask(n int) string {
	return strings.Repeat("* ", n)
}
