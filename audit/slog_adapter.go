package audit

import (
	"context"
	"log/slog"
)

// SlogAdapter writes audit events to an slog.Logger. Unlock and deny events
// go out at Info, state transitions at Debug.
type SlogAdapter struct {
	logger *slog.Logger
}

func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("category", event.Category.String()),
	}

	if event.Panel != "" {
		attrs = append(attrs, slog.String("panel", event.Panel))
	}
	if event.OldState != "" || event.NewState != "" {
		attrs = append(attrs,
			slog.String("old_state", event.OldState),
			slog.String("new_state", event.NewState),
		)
	}
	if event.Reason != "" {
		attrs = append(attrs, slog.String("reason", event.Reason))
	}

	level := slog.LevelDebug
	if event.Category != CategoryState {
		level = slog.LevelInfo
	}

	a.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
