package audit

// Logger receives audit events. Implementations must be safe for concurrent
// use since panels dispatch independently.
type Logger interface {
	Log(event Event)
}

// NoopLogger discards all events. Usable as a zero value.
type NoopLogger struct{}

func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
