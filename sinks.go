package keypad

// DisplaySink shows text on a panel. Calls are fire-and-forget and the last
// write wins.
type DisplaySink interface {
	SetText(text string)
}

// UnlockSink receives a momentary true-then-false pulse on a successful
// submit.
type UnlockSink interface {
	Pulse()
}

type DisplayFunc func(text string)

func (f DisplayFunc) SetText(text string) { f(text) }

type UnlockFunc func()

func (f UnlockFunc) Pulse() { f() }
