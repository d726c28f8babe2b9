package keypad

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// busPort answers every frame written to it with respond(frame).
type busPort struct {
	mu      sync.Mutex
	written [][]byte
	pending []byte
	respond func(frame []byte) []byte
	readErr error
}

func (p *busPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.written = append(p.written, append([]byte(nil), b...))
	p.pending = nil
	if p.respond != nil {
		p.pending = p.respond(b)
	}

	return len(b), nil
}

func (p *busPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.readErr != nil {
		return 0, p.readErr
	}

	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *busPort) frames(cmd byte) [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out [][]byte
	for _, f := range p.written {
		if len(f) > 1 && f[1] == cmd {
			out = append(out, f)
		}
	}
	return out
}

var okReply = frame(0x11, replyOK)

func keyReply(b byte) []byte { return frame(0x11, replyKey, b) }

// keyedPort replies to polls with queued key bytes and OK to everything else.
func keyedPort(keys ...byte) *busPort {
	var mu sync.Mutex
	return &busPort{respond: func(f []byte) []byte {
		mu.Lock()
		defer mu.Unlock()
		if f[1] == cmdPoll && len(keys) > 0 {
			k := keys[0]
			keys = keys[1:]
			return keyReply(k)
		}
		return okReply
	}}
}

func TestChecksum(t *testing.T) {
	for _, c := range []struct {
		in  []byte
		sum byte
	}{
		{[]byte{0x11, 0xfe}, 0xba},
		{[]byte{0x10, 0x19, 0x01}, 0xd4},
		{[]byte{0x10, 0x00, 0x0e}, 0xc8},
	} {
		assert.Equal(t, c.sum, checksum(c.in), "checksum(% 02X)", c.in)
	}
}

func TestParseReply(t *testing.T) {
	cmd, data, err := parseReply(keyReply(0x05))
	require.NoError(t, err)
	assert.Equal(t, byte(replyKey), cmd)
	assert.Equal(t, []byte{0x05}, data)

	_, _, err = parseReply([]byte{0x11, 0xF4, 0x05, 0x00})
	assert.ErrorIs(t, err, ErrBadChecksum)

	_, _, err = parseReply([]byte{0x11})
	assert.ErrorIs(t, err, ErrShortReply)
}

func TestKeyElement(t *testing.T) {
	for c := byte('0'); c <= '9'; c++ {
		assert.Equal(t, int(c-'0'), KeyElement(c))
	}
	assert.Equal(t, ElementBackspace, KeyElement('X'))
	assert.Equal(t, ElementSubmit, KeyElement('E'))
	assert.Greater(t, KeyElement('#'), ElementSubmit)
	assert.Equal(t, -1, KeyElement('?'))
}

func TestScreenLines(t *testing.T) {
	tests := []struct {
		text        string
		top, bottom string
	}{
		{"", "ACCESS", ""},
		{ErrorText, "ACCESS", ErrorText},
		{PromptText, "Enter the", "password"},
		{mask(8), "ACCESS", mask(8)},
		{mask(9), "* * * * * * * *", "* "},
		{mask(20), "ACCESS", mask(8)},
	}

	for _, tt := range tests {
		top, bottom := screenLines("ACCESS", tt.text)
		assert.Equal(t, tt.top, top, "text %q", tt.text)
		assert.Equal(t, tt.bottom, bottom, "text %q", tt.text)
	}

	assert.Len(t, screenLine("short"), lineWidth)
	assert.Equal(t, "0123456789ABCDEF", string(screenLine("0123456789ABCDEFGH")))
}

func TestKeypadInit(t *testing.T) {
	port := keyedPort()
	k := &Keypad{Port: port, ReplyWindow: time.Millisecond}

	require.NoError(t, k.Init())

	require.Len(t, port.written, 3)
	assert.Equal(t, []byte{0x10, 0x00, 0x0E, 0xC8}, port.written[0])
	assert.Equal(t, frame(0x10, cmdBacklight, 0x01), port.written[1])
	assert.Equal(t, frame(0x10, cmdBeep, 0x00, 0x00, 0x00), port.written[2])
}

func TestKeypadInitReadError(t *testing.T) {
	port := &busPort{readErr: errors.New("port gone")}
	k := &Keypad{Port: port, ReplyWindow: time.Millisecond}

	assert.Error(t, k.Init())
}

func TestKeypadPollDeliversKeys(t *testing.T) {
	port := keyedPort(0x01, 0x02, 0x0D, 0x0C)

	events := make(chan SignalEvent, 16)
	k := &Keypad{
		Port:        port,
		ReplyWindow: time.Millisecond,
		OnEvent:     func(ev SignalEvent) { events <- ev },
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- k.Poll(ctx) }()

	var got []SignalEvent
	for len(got) < 8 {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-time.After(5 * time.Second):
			t.Fatalf("got %d events, want 8", len(got))
		}
	}
	cancel()
	require.NoError(t, <-done)

	want := []SignalEvent{}
	for _, el := range []int{1, 2, ElementBackspace, ElementSubmit} {
		want = append(want,
			SignalEvent{Group: DefaultGroup, Element: el, Value: true},
			SignalEvent{Group: DefaultGroup, Element: el, Value: false})
	}
	assert.Equal(t, want, got)

	acks := port.frames(cmdAck)
	require.GreaterOrEqual(t, len(acks), 4)
	assert.Equal(t, frame(0x10, cmdAck, 0x02), acks[0])
	assert.Equal(t, frame(0x10, cmdAck, 0x00), acks[1])
	assert.Equal(t, frame(0x10, cmdAck, 0x02), acks[2])
}

func TestKeypadTamper(t *testing.T) {
	port := keyedPort(keyTamperOnly)
	k := &Keypad{Port: port, ReplyWindow: time.Millisecond}
	k.init()

	require.NoError(t, k.pollOnce())
	assert.True(t, k.Tamper())
	assert.Empty(t, port.frames(cmdAck), "tamper alone is not a key")

	require.NoError(t, k.pollOnce())
	assert.False(t, k.Tamper(), "idle OK clears tamper")
}

func TestKeypadPollSkipsBadReplies(t *testing.T) {
	var polls int
	port := &busPort{}
	port.respond = func(f []byte) []byte {
		if f[1] != cmdPoll {
			return okReply
		}
		polls++
		if polls == 1 {
			return []byte{0x11, replyKey, 0x01, 0x00}
		}
		return keyReply(0x07)
	}

	events := make(chan SignalEvent, 4)
	k := &Keypad{Port: port, ReplyWindow: time.Millisecond, OnEvent: func(ev SignalEvent) { events <- ev }}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go k.Poll(ctx)

	select {
	case ev := <-events:
		assert.Equal(t, 7, ev.Element)
	case <-time.After(5 * time.Second):
		t.Fatal("no key after bad checksum")
	}
}

func TestKeypadPollStopsOnPortError(t *testing.T) {
	port := &busPort{readErr: errors.New("unplugged")}
	k := &Keypad{Port: port, ReplyWindow: time.Millisecond}

	err := k.Poll(context.Background())
	assert.ErrorContains(t, err, "unplugged")
}

func TestKeypadSetText(t *testing.T) {
	port := keyedPort()
	k := &Keypad{Port: port, Title: "DOOR", ReplyWindow: time.Millisecond}

	k.SetText(mask(2))
	k.SetText(PromptText)

	screens := port.frames(cmdScreen)
	require.Len(t, screens, 2)

	first := screens[0]
	assert.Equal(t, byte(0x81), first[2])
	assert.Equal(t, string(screenLine("DOOR")), string(first[5:21]))
	assert.Equal(t, byte(0x02), first[21])
	assert.Equal(t, string(screenLine(mask(2))), string(first[22:38]))
	assert.Equal(t, checksum(first[:38]), first[38])

	second := screens[1]
	assert.Equal(t, byte(0x01), second[2], "flags toggle between frames")
	assert.Equal(t, string(screenLine("Enter the")), string(second[5:21]))
	assert.Equal(t, string(screenLine("password")), string(second[22:38]))
}

func TestKeypadDrivesSession(t *testing.T) {
	// 1 2 3 4 5 6 ent
	port := keyedPort(0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x0C)
	lk := &lock{}
	panels := NewPanels(DefaultGroup, mustCredential(t, "123456"))

	dispatched := make(chan struct{}, 32)
	k := &Keypad{Port: port, ReplyWindow: time.Millisecond}
	k.OnEvent = func(ev SignalEvent) {
		_, err := panels.Dispatch("door", ev)
		assert.NoError(t, err)
		dispatched <- struct{}{}
	}

	_, err := panels.Register("door", k, lk)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- k.Poll(ctx) }()

	for i := 0; i < 14; i++ {
		select {
		case <-dispatched:
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d events dispatched", i)
		}
	}
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 1, lk.count())

	screens := port.frames(cmdScreen)
	require.NotEmpty(t, screens)
	last := screens[len(screens)-1]
	assert.Equal(t, string(screenLine("Enter the")), string(last[5:21]))
}
