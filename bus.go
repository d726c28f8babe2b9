package keypad

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Galaxy keypad bus commands and replies.
const (
	cmdInit      = 0x00
	cmdScreen    = 0x07
	cmdAck       = 0x0B
	cmdBeep      = 0x0C
	cmdBacklight = 0x0D
	cmdPoll      = 0x19

	replyBadChecksum = 0xF2
	replyKey         = 0xF4
	replyOK          = 0xFE

	keyTamperOnly = 0x7F
	keyTamperBit  = 0x40
)

const (
	DefaultAddress     = 0x10
	DefaultReplyWindow = 100 * time.Millisecond

	lineWidth = 16
	keyChars  = "0123456789BAEX*#"
)

var (
	ErrBadChecksum = errors.New("bad checksum")
	ErrShortReply  = errors.New("short reply")
)

// keyElements maps keys that are not digits onto keypad element ids. Keys
// outside the keypad vocabulary get ids the router ignores.
var keyElements = map[byte]int{
	'X': ElementBackspace,
	'E': ElementSubmit,
	'B': 13,
	'A': 14,
	'*': 15,
	'#': 16,
}

// KeyElement returns the keypad element id for a key character.
func KeyElement(c byte) int {
	if c >= '0' && c <= '9' {
		return int(c - '0')
	}
	if id, ok := keyElements[c]; ok {
		return id
	}

	return -1
}

func checksum(bs []byte) byte {
	c := 0xAA
	for _, b := range bs {
		c += int(b)
	}

	for c > 0xFF {
		c = (c >> 8) + (c & 0xFF)
	}

	return byte(c)
}

func frame(bs ...byte) []byte {
	return append(bs, checksum(bs))
}

// parseReply checks the trailing checksum and splits off the reply command.
func parseReply(bs []byte) (cmd byte, data []byte, err error) {
	if len(bs) < 3 {
		return 0, nil, fmt.Errorf("%w: % 02X", ErrShortReply, bs)
	}

	body, sum := bs[:len(bs)-1], bs[len(bs)-1]
	if want := checksum(body); want != sum {
		return 0, nil, fmt.Errorf("%w: got %02X want %02X", ErrBadChecksum, sum, want)
	}

	return body[1], body[2:], nil
}

// Keypad drives a single keypad on a Galaxy RS-485 bus. Key presses are
// delivered to OnEvent as keypad press and release events, and SetText shows
// session text on the second line of the keypad screen.
type Keypad struct {
	Port        io.ReadWriter
	Address     byte
	Group       int
	Title       string
	ReplyWindow time.Duration
	OnEvent     func(SignalEvent)
	Log         *slog.Logger

	once   sync.Once
	mu     sync.Mutex
	ack    byte
	toggle byte
	tamper bool
}

func (k *Keypad) init() {
	k.once.Do(func() {
		if k.Address == 0 {
			k.Address = DefaultAddress
		}
		if k.Group == 0 {
			k.Group = DefaultGroup
		}
		if k.ReplyWindow == 0 {
			k.ReplyWindow = DefaultReplyWindow
		}
		if k.Log == nil {
			k.Log = slog.Default()
		}
		k.ack = 0x02
		k.toggle = 0x80
	})
}

// Init wakes the keypad, turns the backlight on and silences the beeper.
func (k *Keypad) Init() error {
	k.init()

	k.mu.Lock()
	defer k.mu.Unlock()

	for _, f := range [][]byte{
		frame(k.Address, cmdInit, 0x0E),
		frame(k.Address, cmdBacklight, 0x01),
		frame(k.Address, cmdBeep, 0x00, 0x00, 0x00),
	} {
		if _, err := k.roundTrip(f); err != nil {
			return fmt.Errorf("initialising keypad %02X: %w", k.Address, err)
		}
	}

	return nil
}

// Poll asks the keypad for key presses until ctx is done.
func (k *Keypad) Poll(ctx context.Context) error {
	k.init()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := k.pollOnce(); err != nil {
			if errors.Is(err, ErrBadChecksum) || errors.Is(err, ErrShortReply) {
				k.Log.Debug("skipping keypad reply", slog.Any("err", err))
				continue
			}

			return err
		}
	}
}

func (k *Keypad) pollOnce() error {
	k.mu.Lock()
	reply, err := k.roundTrip(frame(k.Address, cmdPoll, 0x01))
	k.mu.Unlock()
	if err != nil {
		return err
	}

	cmd, data, err := parseReply(reply)
	if err != nil {
		return err
	}

	switch cmd {
	case replyKey:
		if len(data) < 1 {
			return fmt.Errorf("%w: key reply without key", ErrShortReply)
		}
		return k.handleKey(data[0])
	case replyOK:
		k.mu.Lock()
		k.tamper = false
		k.mu.Unlock()
	case replyBadChecksum:
		k.Log.Warn("keypad rejected frame checksum")
	default:
		k.Log.Debug("unhandled keypad reply", slog.String("cmd", fmt.Sprintf("%02X", cmd)))
	}

	return nil
}

func (k *Keypad) handleKey(b byte) error {
	k.mu.Lock()
	if b == keyTamperOnly {
		k.tamper = true
		k.mu.Unlock()
		k.Log.Warn("keypad tamper")
		return nil
	}

	k.tamper = b&keyTamperBit == keyTamperBit
	_, err := k.roundTrip(frame(k.Address, cmdAck, k.ack))
	k.ack ^= 0x02
	k.mu.Unlock()
	if err != nil {
		return fmt.Errorf("acknowledging key: %w", err)
	}

	c := keyChars[b&0x0F]
	if k.OnEvent != nil {
		el := KeyElement(c)
		k.OnEvent(SignalEvent{Group: k.Group, Element: el, Value: true})
		k.OnEvent(SignalEvent{Group: k.Group, Element: el, Value: false})
	}

	return nil
}

// Tamper reports whether the keypad last signalled an open case.
func (k *Keypad) Tamper() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tamper
}

// SetText shows text below the title. Text wider than a line is word-wrapped
// over both lines when it fits, otherwise its tail is shown.
func (k *Keypad) SetText(text string) {
	k.init()

	k.mu.Lock()
	defer k.mu.Unlock()

	top, bottom := screenLines(k.Title, text)

	f := []byte{k.Address, cmdScreen, 0x01 | k.toggle, 0x01, 0x07}
	f = append(f, screenLine(top)...)
	f = append(f, 0x02)
	f = append(f, screenLine(bottom)...)

	if _, err := k.roundTrip(frame(f...)); err != nil {
		k.Log.Error("updating keypad screen", slog.Any("err", err))
		return
	}

	k.toggle ^= 0x80
}

func screenLines(title, text string) (string, string) {
	if len(text) <= lineWidth {
		return title, text
	}

	if len(text) <= 2*lineWidth {
		cut := strings.LastIndexByte(text[:lineWidth+1], ' ')
		if cut > 0 && len(text)-cut-1 <= lineWidth {
			return text[:cut], text[cut+1:]
		}
	}

	return title, text[len(text)-lineWidth:]
}

func screenLine(s string) []byte {
	if len(s) > lineWidth {
		s = s[:lineWidth]
	}

	line := []byte(s)
	for i := len(line); i < lineWidth; i++ {
		line = append(line, ' ')
	}

	return line
}

// roundTrip writes bs and collects whatever the keypad sends back within the
// reply window. Callers hold k.mu.
func (k *Keypad) roundTrip(bs []byte) ([]byte, error) {
	if _, err := k.Port.Write(bs); err != nil {
		return nil, fmt.Errorf("writing to keypad: %w", err)
	}

	deadline := time.Now().Add(k.ReplyWindow)

	reply := make([]byte, 128)
	var n int
	for n < len(reply) && time.Now().Before(deadline) {
		got, err := k.Port.Read(reply[n:])
		n += got
		if err != nil {
			if errors.Is(err, io.EOF) {
				continue
			}

			return nil, fmt.Errorf("reading from keypad: %w", err)
		}
	}

	return reply[:n], nil
}

var _ DisplaySink = (*Keypad)(nil)
