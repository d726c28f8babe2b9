package keypad

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

const DefaultPulseWidth = 500 * time.Millisecond

// Output is a boolean signal towards access control hardware.
type Output interface {
	Set(on bool) error
}

// Line selects a modem control line of a serial port.
type Line uint8

const (
	LineDTR Line = iota
	LineRTS
)

func (l Line) String() string {
	switch l {
	case LineDTR:
		return "dtr"
	case LineRTS:
		return "rts"
	default:
		return "unknown"
	}
}

func ParseLine(s string) (Line, error) {
	switch strings.ToLower(s) {
	case "dtr":
		return LineDTR, nil
	case "rts":
		return LineRTS, nil
	default:
		return 0, fmt.Errorf("unknown modem line %q", s)
	}
}

// ModemLine drives a relay wired to the DTR or RTS line of a serial port.
type ModemLine struct {
	Port serial.Port
	Line Line
}

func (m ModemLine) Set(on bool) error {
	var err error
	if m.Line == LineRTS {
		err = m.Port.SetRTS(on)
	} else {
		err = m.Port.SetDTR(on)
	}
	if err != nil {
		return fmt.Errorf("setting %s: %w", m.Line, err)
	}

	return nil
}

// Pulser raises Out for Width on every Pulse. A pulse that arrives while the
// output is still high extends it.
type Pulser struct {
	Out   Output
	Width time.Duration
	Log   *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

func (p *Pulser) Pulse() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.Out.Set(true); err != nil {
		p.logger().Error("raising unlock output", slog.Any("err", err))
		return
	}

	p.gen++
	gen := p.gen
	if p.timer != nil {
		p.timer.Stop()
	}

	width := p.Width
	if width <= 0 {
		width = DefaultPulseWidth
	}
	p.timer = time.AfterFunc(width, func() { p.release(gen) })
}

func (p *Pulser) release(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen {
		return
	}

	p.timer = nil
	if err := p.Out.Set(false); err != nil {
		p.logger().Error("dropping unlock output", slog.Any("err", err))
	}
}

// Close cancels a pending pulse and drops the output.
func (p *Pulser) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.gen++

	return p.Out.Set(false)
}

func (p *Pulser) logger() *slog.Logger {
	if p.Log == nil {
		return slog.Default()
	}

	return p.Log
}

var _ UnlockSink = (*Pulser)(nil)
