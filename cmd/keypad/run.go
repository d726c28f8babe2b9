package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.bug.st/serial"
	"go.tigermatt.uk/keypad"
	"go.tigermatt.uk/keypad/audit"
	"go.tigermatt.uk/keypad/internal/config"
)

// portReadTimeout bounds each serial read so the bus driver can keep to its
// reply window.
const portReadTimeout = 10 * time.Millisecond

var recordFile string

func runCommand() *cobra.Command {
	cmd := cobra.Command{
		Use:   "run",
		Short: "Drive the keypad and unlock output",
		Args:  cobra.ExactArgs(0),
		RunE:  run,
	}

	f := cmd.Flags()
	f.String("device", "", "Keypad bus serial device")
	f.Int("baud", 0, "Keypad bus baud rate")
	f.String("credential", "", "Numeric unlock credential")
	f.String("panel", "", "Panel name used in logs and audit records")
	f.String("log-level", "", "Log level: debug, info, warn, error")
	f.String("audit-file", "", "Append audit records to this file")
	f.String("unlock-device", "", "Serial device whose modem line drives the lock (default: bus device)")
	f.String("unlock-line", "", "Modem line driving the lock: dtr or rts")
	f.Duration("unlock-width", 0, "Unlock pulse width")
	f.StringVar(&recordFile, "record", "", "Record key events to FILE")

	return &cmd
}

func listenStop() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx
}

func run(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(cmd, configFile)
	if err != nil {
		return err
	}

	level, _ := c.Level()
	logger := newLogger(level)
	slog.SetDefault(logger)

	cred, err := keypad.NewCredential(c.Credential)
	if err != nil {
		return err
	}

	trail, closeTrail, err := openAudit(c.Audit.File, logger)
	if err != nil {
		return err
	}
	defer closeTrail()

	port, err := keypad.OpenPort(c.Bus.Device, c.Bus.Baud, portReadTimeout)
	if err != nil {
		return err
	}
	defer port.Close()

	pulser, closeUnlock, err := openUnlock(c, port, logger)
	if err != nil {
		return err
	}
	defer closeUnlock()

	panels := keypad.NewPanels(c.Group, cred,
		keypad.WithPanelsLogger(logger),
		keypad.WithPanelsAudit(trail),
	)

	k := &keypad.Keypad{
		Port:        port,
		Address:     byte(c.Bus.Address),
		Group:       c.Group,
		Title:       c.Bus.Title,
		ReplyWindow: c.Bus.ReplyWindow,
		Log:         logger,
	}

	deliver := panels.Handler(c.Panel)
	if recordFile != "" {
		f, err := os.OpenFile(recordFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("creating recording: %w", err)
		}
		defer f.Close()

		deliver = recording(deliver, &keypad.Recorder{Dest: f}, c.Panel, logger)
	}
	k.OnEvent = deliver

	if err := k.Init(); err != nil {
		return err
	}

	if _, err := panels.Register(c.Panel, k, pulser); err != nil {
		return err
	}
	defer panels.Unregister(c.Panel)

	logger.Info("keypad running", slog.String("device", c.Bus.Device), slog.String("panel", c.Panel))

	return k.Poll(listenStop())
}

func recording(next func(keypad.SignalEvent), rec *keypad.Recorder, panel string, logger *slog.Logger) func(keypad.SignalEvent) {
	return func(ev keypad.SignalEvent) {
		err := rec.Receive(keypad.Record{Panel: panel, Event: ev, Timestamp: time.Now()})
		if err != nil {
			logger.Error("recording event", slog.Any("err", err))
		}

		next(ev)
	}
}

func openAudit(path string, logger *slog.Logger) (audit.Logger, func(), error) {
	console := audit.NewSlogAdapter(logger)
	if path == "" {
		return console, func() {}, nil
	}

	file, err := audit.NewFileLogger(path)
	if err != nil {
		return nil, nil, err
	}

	return audit.NewMultiLogger(console, file), func() { file.Close() }, nil
}

func openUnlock(c config.Config, busPort serial.Port, logger *slog.Logger) (*keypad.Pulser, func(), error) {
	line, err := keypad.ParseLine(c.Unlock.Line)
	if err != nil {
		return nil, nil, err
	}

	port := busPort
	closePort := func() {}
	if c.Unlock.Device != "" && c.Unlock.Device != c.Bus.Device {
		port, err = keypad.OpenPort(c.Unlock.Device, 9600, 0)
		if err != nil {
			return nil, nil, err
		}
		closePort = func() { port.Close() }
	}

	p := &keypad.Pulser{
		Out:   keypad.ModemLine{Port: port, Line: line},
		Width: c.Unlock.Width,
		Log:   logger,
	}

	// Start from a known released state.
	if err := p.Close(); err != nil {
		closePort()
		return nil, nil, fmt.Errorf("releasing unlock output: %w", err)
	}

	return p, func() {
		if err := p.Close(); err != nil {
			logger.Error("releasing unlock output", slog.Any("err", err))
		}
		closePort()
	}, nil
}
