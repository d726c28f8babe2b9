package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.tigermatt.uk/keypad"
	"go.tigermatt.uk/keypad/internal/config"
	"golang.org/x/sync/errgroup"
)

func replayCommand() *cobra.Command {
	cmd := cobra.Command{
		Use:   "replay FILE",
		Short: "Feed a recording into fresh sessions",
		Args:  cobra.ExactArgs(1),
		RunE:  replay,
	}
	cmd.Flags().String("credential", "", "Numeric unlock credential")

	return &cmd
}

func replay(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cmd, configFile)
	if err != nil {
		return err
	}

	cred, err := keypad.NewCredential(c.Credential)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	defer f.Close()

	records := make(chan keypad.Record, 100)

	var g errgroup.Group
	g.Go(func() error { return replayRecords(os.Stdout, c.Group, cred, records) })
	g.Go(func() error { return keypad.ReadIn(records, f) })

	return g.Wait()
}

// replayRecords drains records, registering a panel the first time it shows
// up, and prints every display update and unlock.
func replayRecords(w io.Writer, group int, cred keypad.Credential, records <-chan keypad.Record) error {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	panels := keypad.NewPanels(group, cred, keypad.WithPanelsLogger(quiet))

	var at time.Time
	var firstErr error
	for rec := range records {
		at = rec.Timestamp
		if firstErr != nil {
			continue
		}

		name := rec.Panel
		_, err := panels.Dispatch(name, rec.Event)
		if errors.Is(err, keypad.ErrUnknownPanel) {
			_, err = panels.Register(name,
				keypad.DisplayFunc(func(text string) {
					fmt.Fprintf(w, "%s %s: %q\n", at.Format("15:04:05.000"), name, text)
				}),
				keypad.UnlockFunc(func() {
					fmt.Fprintf(w, "%s %s: UNLOCK\n", at.Format("15:04:05.000"), name)
				}),
			)
			if err != nil {
				firstErr = err
				continue
			}

			_, err = panels.Dispatch(name, rec.Event)
		}
		if err != nil {
			firstErr = err
		}
	}

	return firstErr
}
