// Command keypad runs a password-gated door keypad on a Galaxy keypad bus.
package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

func main() {
	cmd := &cobra.Command{
		Use:          "keypad",
		Args:         cobra.ExactArgs(0),
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file")

	cmd.AddCommand(runCommand())
	cmd.AddCommand(replayCommand())
	cmd.AddCommand(auditCommand())
	cmd.AddCommand(configCommand())

	if err := cmd.Execute(); err != nil {
		log.Fatalln(err)
	}
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
