package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.tigermatt.uk/keypad/audit"
)

var (
	auditCategory string
	auditPanel    string
)

func auditCommand() *cobra.Command {
	cmd := cobra.Command{
		Use:   "audit FILE",
		Short: "Print an audit trail",
		Args:  cobra.ExactArgs(1),
		RunE:  showAudit,
	}
	cmd.Flags().StringVar(&auditCategory, "category", "", "Only show STATE, UNLOCK or DENY records")
	cmd.Flags().StringVar(&auditPanel, "panel", "", "Only show records of this panel")

	return &cmd
}

func showAudit(_ *cobra.Command, args []string) error {
	filter := audit.Filter{Panel: auditPanel}
	if auditCategory != "" {
		c, ok := audit.ParseCategory(auditCategory)
		if !ok {
			return fmt.Errorf("unknown category %q", auditCategory)
		}
		filter.Category = &c
	}

	r, err := audit.OpenReader(args[0], filter)
	if err != nil {
		return err
	}
	defer r.Close()

	return printAudit(os.Stdout, r)
}

func printAudit(w io.Writer, r *audit.Reader) error {
	for {
		e, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "%s %-6s panel=%s session=%s", e.Timestamp.Format("2006-01-02 15:04:05.000"), e.Category, e.Panel, e.SessionID)
		if e.Category == audit.CategoryState {
			fmt.Fprintf(w, " %s -> %s", e.OldState, e.NewState)
		}
		if e.Reason != "" {
			fmt.Fprintf(w, " (%s)", e.Reason)
		}
		fmt.Fprintln(w)
	}
}
