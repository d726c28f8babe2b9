// Package audit records a machine-readable trace of keypad session activity.
//
// The trace is separate from operational logging (slog). It captures state
// transitions, successful unlocks and denied attempts so an installation can
// answer "who opened the door when" without ever storing entered digits.
//
// Applications pick a Logger implementation:
//
//	// console only
//	trail := audit.NewSlogAdapter(slog.Default())
//
//	// append to a CBOR file, readable with `keypad audit FILE`
//	trail, _ := audit.NewFileLogger("/var/log/keypad/audit.klog")
//
//	// both
//	trail := audit.NewMultiLogger(console, file)
package audit
