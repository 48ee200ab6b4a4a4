// Package log provides structured event logging for the rpiui daemon.
//
// It defines the Logger interface and Event types for capturing what the
// application actually did — button presses and their source, lifecycle and
// display-cycle transitions, temperature readings, errors — as a
// machine-readable trace. It is separate from operational logging (slog):
// slog tells a human what is happening, the event log gives tooling a
// complete record to analyze after the fact.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.EventLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.EventLogger, _ = log.NewFileLogger("/var/log/rpiui/demo.rlog")
//
//	// Both: use MultiLogger
//	cfg.EventLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # File Format
//
// Log files use CBOR encoding with .rlog extension. The rpiui-log CLI tool
// provides viewing and summarizing.
package log
