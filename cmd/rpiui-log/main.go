// Command rpiui-log views and analyzes rpiui event log files.
//
// Log files are created by running rpiui-demo with the -event-log flag.
//
// Usage:
//
//	rpiui-log <command> [flags] <file.rlog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSONL
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View all events
//	rpiui-log view board.rlog
//
//	# View only remote-triggered events
//	rpiui-log view -source remote board.rlog
//
//	# View one connection's events
//	rpiui-log view -conn-id 6f9619ff board.rlog
//
//	# Export to JSONL
//	rpiui-log export board.rlog > board.jsonl
//
//	# Show statistics
//	rpiui-log stats board.rlog
package main

import (
	"fmt"
	"os"
)

const usage = `rpiui-log - rpiui event log analyzer

Usage:
  rpiui-log <command> [flags] <file.rlog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSONL
  stats    Show statistics about the log file

Use "rpiui-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "view":
		err = runView(args)
	case "export":
		err = runExport(args)
	case "stats":
		err = runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", cmd, usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
