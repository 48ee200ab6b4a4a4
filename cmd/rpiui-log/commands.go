package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rpiui-project/rpiui-go/pkg/log"
)

// filterFlags holds the filter criteria shared by all commands.
type filterFlags struct {
	connID   string
	source   string
	layer    string
	category string
}

func (f *filterFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.connID, "conn-id", "", "Filter by connection ID (prefix match)")
	fs.StringVar(&f.source, "source", "", "Filter by source: local, remote, lookup")
	fs.StringVar(&f.layer, "layer", "", "Filter by layer: board, remote, app")
	fs.StringVar(&f.category, "category", "", "Filter by category: button, state, reading, error")
}

func (f *filterFlags) build() (log.Filter, error) {
	var filter log.Filter

	switch strings.ToLower(f.source) {
	case "":
	case "local":
		s := log.SourceLocal
		filter.Source = &s
	case "remote":
		s := log.SourceRemote
		filter.Source = &s
	case "lookup":
		s := log.SourceLookup
		filter.Source = &s
	default:
		return filter, fmt.Errorf("unknown source: %s", f.source)
	}

	switch strings.ToLower(f.layer) {
	case "":
	case "board":
		l := log.LayerBoard
		filter.Layer = &l
	case "remote":
		l := log.LayerRemote
		filter.Layer = &l
	case "app":
		l := log.LayerApp
		filter.Layer = &l
	default:
		return filter, fmt.Errorf("unknown layer: %s", f.layer)
	}

	switch strings.ToLower(f.category) {
	case "":
	case "button":
		c := log.CategoryButton
		filter.Category = &c
	case "state":
		c := log.CategoryState
		filter.Category = &c
	case "reading":
		c := log.CategoryReading
		filter.Category = &c
	case "error":
		c := log.CategoryError
		filter.Category = &c
	default:
		return filter, fmt.Errorf("unknown category: %s", f.category)
	}

	return filter, nil
}

// openReader opens the log file named by the flag set's remaining argument.
// Connection-ID prefix matching is applied by the caller, not the Filter.
func openReader(fs *flag.FlagSet, filter log.Filter) (*log.Reader, error) {
	if fs.NArg() != 1 {
		return nil, fmt.Errorf("expected exactly one log file argument")
	}
	return log.NewFilteredReader(fs.Arg(0), filter)
}

// matchConnID implements prefix matching so users can paste the shortened
// IDs view prints.
func matchConnID(event log.Event, prefix string) bool {
	return prefix == "" || strings.HasPrefix(event.ConnectionID, prefix)
}

func runView(args []string) error {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	var filters filterFlags
	filters.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter, err := filters.build()
	if err != nil {
		return err
	}
	reader, err := openReader(fs, filter)
	if err != nil {
		return err
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if !matchConnID(event, filters.connID) {
			continue
		}
		formatEvent(os.Stdout, event)
	}
}

// formatEvent writes one event as a single human-readable line (two for
// errors with context).
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z")

	var detail string
	switch {
	case event.Button != nil:
		detail = fmt.Sprintf("button %d", event.Button.Button)
		if event.Button.RawMask != 0 {
			detail += fmt.Sprintf(" (mask 0x%02X)", event.Button.RawMask)
		}
	case event.StateChange != nil:
		sc := event.StateChange
		detail = fmt.Sprintf("%s %s -> %s", sc.Entity, orDash(sc.OldState), sc.NewState)
		if sc.Reason != "" {
			detail += fmt.Sprintf(" (%s)", sc.Reason)
		}
	case event.Reading != nil:
		detail = fmt.Sprintf("channel %d raw=%d %.1fC",
			event.Reading.Channel, event.Reading.Raw, event.Reading.Celsius)
	case event.Error != nil:
		detail = event.Error.Message
		if event.Error.Context != "" {
			detail = event.Error.Context + ": " + detail
		}
	default:
		detail = "unknown event"
	}

	conn := ""
	if event.ConnectionID != "" {
		conn = fmt.Sprintf(" [conn:%s]", shortenConnID(event.ConnectionID))
	}

	fmt.Fprintf(w, "%s %-6s %-6s %-7s%s %s\n",
		ts, event.Source, event.Layer, event.Category, conn, detail)
}

func shortenConnID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	var filters filterFlags
	filters.register(fs)
	output := fs.String("o", "", "Output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter, err := filters.build()
	if err != nil {
		return err
	}
	reader, err := openReader(fs, filter)
	if err != nil {
		return err
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if !matchConnID(event, filters.connID) {
			continue
		}
		if err := enc.Encode(exportEvent(event)); err != nil {
			return err
		}
	}
}

// exportEvent flattens an Event into a JSON-friendly shape with symbolic
// enum names.
func exportEvent(event log.Event) map[string]any {
	out := map[string]any{
		"timestamp": event.Timestamp.UTC(),
		"source":    event.Source.String(),
		"layer":     event.Layer.String(),
		"category":  event.Category.String(),
	}
	if event.ConnectionID != "" {
		out["connection_id"] = event.ConnectionID
	}
	if event.RemoteAddr != "" {
		out["remote_addr"] = event.RemoteAddr
	}
	switch {
	case event.Button != nil:
		out["button"] = event.Button.Button
		if event.Button.RawMask != 0 {
			out["raw_mask"] = event.Button.RawMask
		}
	case event.StateChange != nil:
		out["entity"] = event.StateChange.Entity.String()
		out["old_state"] = event.StateChange.OldState
		out["new_state"] = event.StateChange.NewState
		if event.StateChange.Reason != "" {
			out["reason"] = event.StateChange.Reason
		}
	case event.Reading != nil:
		out["channel"] = event.Reading.Channel
		out["raw"] = event.Reading.Raw
		out["celsius"] = event.Reading.Celsius
	case event.Error != nil:
		out["error"] = event.Error.Message
		if event.Error.Context != "" {
			out["context"] = event.Error.Context
		}
	}
	return out
}

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	reader, err := openReader(fs, log.Filter{})
	if err != nil {
		return err
	}
	defer reader.Close()

	stats, err := collectStats(reader)
	if err != nil {
		return err
	}
	stats.print(os.Stdout)
	return nil
}

type logStats struct {
	total       int
	bySource    map[string]int
	byCategory  map[string]int
	buttons     map[uint8]int
	connections map[string]struct{}
	errors      int
	first, last log.Event
}

func collectStats(reader *log.Reader) (*logStats, error) {
	stats := &logStats{
		bySource:    make(map[string]int),
		byCategory:  make(map[string]int),
		buttons:     make(map[uint8]int),
		connections: make(map[string]struct{}),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		if stats.total == 0 {
			stats.first = event
		}
		stats.last = event
		stats.total++

		stats.bySource[event.Source.String()]++
		stats.byCategory[event.Category.String()]++
		if event.Button != nil {
			stats.buttons[event.Button.Button]++
		}
		if event.ConnectionID != "" {
			stats.connections[event.ConnectionID] = struct{}{}
		}
		if event.Error != nil {
			stats.errors++
		}
	}
}

func (s *logStats) print(w io.Writer) {
	fmt.Fprintf(w, "Events:      %d\n", s.total)
	if s.total == 0 {
		return
	}
	fmt.Fprintf(w, "Time range:  %s - %s\n",
		s.first.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
		s.last.Timestamp.UTC().Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(w, "Connections: %d\n", len(s.connections))
	fmt.Fprintf(w, "Errors:      %d\n", s.errors)

	fmt.Fprintln(w, "\nBy source:")
	printCounts(w, s.bySource)
	fmt.Fprintln(w, "\nBy category:")
	printCounts(w, s.byCategory)

	if len(s.buttons) > 0 {
		fmt.Fprintln(w, "\nButton presses:")
		var ids []int
		for b := range s.buttons {
			ids = append(ids, int(b))
		}
		sort.Ints(ids)
		for _, b := range ids {
			fmt.Fprintf(w, "  button %d: %d\n", b, s.buttons[uint8(b)])
		}
	}
}

func printCounts(w io.Writer, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-8s %d\n", k, counts[k])
	}
}
