package main

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpiui-project/rpiui-go/pkg/log"
)

func writeTestLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.rlog")
	fl, err := log.NewFileLogger(path)
	require.NoError(t, err)
	defer fl.Close()

	base := time.Date(2026, time.August, 24, 10, 0, 0, 0, time.UTC)
	fl.Log(log.Event{
		Timestamp: base,
		Source:    log.SourceLocal,
		Layer:     log.LayerApp,
		Category:  log.CategoryButton,
		Button:    &log.ButtonEvent{Button: 1, RawMask: 0x20},
	})
	fl.Log(log.Event{
		Timestamp:    base.Add(time.Second),
		Source:       log.SourceRemote,
		Layer:        log.LayerRemote,
		Category:     log.CategoryState,
		ConnectionID: "6f9619ff-8b86-4d01-b42d-00c04fc964ff",
		RemoteAddr:   "10.0.0.2:51234",
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			NewState: "CONNECTED",
		},
	})
	fl.Log(log.Event{
		Timestamp: base.Add(2 * time.Second),
		Source:    log.SourceLocal,
		Layer:     log.LayerBoard,
		Category:  log.CategoryReading,
		Reading:   &log.ReadingEvent{Channel: 0, Raw: 651, Celsius: 20.0},
	})
	fl.Log(log.Event{
		Timestamp: base.Add(3 * time.Second),
		Source:    log.SourceLookup,
		Layer:     log.LayerApp,
		Category:  log.CategoryError,
		Error:     &log.ErrorEventData{Message: "connection refused", Context: "price lookup"},
	})
	return path
}

func TestCollectStats(t *testing.T) {
	path := writeTestLog(t)

	reader, err := log.NewReader(path)
	require.NoError(t, err)
	defer reader.Close()

	stats, err := collectStats(reader)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.total)
	assert.Equal(t, 1, stats.errors)
	assert.Len(t, stats.connections, 1)
	assert.Equal(t, 2, stats.bySource["LOCAL"])
	assert.Equal(t, 1, stats.bySource["REMOTE"])
	assert.Equal(t, 1, stats.bySource["LOOKUP"])
	assert.Equal(t, 1, stats.buttons[1])
}

func TestFormatEvent(t *testing.T) {
	path := writeTestLog(t)

	reader, err := log.NewReader(path)
	require.NoError(t, err)
	defer reader.Close()

	var sb strings.Builder
	for {
		event, err := reader.Next()
		if err != nil {
			break
		}
		formatEvent(&sb, event)
	}
	out := sb.String()

	assert.Contains(t, out, "button 1 (mask 0x20)")
	assert.Contains(t, out, "CONNECTION - -> CONNECTED")
	assert.Contains(t, out, "[conn:6f9619ff]")
	assert.Contains(t, out, "channel 0 raw=651 20.0C")
	assert.Contains(t, out, "price lookup: connection refused")
}

func TestFilterFlagsBuild(t *testing.T) {
	tests := []struct {
		name    string
		flags   filterFlags
		wantErr bool
	}{
		{name: "Empty", flags: filterFlags{}},
		{name: "Source", flags: filterFlags{source: "remote"}},
		{name: "Layer", flags: filterFlags{layer: "board"}},
		{name: "Category", flags: filterFlags{category: "error"}},
		{name: "BadSource", flags: filterFlags{source: "nope"}, wantErr: true},
		{name: "BadLayer", flags: filterFlags{layer: "nope"}, wantErr: true},
		{name: "BadCategory", flags: filterFlags{category: "nope"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.flags.build()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFilteredView(t *testing.T) {
	path := writeTestLog(t)

	src := log.SourceRemote
	reader, err := log.NewFilteredReader(path, log.Filter{Source: &src})
	require.NoError(t, err)
	defer reader.Close()

	event, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, log.SourceRemote, event.Source)

	_, err = reader.Next()
	assert.Error(t, err)
}
