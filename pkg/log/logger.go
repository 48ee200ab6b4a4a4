package log

// Logger is the interface applications implement to receive event records.
// Pass nil or NoopLogger to disable event logging.
type Logger interface {
	// Log records an event. Implementations must be thread-safe.
	// The event should be processed quickly or queued; blocking here blocks
	// the controller's critical section.
	Log(event Event)
}

// NoopLogger discards all events. Use when event logging is disabled.
// NoopLogger is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// Compile-time interface satisfaction check.
var _ Logger = NoopLogger{}
