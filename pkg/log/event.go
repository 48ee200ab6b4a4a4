package log

import "time"

// Event represents one recorded application event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// Source indicates which trigger produced the event.
	Source Source `cbor:"2,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// ConnectionID identifies the remote connection (UUID), when the event
	// originated from the remote-control listener.
	ConnectionID string `cbor:"5,keyasint,omitempty"`

	// RemoteAddr is the peer address (IP:port) for remote events.
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Button      *ButtonEvent      `cbor:"7,keyasint,omitempty"`  // Button presses
	StateChange *StateChangeEvent `cbor:"8,keyasint,omitempty"`  // Lifecycle/display/lookup state
	Reading     *ReadingEvent     `cbor:"9,keyasint,omitempty"`  // Temperature samples
	Error       *ErrorEventData   `cbor:"10,keyasint,omitempty"` // Errors at any layer
}

// Source indicates which of the three trigger contexts produced an event.
type Source uint8

const (
	// SourceLocal is the periodic board poll (or the daemon itself).
	SourceLocal Source = 0
	// SourceRemote is the TCP remote-control listener.
	SourceRemote Source = 1
	// SourceLookup is an asynchronous price-lookup completion.
	SourceLookup Source = 2
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourceLocal:
		return "LOCAL"
	case SourceRemote:
		return "REMOTE"
	case SourceLookup:
		return "LOOKUP"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerBoard is the device protocol driver.
	LayerBoard Layer = 0
	// LayerRemote is the TCP remote-control listener.
	LayerRemote Layer = 1
	// LayerApp is the application controller.
	LayerApp Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerBoard:
		return "BOARD"
	case LayerRemote:
		return "REMOTE"
	case LayerApp:
		return "APP"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryButton indicates a dispatched button press.
	CategoryButton Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategoryReading indicates a sensor reading.
	CategoryReading Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryButton:
		return "BUTTON"
	case CategoryState:
		return "STATE"
	case CategoryReading:
		return "READING"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ButtonEvent captures a dispatched button press.
type ButtonEvent struct {
	// Button is the button number (1-6).
	Button uint8 `cbor:"1,keyasint"`

	// RawMask is the level sample the edge was derived from (poll source
	// only; zero for remote presses).
	RawMask byte `cbor:"2,keyasint,omitempty"`
}

// StateChangeEvent captures lifecycle, display-cycle, lookup and connection
// transitions.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityLifecycle indicates an application lifecycle change.
	StateEntityLifecycle StateEntity = 0
	// StateEntityDisplayCycle indicates a display-cycle change.
	StateEntityDisplayCycle StateEntity = 1
	// StateEntityLookup indicates a price-lookup token change.
	StateEntityLookup StateEntity = 2
	// StateEntityConnection indicates a remote connection change.
	StateEntityConnection StateEntity = 3
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityLifecycle:
		return "LIFECYCLE"
	case StateEntityDisplayCycle:
		return "DISPLAY_CYCLE"
	case StateEntityLookup:
		return "LOOKUP"
	case StateEntityConnection:
		return "CONNECTION"
	default:
		return "UNKNOWN"
	}
}

// ReadingEvent captures one temperature sample.
type ReadingEvent struct {
	// Channel is the ADC channel (0 internal, 1 external).
	Channel uint8 `cbor:"1,keyasint"`

	// Raw is the raw ADC sample.
	Raw uint16 `cbor:"2,keyasint"`

	// Celsius is the converted temperature.
	Celsius float64 `cbor:"3,keyasint"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"2,keyasint,omitempty"`
}
