package app

// LifecycleState is the application lifecycle state machine:
// Uninitialized -> (initialize) -> Running -> (reset) -> ShuttingDown ->
// (teardown complete) -> Uninitialized -> (delayed restart) -> Running.
type LifecycleState uint8

const (
	// StateUninitialized means no resources are held. Only initialization
	// is accepted in this state.
	StateUninitialized LifecycleState = iota

	// StateRunning means the device, poller and listener are live and
	// dispatch is accepted.
	StateRunning

	// StateShuttingDown means an ordered teardown is in progress.
	StateShuttingDown
)

// String returns a human-readable state name.
func (s LifecycleState) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateRunning:
		return "RUNNING"
	case StateShuttingDown:
		return "SHUTTING_DOWN"
	default:
		return "UNKNOWN"
	}
}

// DisplayCycle is the rotating set of informational screens shown by
// repeated button-1 presses. The value is the screen currently displayed;
// a press advances to the next screen and renders it.
type DisplayCycle uint8

const (
	// CycleGreeting shows the static greeting text.
	CycleGreeting DisplayCycle = iota

	// CycleShowIP shows the host's resolved IP address.
	CycleShowIP

	// CycleShowDate shows the current date and time.
	CycleShowDate
)

// Next returns the screen following s in the cycle.
func (s DisplayCycle) Next() DisplayCycle {
	switch s {
	case CycleGreeting:
		return CycleShowIP
	case CycleShowIP:
		return CycleShowDate
	default:
		return CycleGreeting
	}
}

// String returns a human-readable screen name.
func (s DisplayCycle) String() string {
	switch s {
	case CycleGreeting:
		return "GREETING"
	case CycleShowIP:
		return "SHOW_IP"
	case CycleShowDate:
		return "SHOW_DATE"
	default:
		return "UNKNOWN"
	}
}
