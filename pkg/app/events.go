package app

import (
	"time"

	"github.com/rpiui-project/rpiui-go/pkg/board"
	"github.com/rpiui-project/rpiui-go/pkg/log"
	"github.com/rpiui-project/rpiui-go/pkg/remote"
)

// Event-log helpers. All are called with the controller lock held; the event
// logger itself is safe for concurrent use, the lock just pins the state the
// events describe.

func (c *Controller) setStateLocked(next LifecycleState, reason string) {
	prev := c.state
	c.state = next
	c.logger.Info("lifecycle state changed",
		"old", prev, "new", next, "reason", reason)
	c.events.Log(log.Event{
		Timestamp: time.Now(),
		Source:    log.SourceLocal,
		Layer:     log.LayerApp,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityLifecycle,
			OldState: prev.String(),
			NewState: next.String(),
			Reason:   reason,
		},
	})
}

func (c *Controller) setCycleLocked(next DisplayCycle, reason string) {
	prev := c.cycle
	c.cycle = next
	if prev == next {
		return
	}
	c.events.Log(log.Event{
		Timestamp: time.Now(),
		Source:    log.SourceLocal,
		Layer:     log.LayerApp,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityDisplayCycle,
			OldState: prev.String(),
			NewState: next.String(),
			Reason:   reason,
		},
	})
}

func (c *Controller) logLookupLocked(oldState, newState, reason string) {
	c.events.Log(log.Event{
		Timestamp: time.Now(),
		Source:    log.SourceLookup,
		Layer:     log.LayerApp,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityLookup,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (c *Controller) logButtonLocked(button uint8, rawMask byte, src log.Source, conn *remote.Conn) {
	ev := log.Event{
		Timestamp: time.Now(),
		Source:    src,
		Layer:     log.LayerApp,
		Category:  log.CategoryButton,
		Button: &log.ButtonEvent{
			Button:  button,
			RawMask: rawMask,
		},
	}
	if conn != nil {
		ev.ConnectionID = conn.ConnID()
		ev.RemoteAddr = conn.RemoteAddr().String()
	}
	c.events.Log(ev)
}

func (c *Controller) logReadingLocked(ch board.ADCChannel, raw uint16, celsius float64) {
	c.events.Log(log.Event{
		Timestamp: time.Now(),
		Source:    log.SourceLocal,
		Layer:     log.LayerBoard,
		Category:  log.CategoryReading,
		Reading: &log.ReadingEvent{
			Channel: uint8(ch),
			Raw:     raw,
			Celsius: celsius,
		},
	})
}

func (c *Controller) logErrorLocked(err error, context string) {
	c.events.Log(log.Event{
		Timestamp: time.Now(),
		Source:    log.SourceLocal,
		Layer:     log.LayerApp,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Message: err.Error(),
			Context: context,
		},
	})
}
