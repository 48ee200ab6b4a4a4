package app

import (
	"fmt"

	"github.com/rpiui-project/rpiui-go/pkg/board"
	"github.com/rpiui-project/rpiui-go/pkg/log"
	"github.com/rpiui-project/rpiui-go/pkg/pricefeed"
	"github.com/rpiui-project/rpiui-go/pkg/remote"
)

// Display text. The display is 16x2; everything here fits or is allowed to
// run off the visible area.
const (
	greetingText     = "  Hello World!"
	ipPrefix         = "IP: "
	ipUnavailable    = "<not connected>"
	pricePrefix      = "BTC/EUR: "
	priceErrorText   = "HTTP Request Error"
	internalTempText = "Int Temp: %.1f C"
	externalTempText = "Ext Temp: %.1f C"
	dateLineFormat   = "Mon 2 Jan 2006"
	timeLineFormat   = "15:04:05"
)

// Dispatch handles one button press from a local caller. Presses arriving
// while the controller is not Running are dropped, logged, never fatal.
func (c *Controller) Dispatch(button uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning {
		c.logger.Debug("dispatch ignored", "button", button, "state", c.state)
		return
	}
	c.logButtonLocked(button, 0, log.SourceLocal, nil)
	c.notifyButton(button, log.SourceLocal)
	c.dispatchLocked(button, log.SourceLocal)
}

// dispatchRemote handles one button byte from the remote-control listener.
func (c *Controller) dispatchRemote(conn *remote.Conn, button byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning {
		c.logger.Debug("remote dispatch ignored",
			"button", button, "state", c.state, "conn_id", conn.ConnID())
		return
	}
	c.logButtonLocked(button, 0, log.SourceRemote, conn)
	c.notifyButton(button, log.SourceRemote)
	c.dispatchLocked(button, log.SourceRemote)
}

// dispatchLocked is the single dispatch table, called with the lock held and
// the state known to be Running. No path here re-acquires the lock.
func (c *Controller) dispatchLocked(button uint8, src log.Source) {
	switch button {
	case 1:
		c.invalidateLookupLocked("display cycle advance")
		c.setCycleLocked(c.cycle.Next(), src.String())
		if err := c.renderCycleLocked(); err != nil {
			c.logger.Error("failed to render screen",
				"cycle", c.cycle, "error", err)
			c.logErrorLocked(err, "render "+c.cycle.String())
		}

	case 2:
		c.invalidateLookupLocked("temperature display")
		c.showTemperaturesLocked()
		c.setCycleLocked(CycleGreeting, "temperature display")

	case 3:
		c.startLookupLocked()

	case 6:
		c.shutdownLocked("reset requested")
		c.requestReset()

	default:
		c.logger.Debug("unhandled button", "button", button, "source", src)
	}
}

// renderCycleLocked renders the screen for the current display cycle value.
func (c *Controller) renderCycleLocked() error {
	switch c.cycle {
	case CycleShowIP:
		if ip, ok := c.config.ResolveIP(); ok {
			return c.display.Show(ipPrefix, ip)
		}
		return c.display.Show(ipPrefix, ipUnavailable)
	case CycleShowDate:
		now := c.config.Now()
		return c.display.Show(now.Format(dateLineFormat), now.Format(timeLineFormat))
	default:
		return c.display.Show(greetingText, "")
	}
}

// showTemperaturesLocked samples both sensors and renders them one decimal
// place each. A device fault ends the dispatch without touching the display.
func (c *Controller) showTemperaturesLocked() {
	rawInt, err := c.dev.ReadADCChannel(board.ADCInternal)
	if err != nil {
		c.logger.Error("failed to read internal sensor", "error", err)
		c.logErrorLocked(err, "read internal temperature")
		return
	}
	internal := board.RawToTemperature(rawInt)
	c.logReadingLocked(board.ADCInternal, rawInt, internal)

	rawExt, err := c.dev.ReadADCChannel(board.ADCExternal)
	if err != nil {
		c.logger.Error("failed to read external sensor", "error", err)
		c.logErrorLocked(err, "read external temperature")
		return
	}
	external := board.RawToTemperature(rawExt)
	c.logReadingLocked(board.ADCExternal, rawExt, external)

	if err := c.display.Show(
		fmt.Sprintf(internalTempText, internal),
		fmt.Sprintf(externalTempText, external),
	); err != nil {
		c.logger.Error("failed to render temperatures", "error", err)
		c.logErrorLocked(err, "render temperatures")
	}
}

// startLookupLocked issues the asynchronous price lookup. At most one is in
// flight: a press while the token is active is a no-op. The display cycle is
// reset to the greeting regardless of how the lookup ends.
func (c *Controller) startLookupLocked() {
	if c.lookupPending {
		c.logger.Debug("price lookup already in flight")
		return
	}

	if err := c.display.Clear(); err != nil {
		c.logger.Error("failed to clear display", "error", err)
		c.logErrorLocked(err, "clear display for lookup")
		return
	}

	c.lookupGen++
	c.lookupPending = true
	c.logLookupLocked("", "ACTIVE", "lookup issued")
	c.setCycleLocked(CycleGreeting, "price lookup")

	gen := c.lookupGen
	c.config.Fetcher.Fetch(c.config.PriceURL,
		func(body []byte) {
			quote, err := pricefeed.ParseQuote(body)
			c.completeLookup(gen, quote, err)
		},
		func(err error) {
			c.completeLookup(gen, "", err)
		},
	)
}

// completeLookup applies one lookup outcome. It arrives on an arbitrary
// goroutine, so it takes the lock and then checks the token: a completion
// whose generation is stale — the token was invalidated by a later button
// 1/2 press or by teardown — is discarded without touching the display.
func (c *Controller) completeLookup(gen uint64, quote string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lookupPending || gen != c.lookupGen {
		c.logger.Debug("stale lookup completion discarded", "generation", gen)
		return
	}
	c.lookupPending = false

	if err != nil {
		c.logger.Warn("price lookup failed", "error", err)
		c.logErrorLocked(err, "price lookup")
		c.logLookupLocked("ACTIVE", "FAILED", err.Error())
		if rerr := c.display.Show(priceErrorText, ""); rerr != nil {
			c.logger.Error("failed to render lookup error", "error", rerr)
		}
		return
	}

	c.logLookupLocked("ACTIVE", "COMPLETE", "")
	if rerr := c.display.Show(pricePrefix+quote, ""); rerr != nil {
		c.logger.Error("failed to render quote", "error", rerr)
		c.logErrorLocked(rerr, "render quote")
	}
}

// invalidateLookupLocked clears the token so an in-flight lookup's eventual
// completion is discarded. Cancellation is cooperative: the request itself
// keeps running, only its result is dropped.
func (c *Controller) invalidateLookupLocked(reason string) {
	if !c.lookupPending {
		return
	}
	c.lookupPending = false
	c.logLookupLocked("ACTIVE", "INVALIDATED", reason)
}

// notifyButton invokes the application hook, if any. Called with the lock
// held; hooks must not call back into the controller.
func (c *Controller) notifyButton(button uint8, src log.Source) {
	if c.config.OnButton != nil {
		c.config.OnButton(button, src == log.SourceRemote)
	}
}
