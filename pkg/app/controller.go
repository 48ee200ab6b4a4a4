// Package app implements the application controller: the single
// mutual-exclusion gate that the periodic button poll, the remote-control
// listener and asynchronous price-lookup completions all converge on.
//
// No operation that touches shared state (display cycle, lookup token,
// device handle, tracked remote connection, lifecycle state) executes
// outside the gate, so device I/O is fully serialized across all trigger
// sources. The gate is not reentrant; internal code paths that already hold
// the lock call the *Locked variants directly.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/rpiui-project/rpiui-go/pkg/board"
	"github.com/rpiui-project/rpiui-go/pkg/log"
	"github.com/rpiui-project/rpiui-go/pkg/remote"
)

// ErrAlreadyRunning is returned when initialization is requested while the
// controller is not Uninitialized.
var ErrAlreadyRunning = errors.New("controller already initialized")

// Controller owns the board and coordinates all trigger sources behind one
// lock. Create it with NewController and drive it with Run.
type Controller struct {
	config Config
	logger *slog.Logger
	events log.Logger

	// resetCh carries the restart request out of the teardown path so the
	// goroutine that pressed the reset button is not blocked for the
	// restart delay. Buffered: teardown never blocks on it.
	resetCh chan struct{}

	mu    sync.Mutex
	state LifecycleState
	cycle DisplayCycle

	dev     *board.Device
	display *board.DisplayDriver
	temps   *board.TemperatureReader
	edges   board.EdgeDetector

	listener   *remote.Listener
	remoteConn *remote.Conn

	poller *poller

	// Lookup token. lookupPending is the "active" flag; lookupGen is bumped
	// on every issued lookup so a completion can tell whether it is stale
	// even across invalidate/reissue races.
	lookupGen     uint64
	lookupPending bool
}

// NewController creates a controller from config. The controller starts
// Uninitialized; call Run to initialize and operate it.
func NewController(config Config) (*Controller, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	config = config.withDefaults()

	return &Controller{
		config:  config,
		logger:  config.Logger,
		events:  config.EventLogger,
		resetCh: make(chan struct{}, 1),
	}, nil
}

// Run initializes the controller and then supervises it until ctx is
// cancelled: a button-6 reset tears everything down, and Run performs the
// delayed restart. Returns the initialization error if startup (or a
// restart) fails, or ctx.Err() after a clean shutdown.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.initialize(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			c.Shutdown("context cancelled")
			return ctx.Err()

		case <-c.resetCh:
			c.logger.Info("restart scheduled", "delay", c.config.RestartDelay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.config.RestartDelay):
			}
			if err := c.initialize(); err != nil {
				return fmt.Errorf("restart failed: %w", err)
			}
		}
	}
}

// initialize brings up the device, the remote-control listener and the
// poller, renders the greeting and transitions to Running. A second call
// while not Uninitialized is rejected and logged, not retried.
func (c *Controller) initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateUninitialized {
		c.logger.Warn("initialize rejected", "state", c.state)
		return ErrAlreadyRunning
	}

	ch, err := c.config.OpenChannel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	dev, err := board.Open(ch, c.config.Device)
	if err != nil {
		if closer, ok := ch.(io.Closer); ok {
			_ = closer.Close()
		}
		return fmt.Errorf("failed to open device: %w", err)
	}
	c.dev = dev
	c.display = board.NewDisplayDriver(dev)
	c.temps = board.NewTemperatureReader(dev)
	c.edges.Reset()

	// Remote control is optional: a bind failure leaves the board usable
	// through its own buttons.
	listener := remote.NewListener(remote.ListenerConfig{
		Address:      c.config.ListenAddress,
		EventLogger:  c.events,
		OnConnect:    c.registerRemoteConn,
		OnDisconnect: c.unregisterRemoteConn,
		OnButton:     c.dispatchRemote,
		OnError: func(_ *remote.Conn, err error) {
			c.logger.Warn("remote listener error", "error", err)
		},
	})
	if err := listener.Start(); err != nil {
		c.logger.Warn("remote control disabled", "error", err)
		c.logErrorLocked(err, "remote listener start")
	} else {
		c.listener = listener
		c.logger.Info("remote control listening", "address", listener.Addr())
		if c.config.Advertiser != nil {
			if addr, ok := listener.Addr().(*net.TCPAddr); ok {
				if err := c.config.Advertiser.Advertise(c.config.Instance, addr.Port); err != nil {
					c.logger.Warn("mDNS advertise failed", "error", err)
				}
			}
		}
	}

	c.poller = newPoller(c, c.config.PollInterval)
	c.poller.Start()

	c.cycle = CycleGreeting
	if err := c.renderCycleLocked(); err != nil {
		c.logger.Error("failed to render greeting", "error", err)
	}

	c.setStateLocked(StateRunning, "initialization complete")
	return nil
}

// Shutdown performs the ordered teardown if the controller is Running and
// does not schedule a restart. Safe to call in any state.
func (c *Controller) Shutdown(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning {
		return
	}
	c.shutdownLocked(reason)
}

// shutdownLocked releases resources in a fixed order: tracked remote
// connection, listener (and advertisement), poller, device. Each step is
// attempted even if an earlier one failed; failures are logged, never
// propagated. Ends Uninitialized with the display cycle back at the
// greeting.
func (c *Controller) shutdownLocked(reason string) {
	c.setStateLocked(StateShuttingDown, reason)
	c.invalidateLookupLocked("shutdown")

	if c.remoteConn != nil {
		if err := c.remoteConn.Close(); err != nil {
			c.logger.Warn("failed to close remote connection", "error", err)
			c.logErrorLocked(err, "teardown: close remote connection")
		}
		c.remoteConn = nil
	}

	if c.listener != nil {
		if err := c.listener.Stop(); err != nil {
			c.logger.Warn("failed to stop listener", "error", err)
			c.logErrorLocked(err, "teardown: stop listener")
		}
		c.listener = nil
	}
	if c.config.Advertiser != nil {
		c.config.Advertiser.Stop()
	}

	if c.poller != nil {
		// Stop does not join: the poll goroutine may itself be the caller
		// (a poll tick dispatching button 6), or be blocked on the lock we
		// hold. It exits on its own once the lock is released.
		c.poller.Stop()
		c.poller = nil
	}

	if c.dev != nil {
		if err := c.dev.Close(); err != nil {
			c.logger.Warn("failed to close device", "error", err)
			c.logErrorLocked(err, "teardown: close device")
		}
		c.dev = nil
		c.display = nil
		c.temps = nil
	}
	c.edges.Reset()

	c.setCycleLocked(CycleGreeting, "teardown")
	c.setStateLocked(StateUninitialized, "teardown complete")
}

// State returns the current lifecycle state.
func (c *Controller) State() LifecycleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cycle returns the currently displayed screen.
func (c *Controller) Cycle() DisplayCycle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycle
}

// ListenerAddr returns the remote-control listener's bound address, or nil
// when remote control is not available.
func (c *Controller) ListenerAddr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listener == nil {
		return nil
	}
	return c.listener.Addr()
}

// Temperatures samples both sensors. Like any device I/O it is serialized
// behind the gate; returns an error when the controller is not Running.
func (c *Controller) Temperatures() (internal, external float64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning {
		return 0, 0, fmt.Errorf("controller is %s", c.state)
	}
	internal, err = c.temps.Temperature(board.ADCInternal)
	if err != nil {
		return 0, 0, err
	}
	external, err = c.temps.Temperature(board.ADCExternal)
	if err != nil {
		return 0, 0, err
	}
	return internal, external, nil
}

// registerRemoteConn tracks an accepted connection for teardown. Tracking is
// rejected when not Running; the listener still reads the connection's
// bytes, they are just dropped by dispatch. A later connection overwrites
// the tracked one.
func (c *Controller) registerRemoteConn(conn *remote.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning {
		c.logger.Debug("remote connection not tracked",
			"state", c.state, "remote", conn.RemoteAddr())
		return
	}
	c.remoteConn = conn
	c.logger.Info("remote connection tracked",
		"conn_id", conn.ConnID(), "remote", conn.RemoteAddr())
}

func (c *Controller) unregisterRemoteConn(conn *remote.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remoteConn == conn {
		c.remoteConn = nil
	}
}

// requestReset schedules the delayed restart. Non-blocking; a request that
// arrives while one is already queued is folded into it.
func (c *Controller) requestReset() {
	select {
	case c.resetCh <- struct{}{}:
	default:
	}
}
