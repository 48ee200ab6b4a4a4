package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rpiui-project/rpiui-go/pkg/board"
	"github.com/rpiui-project/rpiui-go/pkg/discovery"
	"github.com/rpiui-project/rpiui-go/pkg/log"
	"github.com/rpiui-project/rpiui-go/pkg/netinfo"
	"github.com/rpiui-project/rpiui-go/pkg/pricefeed"
	"github.com/rpiui-project/rpiui-go/pkg/remote"
)

// Default timings. The poll period keeps perceived button latency low while
// bounding I2C traffic; the restart delay matches the original five-second
// reset behavior.
const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultRestartDelay = 5 * time.Second
)

// Config configures a Controller.
type Config struct {
	// OpenChannel opens the board's I2C channel. Called on every
	// initialization, including restarts after a reset, so each lifecycle
	// gets a fresh handle. Required.
	OpenChannel func() (board.Channel, error)

	// Device is the board open configuration (contrast).
	Device board.DeviceConfig

	// ListenAddress is the remote-control listen address
	// (default ":19054"). A bind failure is non-fatal: the controller runs
	// without remote control capability.
	ListenAddress string

	// PollInterval is the button poll period (default 100ms).
	PollInterval time.Duration

	// RestartDelay is the pause between a completed reset teardown and the
	// automatic restart (default 5s).
	RestartDelay time.Duration

	// PriceURL is the price feed queried by button 3
	// (default pricefeed.DefaultURL).
	PriceURL string

	// Fetcher issues the asynchronous price lookups
	// (default pricefeed.NewHTTPFetcher with the default timeout).
	Fetcher pricefeed.Fetcher

	// Advertiser announces the remote-control endpoint over mDNS (optional).
	Advertiser discovery.Advertiser

	// Instance is the mDNS instance name (default "rpiui").
	Instance string

	// ResolveIP resolves the address for the IP screen
	// (default netinfo.PrimaryIPv4).
	ResolveIP func() (string, bool)

	// Now is the clock used for the date screen (default time.Now).
	Now func() time.Time

	// OnButton is invoked after every dispatched button press, with remote
	// set for presses arriving over the remote-control listener (optional).
	// Called with the controller's lock held; it must not call back into
	// the controller.
	OnButton func(button uint8, remote bool)

	// Logger for operational logging (optional).
	Logger *slog.Logger

	// EventLogger records structured application events (optional).
	EventLogger log.Logger
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.OpenChannel == nil {
		return fmt.Errorf("OpenChannel is required")
	}
	return nil
}

// withDefaults returns a copy of c with defaults applied.
func (c Config) withDefaults() Config {
	if c.ListenAddress == "" {
		c.ListenAddress = fmt.Sprintf(":%d", remote.DefaultPort)
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.RestartDelay == 0 {
		c.RestartDelay = DefaultRestartDelay
	}
	if c.PriceURL == "" {
		c.PriceURL = pricefeed.DefaultURL
	}
	if c.Fetcher == nil {
		c.Fetcher = pricefeed.NewHTTPFetcher(0)
	}
	if c.Instance == "" {
		c.Instance = "rpiui"
	}
	if c.ResolveIP == nil {
		c.ResolveIP = netinfo.PrimaryIPv4
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.EventLogger == nil {
		c.EventLogger = log.NoopLogger{}
	}
	return c
}
