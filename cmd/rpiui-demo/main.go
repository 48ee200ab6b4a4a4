// Command rpiui-demo runs the demo application on a BitWizard RPi_UI board:
// a 16x2 LCD, six buttons and two temperature channels behind one I2C
// address.
//
// Button 1 cycles the display through greeting, IP address and date/time;
// button 2 shows both temperatures; button 3 fetches the current BTC/EUR
// price; button 6 resets the application, which restarts itself after five
// seconds. The same buttons can be driven over TCP, one byte per press.
//
// Usage:
//
//	rpiui-demo [flags]
//
// Flags:
//
//	-bus string         I2C bus name, empty for the first available bus
//	-config string      Configuration file path (YAML)
//	-listen string      Remote-control listen address (default ":19054")
//	-contrast int       LCD contrast 1-255 (default 80)
//	-log-level string   Log level: debug, info, warn, error (default "info")
//	-event-log string   Write application events to this file (.rlog)
//	-instance string    mDNS instance name (default "rpiui")
//	-no-mdns            Disable mDNS advertising
//	-mqtt-broker string Publish telemetry to this MQTT broker
//
// Examples:
//
//	# Run against the default bus with remote control on :19054
//	rpiui-demo
//
//	# Run with an event log and MQTT telemetry
//	rpiui-demo -event-log board.rlog -mqtt-broker tcp://127.0.0.1:1883
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"periph.io/x/host/v3"

	"github.com/rpiui-project/rpiui-go/pkg/app"
	"github.com/rpiui-project/rpiui-go/pkg/board"
	"github.com/rpiui-project/rpiui-go/pkg/discovery"
	"github.com/rpiui-project/rpiui-go/pkg/log"
	"github.com/rpiui-project/rpiui-go/pkg/telemetry"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Configuration file path (YAML)")

	cfg := defaultConfig()
	flag.StringVar(&cfg.Bus, "bus", cfg.Bus, "I2C bus name, empty for the first available bus")
	flag.StringVar(&cfg.Listen, "listen", cfg.Listen, "Remote-control listen address")
	flag.IntVar(&cfg.Contrast, "contrast", cfg.Contrast, "LCD contrast 1-255")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	flag.StringVar(&cfg.EventLog, "event-log", cfg.EventLog, "Write application events to this file")
	flag.StringVar(&cfg.Instance, "instance", cfg.Instance, "mDNS instance name")
	flag.BoolVar(&cfg.NoMDNS, "no-mdns", cfg.NoMDNS, "Disable mDNS advertising")
	flag.StringVar(&cfg.MQTT.Broker, "mqtt-broker", cfg.MQTT.Broker, "Publish telemetry to this MQTT broker")
	flag.Parse()

	// File values fill in anything the flags left at their default.
	if configPath != "" {
		fileCfg, err := loadConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}
	if err := cfg.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func run(cfg config, logger *slog.Logger) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize host drivers: %w", err)
	}

	var eventLoggers []log.Logger
	if cfg.EventLog != "" {
		fl, err := log.NewFileLogger(cfg.EventLog)
		if err != nil {
			return fmt.Errorf("failed to open event log: %w", err)
		}
		defer fl.Close()
		eventLoggers = append(eventLoggers, fl)
		logger.Info("event logging enabled", "path", cfg.EventLog)
	}
	if cfg.LogLevel == "debug" {
		eventLoggers = append(eventLoggers, log.NewSlogAdapter(logger))
	}

	var eventLogger log.Logger
	switch len(eventLoggers) {
	case 0:
		eventLogger = log.NoopLogger{}
	case 1:
		eventLogger = eventLoggers[0]
	default:
		eventLogger = log.NewMultiLogger(eventLoggers...)
	}

	appConfig := app.Config{
		OpenChannel:   func() (board.Channel, error) { return board.OpenI2C(cfg.Bus) },
		Device:        board.DeviceConfig{Contrast: byte(cfg.Contrast)},
		ListenAddress: cfg.Listen,
		Instance:      cfg.Instance,
		Logger:        logger,
		EventLogger:   eventLogger,
	}
	if !cfg.NoMDNS {
		appConfig.Advertiser = discovery.NewMDNSAdvertiser(discovery.DefaultAdvertiserConfig())
	}

	// The publisher needs the controller as its temperature source and the
	// controller calls the publisher on button presses; the indirection
	// breaks the construction cycle.
	var publisher *telemetry.Publisher
	appConfig.OnButton = func(button uint8, remote bool) {
		if publisher != nil {
			publisher.PublishButton(button, remote)
		}
	}

	controller, err := app.NewController(appConfig)
	if err != nil {
		return err
	}

	if cfg.MQTT.Broker != "" {
		p := telemetry.NewPublisher(telemetry.Config{
			Broker:      cfg.MQTT.Broker,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			Interval:    cfg.MQTT.Interval,
			Logger:      logger,
		}, controller)

		// Telemetry is best-effort: a dead broker must not keep the board
		// from running.
		if err := p.Start(); err != nil {
			logger.Warn("telemetry disabled", "error", err)
		} else {
			publisher = p
			defer p.Stop()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	logger.Info("starting", "bus", cfg.Bus, "listen", cfg.Listen)
	if err := controller.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	logger.Info("goodbye")
	return nil
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
