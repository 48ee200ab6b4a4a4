// Package telemetry publishes board activity to an MQTT broker: an
// availability topic with a last-will, button press events, and periodic
// temperature readings. Telemetry is an optional sidecar — the board works
// the same without a broker.
package telemetry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Defaults.
const (
	DefaultClientID    = "rpiui"
	DefaultTopicPrefix = "rpiui"
	DefaultInterval    = 30 * time.Second
)

// TemperatureSource samples both sensors. Satisfied by the application
// controller.
type TemperatureSource interface {
	Temperatures() (internal, external float64, err error)
}

// Config configures a Publisher.
type Config struct {
	// Broker is the MQTT broker URL, e.g. "tcp://127.0.0.1:1883". Required.
	Broker string

	// Username and Password are the broker credentials (optional).
	Username string
	Password string

	// ClientID is the MQTT client identifier (default "rpiui").
	ClientID string

	// TopicPrefix prefixes all published topics (default "rpiui").
	TopicPrefix string

	// Interval is the temperature publish period (default 30s).
	Interval time.Duration

	// Logger for operational logging (optional).
	Logger *slog.Logger
}

// buttonMessage is the payload published on a dispatched button press.
type buttonMessage struct {
	Button uint8  `json:"button"`
	Source string `json:"source"`
	Time   string `json:"time"`
}

// temperatureMessage is the payload published on the periodic sample.
type temperatureMessage struct {
	Internal float64 `json:"internal"`
	External float64 `json:"external"`
	Time     string  `json:"time"`
}

// Publisher owns the broker connection and the periodic temperature loop.
type Publisher struct {
	config Config
	logger *slog.Logger
	source TemperatureSource

	client mqtt.Client

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPublisher creates a publisher. Call Start to connect.
func NewPublisher(config Config, source TemperatureSource) *Publisher {
	if config.ClientID == "" {
		config.ClientID = DefaultClientID
	}
	if config.TopicPrefix == "" {
		config.TopicPrefix = DefaultTopicPrefix
	}
	if config.Interval == 0 {
		config.Interval = DefaultInterval
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Publisher{
		config: config,
		logger: config.Logger,
		source: source,
		done:   make(chan struct{}),
	}
}

func (p *Publisher) availabilityTopic() string {
	return p.config.TopicPrefix + "/status"
}

// Start connects to the broker, announces availability and begins the
// periodic temperature loop.
func (p *Publisher) Start() error {
	if p.client == nil {
		opts := mqtt.NewClientOptions()
		opts.AddBroker(p.config.Broker)
		opts.SetUsername(p.config.Username)
		opts.SetPassword(p.config.Password)
		opts.SetClientID(p.config.ClientID)
		opts.SetAutoReconnect(true)
		opts.SetWill(p.availabilityTopic(), "offline", 0, true)
		opts.SetOnConnectHandler(func(c mqtt.Client) {
			p.logger.Info("connected to MQTT broker", "broker", p.config.Broker)
			c.Publish(p.availabilityTopic(), 0, true, "online")
		})
		p.client = mqtt.NewClient(opts)
	}

	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connection failed: %w", token.Error())
	}

	p.wg.Add(1)
	go p.temperatureLoop()
	return nil
}

// Stop announces unavailability, disconnects and ends the temperature loop.
func (p *Publisher) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()

	if p.client != nil && p.client.IsConnected() {
		p.client.Publish(p.availabilityTopic(), 0, true, "offline").Wait()
		p.client.Disconnect(250)
	}
}

// PublishButton publishes one dispatched button press. Fire and forget: it
// is called from the controller's dispatch hook and must not block, so the
// publish token is not waited on.
func (p *Publisher) PublishButton(button uint8, remote bool) {
	source := "local"
	if remote {
		source = "remote"
	}
	payload, err := json.Marshal(buttonMessage{
		Button: button,
		Source: source,
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	p.client.Publish(p.config.TopicPrefix+"/event/button", 0, false, payload)
}

// temperatureLoop samples and publishes both sensors at the configured
// interval. Samples failing because the controller is between lifecycles
// are skipped quietly.
func (p *Publisher) temperatureLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.publishTemperatures()
		}
	}
}

func (p *Publisher) publishTemperatures() {
	internal, external, err := p.source.Temperatures()
	if err != nil {
		p.logger.Debug("temperature sample skipped", "error", err)
		return
	}
	payload, err := json.Marshal(temperatureMessage{
		Internal: internal,
		External: external,
		Time:     time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	if token := p.client.Publish(p.config.TopicPrefix+"/temperature", 0, true, payload); token.Wait() && token.Error() != nil {
		p.logger.Warn("temperature publish failed", "error", token.Error())
	}
}
