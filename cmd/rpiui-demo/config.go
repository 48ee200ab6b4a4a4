package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// config is the full rpiui-demo configuration. Flags take precedence over
// the file; the file fills in whatever the flags left at their default.
type config struct {
	Bus      string `yaml:"bus"`
	Listen   string `yaml:"listen"`
	Contrast int    `yaml:"contrast"`
	LogLevel string `yaml:"log_level"`
	EventLog string `yaml:"event_log"`
	Instance string `yaml:"instance"`
	NoMDNS   bool   `yaml:"no_mdns"`

	MQTT mqttConfig `yaml:"mqtt"`
}

type mqttConfig struct {
	Broker      string        `yaml:"broker"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	ClientID    string        `yaml:"client_id"`
	TopicPrefix string        `yaml:"topic_prefix"`
	Interval    time.Duration `yaml:"interval"`
}

func defaultConfig() config {
	return config{
		Listen:   ":19054",
		Contrast: 0x50,
		LogLevel: "info",
		Instance: "rpiui",
	}
}

func loadConfig(path string) (config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return config{}, err
	}
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// mergeConfig overlays file values onto flag values: a file value is used
// only where the flag still carries its default.
func mergeConfig(flags, file config) config {
	def := defaultConfig()

	if flags.Bus == def.Bus && file.Bus != "" {
		flags.Bus = file.Bus
	}
	if flags.Listen == def.Listen && file.Listen != "" {
		flags.Listen = file.Listen
	}
	if flags.Contrast == def.Contrast && file.Contrast != 0 {
		flags.Contrast = file.Contrast
	}
	if flags.LogLevel == def.LogLevel && file.LogLevel != "" {
		flags.LogLevel = file.LogLevel
	}
	if flags.EventLog == "" {
		flags.EventLog = file.EventLog
	}
	if flags.Instance == def.Instance && file.Instance != "" {
		flags.Instance = file.Instance
	}
	if !flags.NoMDNS {
		flags.NoMDNS = file.NoMDNS
	}
	if flags.MQTT.Broker == "" {
		flags.MQTT.Broker = file.MQTT.Broker
	}
	flags.MQTT.Username = file.MQTT.Username
	flags.MQTT.Password = file.MQTT.Password
	flags.MQTT.ClientID = file.MQTT.ClientID
	flags.MQTT.TopicPrefix = file.MQTT.TopicPrefix
	flags.MQTT.Interval = file.MQTT.Interval

	return flags
}

func (c config) validate() error {
	if c.Contrast < 1 || c.Contrast > 255 {
		return fmt.Errorf("contrast must be 1-255, got %d", c.Contrast)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %s", c.LogLevel)
	}
	return nil
}
