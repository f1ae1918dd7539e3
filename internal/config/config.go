// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration values.
// Every field can be overridden by the environment variable named in its
// env tag.
type Config struct {
	// GPS receiver
	GPSSerialPort    string `yaml:"gps_serial_port" env:"GPS_SERIAL_PORT"`
	GPSBaudRate      int    `yaml:"gps_baud_rate" env:"GPS_BAUD_RATE"`
	GPSLineBuffer    int    `yaml:"gps_line_buffer" env:"GPS_LINE_BUFFER"`
	GPSPollTimeoutMS int    `yaml:"gps_poll_timeout_ms" env:"GPS_POLL_TIMEOUT_MS"`

	// Acquisition loop
	NoDataSignalReads    int  `yaml:"nodata_signal_reads" env:"NODATA_SIGNAL_READS"`
	LivenessTimeoutReads int  `yaml:"liveness_timeout_reads" env:"LIVENESS_TIMEOUT_READS"`
	ReadBackoffMS        int  `yaml:"read_backoff_ms" env:"READ_BACKOFF_MS"`
	MaxLoopCount         int  `yaml:"max_loop_count" env:"MAX_LOOP_COUNT"`
	ReclaimMemory        bool `yaml:"reclaim_memory" env:"RECLAIM_MEMORY"`
	VerifyChecksum       bool `yaml:"verify_checksum" env:"VERIFY_CHECKSUM"`

	// Display
	UTCOffsetHours  float64 `yaml:"utc_offset_hours" env:"UTC_OFFSET_HOURS"`
	DisplayFunction string  `yaml:"display_function" env:"DISPLAY_FUNCTION"`

	// MQTT, disabled when the broker is empty
	MQTTBroker   string `yaml:"mqtt_broker" env:"MQTT_BROKER"`
	MQTTClientID string `yaml:"mqtt_client_id" env:"MQTT_CLIENT_ID"`
	TopicFix     string `yaml:"topic_fix" env:"TOPIC_FIX"`
	TopicDisplay string `yaml:"topic_display" env:"TOPIC_DISPLAY"`

	// NATS, disabled when the URL is empty
	NATSURL     string `yaml:"nats_url" env:"NATS_URL"`
	NATSSubject string `yaml:"nats_subject" env:"NATS_SUBJECT"`

	// Web Server, disabled when the port is 0
	WebServerPort int `yaml:"web_server_port" env:"WEB_SERVER_PORT"`

	// Buttons (periph pin names), each disabled when empty
	ButtonNextPin string `yaml:"button_next_pin" env:"BUTTON_NEXT_PIN"`
	ButtonPrevPin string `yaml:"button_prev_pin" env:"BUTTON_PREV_PIN"`
	ButtonStopPin string `yaml:"button_stop_pin" env:"BUTTON_STOP_PIN"`
}

var validBaudRates = []int{4800, 9600, 19200, 38400, 57600, 115200}

var displayFunctions = []string{"position", "groundspeed", "track", "altitude"}

// globalConfig is only set through InitGlobal and read through Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for keys that are not set.
func Default() *Config {
	return &Config{
		GPSSerialPort:        "/dev/serial0",
		GPSBaudRate:          4800,
		GPSLineBuffer:        256,
		GPSPollTimeoutMS:     100,
		NoDataSignalReads:    100,
		LivenessTimeoutReads: 1000,
		ReadBackoffMS:        300,
		MaxLoopCount:         14,
		DisplayFunction:      "track",
		MQTTClientID:         "gps-matrix",
		TopicFix:             "gps/fix",
		TopicDisplay:         "gps/display",
		NATSSubject:          "gps",
	}
}

// Load reads the configuration file and returns a Config struct.
// Files ending in .yaml or .yml are YAML, anything else is KEY=VALUE.
// An empty path uses the defaults. Environment variables are applied last.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		switch strings.ToLower(filepath.Ext(configPath)) {
		case ".yaml", ".yml":
			err = cfg.loadYAML(data)
		default:
			err = cfg.loadKeyValue(data)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid yaml config: %w", err)
	}
	return nil
}

func (c *Config) loadKeyValue(data []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := c.setValue(key, value); err != nil {
			return fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// GPS receiver
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		c.GPSBaudRate, err = atoi(key, value)
	case "GPS_LINE_BUFFER":
		c.GPSLineBuffer, err = atoi(key, value)
	case "GPS_POLL_TIMEOUT_MS":
		c.GPSPollTimeoutMS, err = atoi(key, value)

	// Acquisition loop
	case "NODATA_SIGNAL_READS":
		c.NoDataSignalReads, err = atoi(key, value)
	case "LIVENESS_TIMEOUT_READS":
		c.LivenessTimeoutReads, err = atoi(key, value)
	case "READ_BACKOFF_MS":
		c.ReadBackoffMS, err = atoi(key, value)
	case "MAX_LOOP_COUNT":
		c.MaxLoopCount, err = atoi(key, value)
	case "RECLAIM_MEMORY":
		c.ReclaimMemory, err = parseBool(key, value)
	case "VERIFY_CHECKSUM":
		c.VerifyChecksum, err = parseBool(key, value)

	// Display
	case "UTC_OFFSET_HOURS":
		c.UTCOffsetHours, err = strconv.ParseFloat(value, 64)
		if err != nil {
			err = fmt.Errorf("invalid UTC_OFFSET_HOURS %q: %w", value, err)
		}
	case "DISPLAY_FUNCTION":
		c.DisplayFunction = value

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "TOPIC_FIX":
		c.TopicFix = value
	case "TOPIC_DISPLAY":
		c.TopicDisplay = value

	// NATS
	case "NATS_URL":
		c.NATSURL = value
	case "NATS_SUBJECT":
		c.NATSSubject = value

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = atoi(key, value)

	// Buttons
	case "BUTTON_NEXT_PIN":
		c.ButtonNextPin = value
	case "BUTTON_PREV_PIN":
		c.ButtonPrevPin = value
	case "BUTTON_STOP_PIN":
		c.ButtonStopPin = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}
	return err
}

func atoi(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseBool(key, value string) (bool, error) {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// validate normalises values and checks ranges and cross-field constraints.
func (c *Config) validate() error {
	c.DisplayFunction = strings.ToLower(strings.TrimSpace(c.DisplayFunction))

	if c.GPSSerialPort == "" {
		return fmt.Errorf("GPS_SERIAL_PORT is required")
	}
	if !slices.Contains(validBaudRates, c.GPSBaudRate) {
		return fmt.Errorf("GPS_BAUD_RATE must be one of %v, got %d", validBaudRates, c.GPSBaudRate)
	}
	if c.GPSLineBuffer < 82 {
		// 82 characters is the longest sentence NMEA 0183 allows.
		return fmt.Errorf("GPS_LINE_BUFFER must be at least 82, got %d", c.GPSLineBuffer)
	}
	if c.GPSPollTimeoutMS <= 0 {
		return fmt.Errorf("GPS_POLL_TIMEOUT_MS must be positive, got %d", c.GPSPollTimeoutMS)
	}
	if c.NoDataSignalReads <= 0 {
		return fmt.Errorf("NODATA_SIGNAL_READS must be positive, got %d", c.NoDataSignalReads)
	}
	if c.LivenessTimeoutReads <= 0 {
		return fmt.Errorf("LIVENESS_TIMEOUT_READS must be positive, got %d", c.LivenessTimeoutReads)
	}
	if c.NoDataSignalReads > c.LivenessTimeoutReads {
		return fmt.Errorf("NODATA_SIGNAL_READS (%d) must not exceed LIVENESS_TIMEOUT_READS (%d)",
			c.NoDataSignalReads, c.LivenessTimeoutReads)
	}
	if c.ReadBackoffMS < 0 {
		return fmt.Errorf("READ_BACKOFF_MS must not be negative, got %d", c.ReadBackoffMS)
	}
	if c.MaxLoopCount <= 0 {
		return fmt.Errorf("MAX_LOOP_COUNT must be positive, got %d", c.MaxLoopCount)
	}
	if c.UTCOffsetHours < -12 || c.UTCOffsetHours > 14 {
		return fmt.Errorf("UTC_OFFSET_HOURS must be -12..14, got %g", c.UTCOffsetHours)
	}
	if !slices.Contains(displayFunctions, c.DisplayFunction) {
		return fmt.Errorf("DISPLAY_FUNCTION must be one of %v, got %q", displayFunctions, c.DisplayFunction)
	}
	if c.MQTTBroker != "" && c.MQTTClientID == "" {
		return fmt.Errorf("MQTT_CLIENT_ID is required when MQTT_BROKER is set")
	}
	if c.NATSURL != "" && c.NATSSubject == "" {
		return fmt.Errorf("NATS_SUBJECT is required when NATS_URL is set")
	}
	if c.WebServerPort < 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT must be 0-65535, got %d", c.WebServerPort)
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
