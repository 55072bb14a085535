// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/relabs-tech/attitude_link/internal/link"
	"github.com/relabs-tech/attitude_link/internal/orientation"
)

// Body is one tracked body and the sensor trust it runs with.
type Body struct {
	Name    string
	Variant orientation.Variant
}

// Config holds all application configuration values.
type Config struct {
	// Link
	LinkTransport     link.Kind
	LinkSerialPort    string
	LinkBaudRate      int
	LinkTCPAddr       string
	LinkProtocol      link.Protocol
	LinkReadTimeout   time.Duration
	LinkRetryInterval time.Duration
	LinkIMUIndex      int

	// Estimator
	Bodies             []Body
	BlendWeight        float64
	CalibrationSamples int
	Remap              orientation.Remap

	// Consumer tick
	TickInterval time.Duration

	// MQTT (empty broker disables publishing)
	MQTTBroker       string
	MQTTClientID     string
	TopicOrientation string
	TopicCommand     string
	TopicIMURaw      string // empty disables the raw stream

	// Web Server (0 disables)
	WebServerPort int
}

// Default returns the configuration used for keys missing from the file.
func Default() *Config {
	return &Config{
		LinkTransport:     link.KindSerial,
		LinkSerialPort:    "/dev/ttyUSB0",
		LinkBaudRate:      57600,
		LinkTCPAddr:       "99.22.0.1:9922",
		LinkProtocol:      link.ProtocolStream,
		LinkReadTimeout:   20 * time.Second,
		LinkRetryInterval: 0,
		LinkIMUIndex:      0,

		Bodies: []Body{
			{Name: "both", Variant: orientation.Both},
			{Name: "gyro", Variant: orientation.GyroOnly},
			{Name: "accel", Variant: orientation.AccelOnly},
		},
		BlendWeight:        orientation.DefaultBlendWeight,
		CalibrationSamples: orientation.DefaultCalibrationSamples,
		Remap:              orientation.ZUpToYUp,

		TickInterval: 16 * time.Millisecond,

		MQTTClientID:     "attitude-link",
		TopicOrientation: "attitude/orientation",
		TopicCommand:     "attitude/command",
		TopicIMURaw:      "attitude/imu/raw",

		WebServerPort: 8080,
	}
}

// Package-level state for the process-wide configuration. InitGlobal sets it
// once; Get reads it under a read lock.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Default. Blank lines and lines
// starting with # are skipped.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Link
	case "LINK_TRANSPORT":
		c.LinkTransport, err = link.ParseKind(value)
	case "LINK_SERIAL_PORT":
		c.LinkSerialPort = value
	case "LINK_BAUD_RATE":
		c.LinkBaudRate, err = parseInt(key, value)
	case "LINK_TCP_ADDR":
		c.LinkTCPAddr = value
	case "LINK_PROTOCOL":
		c.LinkProtocol, err = link.ParseProtocol(value)
	case "LINK_READ_TIMEOUT":
		c.LinkReadTimeout, err = parseMillis(key, value)
	case "LINK_RETRY_INTERVAL":
		c.LinkRetryInterval, err = parseMillis(key, value)
	case "LINK_IMU_INDEX":
		c.LinkIMUIndex, err = parseInt(key, value)
		if err == nil && (c.LinkIMUIndex < 0 || c.LinkIMUIndex > 1) {
			err = fmt.Errorf("LINK_IMU_INDEX must be 0 or 1, got %d", c.LinkIMUIndex)
		}

	// Estimator
	case "ESTIMATOR_BODIES":
		c.Bodies, err = parseBodies(value)
	case "ESTIMATOR_BLEND_WEIGHT":
		c.BlendWeight, err = strconv.ParseFloat(value, 64)
		if err != nil {
			err = fmt.Errorf("invalid ESTIMATOR_BLEND_WEIGHT %q: %w", value, err)
		} else if !(c.BlendWeight >= 0 && c.BlendWeight <= 1) {
			err = fmt.Errorf("ESTIMATOR_BLEND_WEIGHT must be within 0-1, got %g", c.BlendWeight)
		}
	case "ESTIMATOR_CALIBRATION_SAMPLES":
		c.CalibrationSamples, err = parseInt(key, value)
	case "ESTIMATOR_REMAP":
		c.Remap, err = orientation.ParseRemap(value)

	// Timing
	case "TICK_INTERVAL":
		c.TickInterval, err = parseMillis(key, value)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "TOPIC_ORIENTATION":
		c.TopicOrientation = value
	case "TOPIC_COMMAND":
		c.TopicCommand = value
	case "TOPIC_IMU_RAW":
		c.TopicIMURaw = value

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseMillis(key, value string) (time.Duration, error) {
	ms, err := parseInt(key, value)
	if err != nil {
		return 0, err
	}
	if ms < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %d", key, ms)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// parseBodies reads "name:variant,name:variant". A bare variant names the
// body after itself.
func parseBodies(value string) ([]Body, error) {
	var bodies []Body
	seen := map[string]bool{}
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, variant, ok := strings.Cut(item, ":")
		if !ok {
			variant = name
		}
		name = strings.TrimSpace(name)
		v, err := orientation.ParseVariant(variant)
		if err != nil {
			return nil, fmt.Errorf("ESTIMATOR_BODIES: %w", err)
		}
		if seen[name] {
			return nil, fmt.Errorf("ESTIMATOR_BODIES: duplicate body %q", name)
		}
		seen[name] = true
		bodies = append(bodies, Body{Name: name, Variant: v})
	}
	return bodies, nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	switch c.LinkTransport {
	case link.KindSerial:
		if c.LinkSerialPort == "" {
			return fmt.Errorf("LINK_SERIAL_PORT is required for the serial transport")
		}
		if c.LinkBaudRate <= 0 {
			return fmt.Errorf("LINK_BAUD_RATE is required for the serial transport")
		}
	case link.KindTCP:
		if c.LinkTCPAddr == "" {
			return fmt.Errorf("LINK_TCP_ADDR is required for the tcp transport")
		}
	}
	if len(c.Bodies) == 0 {
		return fmt.Errorf("ESTIMATOR_BODIES must name at least one body")
	}
	if c.CalibrationSamples <= 0 {
		return fmt.Errorf("ESTIMATOR_CALIBRATION_SAMPLES must be positive")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL is required")
	}
	return nil
}

// LinkOptions collects the transport settings.
func (c *Config) LinkOptions() link.Options {
	return link.Options{
		Kind:          c.LinkTransport,
		SerialPort:    c.LinkSerialPort,
		BaudRate:      c.LinkBaudRate,
		TCPAddr:       c.LinkTCPAddr,
		ReadTimeout:   c.LinkReadTimeout,
		RetryInterval: c.LinkRetryInterval,
	}
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
