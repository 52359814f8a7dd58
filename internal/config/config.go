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

	"go.uber.org/multierr"

	"github.com/relabs-tech/dronetracker/internal/geodesy"
	"github.com/relabs-tech/dronetracker/internal/orientation"
	"github.com/relabs-tech/dronetracker/internal/overlay"
	"github.com/relabs-tech/dronetracker/internal/projection"
)

// Orientation source modes.
const (
	OrientationModeMock = "mock"
	OrientationModeIMU  = "imu"
)

// Config holds all application configuration values.
type Config struct {
	// Logging
	LogLevel string

	// MQTT
	MQTTBroker              string
	MQTTClientIDTracker     string
	MQTTClientIDOrientation string
	MQTTClientIDGPS         string
	MQTTClientIDConsole     string
	MQTTClientIDDisplay     string

	// Topics
	TopicOrientation string
	TopicLocation    string
	// TopicDrones is a prefix: drones publish to TopicDrones + "/<id>".
	TopicDrones  string
	TopicOverlay string

	// GPS
	GPSSerialPort string
	GPSBaudRate   int

	// Orientation source
	OrientationMode           string
	OrientationSampleInterval int // milliseconds
	IMUSPIDevice              string
	IMUCSPin                  string
	IMUCalibrate              bool
	MockBasePose              orientation.Pose

	// Overlay
	ViewportWidth  int
	ViewportHeight int
	ScreenRotation orientation.ScreenRotation
	NearPlane      float64
	FarPlane       float64
	WorldFrame     overlay.WorldFrame
	GeodesyModel   geodesy.Model
	Targets        []overlay.Target
	DroneTTL       time.Duration

	// Web Server
	WebServerPort int
	WebDir        string

	// Display
	DisplayUpdateInterval int     // milliseconds
	DisplayRangeMeters    float64 // radar radius
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for keys the file does not set.
func Default() *Config {
	return &Config{
		LogLevel: "info",

		MQTTBroker:              "tcp://localhost:1883",
		MQTTClientIDTracker:     "dronetracker-tracker",
		MQTTClientIDOrientation: "dronetracker-orientation",
		MQTTClientIDGPS:         "dronetracker-gps",
		MQTTClientIDConsole:     "dronetracker-console",
		MQTTClientIDDisplay:     "dronetracker-display",

		TopicOrientation: "dronetracker/orientation",
		TopicLocation:    "dronetracker/location",
		TopicDrones:      "dronetracker/drones",
		TopicOverlay:     "dronetracker/overlay",

		GPSSerialPort: "/dev/serial0",
		GPSBaudRate:   9600,

		OrientationMode:           OrientationModeMock,
		OrientationSampleInterval: 50,
		IMUSPIDevice:              "/dev/spidev0.0",
		IMUCSPin:                  "8",

		ViewportWidth:  1080,
		ViewportHeight: 1920,
		ScreenRotation: orientation.Rotation0,
		NearPlane:      projection.DefaultNear,
		FarPlane:       projection.DefaultFar,
		WorldFrame:     overlay.FrameHorizon,
		GeodesyModel:   geodesy.TangentPlane,
		DroneTTL:       30 * time.Second,

		WebServerPort: 8080,
		WebDir:        "web",

		DisplayUpdateInterval: 500,
		DisplayRangeMeters:    500,
	}
}

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
// starting with '#' are skipped. Keys may repeat only where noted (TARGET).
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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	case "LOG_LEVEL":
		c.LogLevel = value

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_TRACKER":
		c.MQTTClientIDTracker = value
	case "MQTT_CLIENT_ID_ORIENTATION":
		c.MQTTClientIDOrientation = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_ORIENTATION":
		c.TopicOrientation = value
	case "TOPIC_LOCATION":
		c.TopicLocation = value
	case "TOPIC_DRONES":
		c.TopicDrones = strings.TrimSuffix(value, "/")
	case "TOPIC_OVERLAY":
		c.TopicOverlay = value

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate

	// Orientation source
	case "ORIENTATION_MODE":
		mode := strings.ToLower(value)
		if mode != OrientationModeMock && mode != OrientationModeIMU {
			return fmt.Errorf("ORIENTATION_MODE must be %q or %q, got %q", OrientationModeMock, OrientationModeIMU, value)
		}
		c.OrientationMode = mode
	case "ORIENTATION_SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ORIENTATION_SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.OrientationSampleInterval = interval
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_CALIBRATE":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_CALIBRATE %q: %w", value, err)
		}
		c.IMUCalibrate = b
	case "MOCK_ROLL", "MOCK_PITCH", "MOCK_YAW":
		deg, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		switch key {
		case "MOCK_ROLL":
			c.MockBasePose.Roll = deg
		case "MOCK_PITCH":
			c.MockBasePose.Pitch = deg
		default:
			c.MockBasePose.Yaw = deg
		}

	// Overlay
	case "VIEWPORT_WIDTH":
		w, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid VIEWPORT_WIDTH %q: %w", value, err)
		}
		c.ViewportWidth = w
	case "VIEWPORT_HEIGHT":
		h, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid VIEWPORT_HEIGHT %q: %w", value, err)
		}
		c.ViewportHeight = h
	case "SCREEN_ROTATION":
		deg, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SCREEN_ROTATION %q: %w", value, err)
		}
		rot, err := orientation.ParseScreenRotation(deg)
		if err != nil {
			return err
		}
		c.ScreenRotation = rot
	case "NEAR_PLANE":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid NEAR_PLANE %q: %w", value, err)
		}
		c.NearPlane = v
	case "FAR_PLANE":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid FAR_PLANE %q: %w", value, err)
		}
		c.FarPlane = v
	case "WORLD_FRAME":
		f, err := overlay.ParseWorldFrame(value)
		if err != nil {
			return err
		}
		c.WorldFrame = f
	case "GEODESY_MODEL":
		m, err := geodesy.ParseModel(value)
		if err != nil {
			return err
		}
		c.GeodesyModel = m
	case "TARGET":
		t, err := ParseTarget(value)
		if err != nil {
			return err
		}
		c.Targets = append(c.Targets, t)
	case "DRONE_TTL":
		seconds, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DRONE_TTL %q: %w", value, err)
		}
		c.DroneTTL = time.Duration(seconds) * time.Second

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port
	case "WEB_DIR":
		c.WebDir = value

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval
	case "DISPLAY_RANGE_METERS":
		r, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_RANGE_METERS %q: %w", value, err)
		}
		c.DisplayRangeMeters = r

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// ParseTarget parses "id,name,lat,lon[,alt]".
func ParseTarget(value string) (overlay.Target, error) {
	fields := strings.Split(value, ",")
	if len(fields) != 4 && len(fields) != 5 {
		return overlay.Target{}, fmt.Errorf("TARGET must be id,name,lat,lon[,alt], got %q", value)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if fields[0] == "" {
		return overlay.Target{}, fmt.Errorf("TARGET %q has an empty id", value)
	}

	coords := make([]float64, len(fields)-2)
	for i, f := range fields[2:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return overlay.Target{}, fmt.Errorf("invalid TARGET coordinate %q: %w", f, err)
		}
		coords[i] = v
	}

	loc := geodesy.GeoPoint{Latitude: coords[0], Longitude: coords[1]}
	if len(coords) == 3 {
		loc.Altitude = coords[2]
		loc.HasAltitude = true
	}
	if err := loc.Validate(); err != nil {
		return overlay.Target{}, fmt.Errorf("TARGET %q: %w", fields[0], err)
	}
	return overlay.Target{ID: fields[0], Name: fields[1], Location: loc}, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error
	if c.MQTTBroker == "" {
		err = multierr.Append(err, fmt.Errorf("MQTT_BROKER is required"))
	}
	if c.GPSBaudRate <= 0 {
		err = multierr.Append(err, fmt.Errorf("GPS_BAUD_RATE must be positive, got %d", c.GPSBaudRate))
	}
	if c.OrientationSampleInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("ORIENTATION_SAMPLE_INTERVAL must be positive, got %d", c.OrientationSampleInterval))
	}
	if c.OrientationMode == OrientationModeIMU && c.IMUSPIDevice == "" {
		err = multierr.Append(err, fmt.Errorf("IMU_SPI_DEVICE is required in imu mode"))
	}
	if _, perr := projection.Build(c.Viewport(), c.NearPlane, c.FarPlane); perr != nil {
		err = multierr.Append(err, perr)
	}
	if c.DroneTTL < 0 {
		err = multierr.Append(err, fmt.Errorf("DRONE_TTL must not be negative"))
	}
	if c.WebServerPort <= 0 || c.WebServerPort > 65535 {
		err = multierr.Append(err, fmt.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", c.WebServerPort))
	}
	if c.DisplayUpdateInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive, got %d", c.DisplayUpdateInterval))
	}
	if c.DisplayRangeMeters <= 0 {
		err = multierr.Append(err, fmt.Errorf("DISPLAY_RANGE_METERS must be positive, got %v", c.DisplayRangeMeters))
	}
	seen := map[string]bool{}
	for _, t := range c.Targets {
		if seen[t.ID] {
			err = multierr.Append(err, fmt.Errorf("duplicate TARGET id %q", t.ID))
		}
		seen[t.ID] = true
	}
	return err
}

// Viewport returns the configured initial viewport.
func (c *Config) Viewport() projection.Viewport {
	return projection.Viewport{Width: c.ViewportWidth, Height: c.ViewportHeight}
}

// DroneTopic returns the topic a drone with the given id publishes to.
func (c *Config) DroneTopic(id string) string {
	return c.TopicDrones + "/" + id
}

// DroneTopicFilter returns the MQTT filter matching every drone topic.
func (c *Config) DroneTopicFilter() string {
	return c.TopicDrones + "/+"
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once so only the first call loads the file.
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
