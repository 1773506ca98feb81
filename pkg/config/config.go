package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/unklstewy/flightpath/pkg/tracking"
)

// Config represents the complete application configuration.
type Config struct {
	Serial     SerialConfig     `json:"serial" yaml:"serial"`
	Replay     ReplayConfig     `json:"replay" yaml:"replay"`
	Trajectory TrajectoryConfig `json:"trajectory" yaml:"trajectory"`
	Parser     ParserConfig     `json:"parser" yaml:"parser"`
	Display    DisplayConfig    `json:"display" yaml:"display"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
	Metrics    MetricsConfig    `json:"metrics" yaml:"metrics"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
}

// SerialConfig contains the flight computer link settings.
type SerialConfig struct {
	// Port is the serial device (e.g. "/dev/ttyUSB0"); empty asks the user
	Port string `json:"port" yaml:"port"`

	// BaudRate is the line speed (default: 115200)
	BaudRate int `json:"baud_rate" yaml:"baud_rate"`

	// ReadTimeoutMillis bounds each blocking read (default: 100)
	ReadTimeoutMillis int `json:"read_timeout_ms" yaml:"read_timeout_ms"`

	// QueueSize is the number of lines buffered between the reader and the
	// tick loop. Lines arriving while the buffer is full are dropped.
	QueueSize int `json:"queue_size" yaml:"queue_size"`
}

// ReadTimeout returns the read timeout as a duration.
func (c SerialConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMillis) * time.Millisecond
}

// ReplayConfig contains settings for replaying a recorded telemetry log
// instead of reading the serial port.
type ReplayConfig struct {
	// File is the log to replay; empty means read the serial port
	File string `json:"file" yaml:"file"`

	// PaceMillis is the delay between replayed lines (default: 50)
	PaceMillis int `json:"pace_ms" yaml:"pace_ms"`
}

// Pace returns the replay delay as a duration.
func (c ReplayConfig) Pace() time.Duration {
	return time.Duration(c.PaceMillis) * time.Millisecond
}

// TrajectoryConfig contains dead-reckoning and store settings.
type TrajectoryConfig struct {
	// MaxPoints is the trajectory window size (default: 1000)
	MaxPoints int `json:"max_points" yaml:"max_points"`

	// ConstantSpeed is the assumed forward speed in m/s (default: 1.0)
	ConstantSpeed float64 `json:"constant_speed" yaml:"constant_speed"`

	// DtPolicy handles repeated or decreasing timestamps: "raw", "clamp" or "skip"
	// raw: use the timestamp difference as-is (default)
	// clamp: raise any step below min_dt to min_dt
	// skip: no displacement for zero or negative steps
	DtPolicy string `json:"dt_policy" yaml:"dt_policy"`

	// MinDt is the floor used by the clamp policy, in seconds (default: 0.05)
	MinDt float64 `json:"min_dt" yaml:"min_dt"`
}

// Policy returns the parsed dt policy.
func (c TrajectoryConfig) Policy() (tracking.DtPolicy, error) {
	return tracking.ParseDtPolicy(c.DtPolicy)
}

// ParserConfig contains telemetry parsing settings.
type ParserConfig struct {
	// RejectNonFinite discards frames containing NaN or Inf values
	RejectNonFinite bool `json:"reject_non_finite" yaml:"reject_non_finite"`

	// DiagnosticsPerSecond limits log entries for discarded lines (default: 2)
	// Negative disables them.
	DiagnosticsPerSecond float64 `json:"diagnostics_per_second" yaml:"diagnostics_per_second"`
}

// DisplayConfig contains terminal front end settings.
type DisplayConfig struct {
	// RefreshHz is the tick and redraw rate (default: 20)
	RefreshHz int `json:"refresh_hz" yaml:"refresh_hz"`

	// LinesPerTick caps how many queued lines one tick may consume (default: 1)
	// 1 reproduces one frame per tick; larger values catch up after stalls.
	LinesPerTick int `json:"lines_per_tick" yaml:"lines_per_tick"`

	// Azimuth is the initial camera azimuth in degrees (default: -60)
	Azimuth float64 `json:"azimuth" yaml:"azimuth"`

	// Elevation is the initial camera elevation in degrees (default: 30)
	Elevation float64 `json:"elevation" yaml:"elevation"`

	// RotateStep is the camera step per arrow key press in degrees (default: 5)
	RotateStep float64 `json:"rotate_step" yaml:"rotate_step"`

	// ShowLogs shows the log pane in the trajectory client
	ShowLogs bool `json:"show_logs" yaml:"show_logs"`
}

// Interval returns the tick period.
func (c DisplayConfig) Interval() time.Duration {
	if c.RefreshHz <= 0 {
		return 50 * time.Millisecond
	}
	return time.Second / time.Duration(c.RefreshHz)
}

// LoggingConfig contains log file settings.
// Both front ends own the terminal, so logs always go to a file.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error (default: info)
	Level string `json:"level" yaml:"level"`

	// File is the log file path (default: "flightpath.log")
	File string `json:"file" yaml:"file"`

	// MaxSizeMB is the size at which the file is rotated (default: 10)
	MaxSizeMB int `json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of rotated files kept (default: 3)
	MaxBackups int `json:"max_backups" yaml:"max_backups"`

	// MaxAgeDays removes rotated files older than this; 0 keeps them
	MaxAgeDays int `json:"max_age_days" yaml:"max_age_days"`
}

// MetricsConfig contains Prometheus endpoint settings.
type MetricsConfig struct {
	// Enabled starts the /metrics HTTP endpoint
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Listen is the endpoint address (default: "127.0.0.1:9105")
	Listen string `json:"listen" yaml:"listen"`
}

// JournalConfig controls the optional raw frame journal.
type JournalConfig struct {
	// Enabled records every accepted telemetry frame in PostgreSQL
	Enabled bool `json:"enabled" yaml:"enabled"`

	// BufferSize is the number of frames queued for the writer (default: 4096)
	// Frames arriving while the queue is full are dropped from the journal.
	BufferSize int `json:"buffer_size" yaml:"buffer_size"`

	// BatchSize is the number of frames written per COPY (default: 200)
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// FlushIntervalMillis bounds how long a partial batch waits (default: 1000)
	FlushIntervalMillis int `json:"flush_interval_ms" yaml:"flush_interval_ms"`

	// RetentionHours prunes journaled frames older than this at startup; 0 keeps all
	RetentionHours int `json:"retention_hours" yaml:"retention_hours"`

	// Database contains the connection settings
	Database DatabaseConfig `json:"database" yaml:"database"`
}

// FlushInterval returns the partial batch timeout as a duration.
func (c JournalConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMillis) * time.Millisecond
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	// Host is the database server hostname
	Host string `json:"host" yaml:"host"`

	// Port is the database server port
	Port int `json:"port" yaml:"port"`

	// Database is the database name
	Database string `json:"database" yaml:"database"`

	// Username for database authentication
	Username string `json:"username" yaml:"username"`

	// Password for database authentication (should be loaded from environment)
	Password string `json:"password" yaml:"password"`

	// SSLMode for PostgreSQL connections (disable, require, verify-ca, verify-full)
	SSLMode string `json:"ssl_mode" yaml:"ssl_mode"`

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int `json:"max_open_conns" yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int `json:"max_idle_conns" yaml:"max_idle_conns"`
}

// Load reads configuration from a JSON file, or YAML when the path ends in
// .yaml or .yml. If the file doesn't exist, returns a default configuration.
// Fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg.applyEnvironmentOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	unmarshal := json.Unmarshal
	if isYAML(path) {
		unmarshal = yaml.Unmarshal
	}
	if err := unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	return cfg, nil
}

// Save writes the configuration in the format implied by the file extension.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Serial: SerialConfig{
			BaudRate:          115200,
			ReadTimeoutMillis: 100,
			QueueSize:         256,
		},
		Replay: ReplayConfig{
			PaceMillis: 50,
		},
		Trajectory: TrajectoryConfig{
			MaxPoints:     1000,
			ConstantSpeed: 1.0,
			DtPolicy:      "raw",
			MinDt:         0.05,
		},
		Parser: ParserConfig{
			RejectNonFinite:      false,
			DiagnosticsPerSecond: 2,
		},
		Display: DisplayConfig{
			RefreshHz:    20,
			LinesPerTick: 1,
			Azimuth:      -60,
			Elevation:    30,
			RotateStep:   5,
			ShowLogs:     true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "flightpath.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9105",
		},
		Journal: JournalConfig{
			Enabled:             false,
			BufferSize:          4096,
			BatchSize:           200,
			FlushIntervalMillis: 1000,
			Database: DatabaseConfig{
				Host:         "localhost",
				Port:         5432,
				Database:     "flightpath",
				Username:     "flightpath",
				SSLMode:      "disable",
				MaxOpenConns: 4,
				MaxIdleConns: 2,
			},
		},
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Serial.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("serial.baud_rate must be positive, got %d", c.Serial.BaudRate))
	}
	if c.Serial.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("serial.queue_size must not be negative, got %d", c.Serial.QueueSize))
	}
	if c.Replay.PaceMillis < 0 {
		errs = append(errs, fmt.Errorf("replay.pace_ms must not be negative, got %d", c.Replay.PaceMillis))
	}
	if c.Trajectory.MaxPoints <= 0 {
		errs = append(errs, fmt.Errorf("trajectory.max_points must be positive, got %d", c.Trajectory.MaxPoints))
	}
	if c.Trajectory.ConstantSpeed <= 0 {
		errs = append(errs, fmt.Errorf("trajectory.constant_speed must be positive, got %g", c.Trajectory.ConstantSpeed))
	}
	if _, err := c.Trajectory.Policy(); err != nil {
		errs = append(errs, fmt.Errorf("trajectory.dt_policy: %w", err))
	}
	if c.Trajectory.MinDt < 0 {
		errs = append(errs, fmt.Errorf("trajectory.min_dt must not be negative, got %g", c.Trajectory.MinDt))
	}
	if c.Display.RefreshHz <= 0 || c.Display.RefreshHz > 200 {
		errs = append(errs, fmt.Errorf("display.refresh_hz must be in 1..200, got %d", c.Display.RefreshHz))
	}
	if c.Display.LinesPerTick <= 0 {
		errs = append(errs, fmt.Errorf("display.lines_per_tick must be positive, got %d", c.Display.LinesPerTick))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level))
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errs = append(errs, errors.New("metrics.listen is required when metrics are enabled"))
	}
	if c.Journal.Enabled && c.Journal.Database.Host == "" {
		errs = append(errs, errors.New("journal.database.host is required when the journal is enabled"))
	}

	return errors.Join(errs...)
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
// This allows sensitive data like passwords to be kept out of config files.
func (c *Config) applyEnvironmentOverrides() {
	if port := os.Getenv("FLIGHTPATH_SERIAL_PORT"); port != "" {
		c.Serial.Port = port
	}
	if baud := os.Getenv("FLIGHTPATH_BAUD_RATE"); baud != "" {
		if n, err := strconv.Atoi(baud); err == nil {
			c.Serial.BaudRate = n
		}
	}
	if dbPassword := os.Getenv("FLIGHTPATH_DB_PASSWORD"); dbPassword != "" {
		c.Journal.Database.Password = dbPassword
	}
	if level := os.Getenv("FLIGHTPATH_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}
