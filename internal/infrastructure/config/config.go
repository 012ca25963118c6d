package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is the calendar date format used in configuration and progress files.
const DateLayout = "2006-01-02"

// Sink backends.
const (
	SinkInfluxDB        = "influxdb"
	SinkVictoriaMetrics = "victoriametrics"
)

// tzOffsetPattern matches a "±HHMM" timezone offset as used by the device.
var tzOffsetPattern = regexp.MustCompile(`^[+-]\d{4}$`)

// Config is the root configuration structure for healthbridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	Backfill BackfillConfig `yaml:"backfill"`
	Daemon   DaemonConfig   `yaml:"daemon"`
	Sink     SinkConfig     `yaml:"sink"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Journal  JournalConfig  `yaml:"journal"`
	Status   StatusConfig   `yaml:"status"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DeviceConfig contains connection settings for the Health Auto Export query server.
type DeviceConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`

	// Retries is the total number of attempts per query, including the first.
	Retries    int           `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`

	// Metrics is a comma-separated list of metric names. Empty means all.
	Metrics string `yaml:"metrics"`
}

// BackfillConfig contains the import range and engine settings.
type BackfillConfig struct {
	// Start and End are inclusive calendar dates (YYYY-MM-DD).
	// An empty End means today.
	Start string `yaml:"start"`
	End   string `yaml:"end"`

	// TZOffset is the "±HHMM" offset used to build query windows.
	// Empty means the local offset at startup.
	TZOffset string `yaml:"tz_offset"`

	ProgressFile string        `yaml:"progress_file"`
	RequestDelay time.Duration `yaml:"request_delay"`
	DryRun       bool          `yaml:"dry_run"`
}

// DaemonConfig contains daemon loop settings.
type DaemonConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

// SinkConfig selects and configures the time-series database.
type SinkConfig struct {
	Backend         string                `yaml:"backend"`
	InfluxDB        InfluxDBConfig        `yaml:"influxdb"`
	VictoriaMetrics VictoriaMetricsConfig `yaml:"victoriametrics"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// VictoriaMetricsConfig contains VictoriaMetrics connection settings.
type VictoriaMetricsConfig struct {
	URL string `yaml:"url"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled bool             `yaml:"enabled"`
	Broker  MQTTBrokerConfig `yaml:"broker"`
	Auth    MQTTAuthConfig   `yaml:"auth"`
	QoS     int              `yaml:"qos"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// JournalConfig contains settings for the SQLite run journal.
type JournalConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// StatusConfig contains the daemon status endpoint settings.
type StatusConfig struct {
	// Listen is the host:port for the status HTTP server. Empty disables it.
	Listen string `yaml:"listen"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HEALTHBRIDGE_SECTION_KEY
// For example: HEALTHBRIDGE_DEVICE_HOST, HEALTHBRIDGE_INFLUXDB_TOKEN
//
// The result is not validated; callers apply CLI overrides first and then
// call Validate.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded configuration
//   - error: If file cannot be read or parsed
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to defaults plus
// environment overrides when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg = defaultConfig()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Port:         9000,
			QueryTimeout: 60 * time.Second,
			ProbeTimeout: 5 * time.Second,
			Retries:      3,
			RetryDelay:   5 * time.Second,
		},
		Backfill: BackfillConfig{
			Start:        "2015-01-01",
			ProgressFile: "./data/import_progress.json",
			RequestDelay: 500 * time.Millisecond,
		},
		Daemon: DaemonConfig{
			PollInterval: 30 * time.Second,
		},
		Sink: SinkConfig{
			Backend: SinkInfluxDB,
			InfluxDB: InfluxDBConfig{
				Org:    "homeassistant",
				Bucket: "health",
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "healthbridge",
			},
			QoS: 1,
		},
		Journal: JournalConfig{
			Path:        "./data/journal.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HEALTHBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Device
	if v := os.Getenv("HEALTHBRIDGE_DEVICE_HOST"); v != "" {
		cfg.Device.Host = v
	}
	if v := os.Getenv("HEALTHBRIDGE_DEVICE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Device.Port = port
		}
	}

	// Backfill
	if v := os.Getenv("HEALTHBRIDGE_PROGRESS_FILE"); v != "" {
		cfg.Backfill.ProgressFile = v
	}

	// Daemon
	if v := os.Getenv("HEALTHBRIDGE_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Daemon.PollInterval = d
		}
	}

	// Sink
	if v := os.Getenv("HEALTHBRIDGE_INFLUXDB_URL"); v != "" {
		cfg.Sink.InfluxDB.URL = v
	}
	if v := os.Getenv("HEALTHBRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.Sink.InfluxDB.Token = v
	}
	if v := os.Getenv("HEALTHBRIDGE_INFLUXDB_ORG"); v != "" {
		cfg.Sink.InfluxDB.Org = v
	}
	if v := os.Getenv("HEALTHBRIDGE_INFLUXDB_BUCKET"); v != "" {
		cfg.Sink.InfluxDB.Bucket = v
	}
	if v := os.Getenv("HEALTHBRIDGE_VICTORIAMETRICS_URL"); v != "" {
		cfg.Sink.VictoriaMetrics.URL = v
	}

	// MQTT
	if v := os.Getenv("HEALTHBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HEALTHBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HEALTHBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of all validation failures, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Device validation
	if c.Device.Host == "" {
		errs = append(errs, "device.host is required (set HEALTHBRIDGE_DEVICE_HOST or --host)")
	}
	if c.Device.Port < 1 || c.Device.Port > 65535 {
		errs = append(errs, "device.port must be between 1 and 65535")
	}
	if c.Device.Retries < 1 {
		errs = append(errs, "device.retries must be at least 1")
	}
	if c.Device.QueryTimeout <= 0 {
		errs = append(errs, "device.query_timeout must be positive")
	}
	if c.Device.ProbeTimeout <= 0 {
		errs = append(errs, "device.probe_timeout must be positive")
	}

	// Backfill validation
	start, startErr := c.StartDate()
	if startErr != nil {
		errs = append(errs, startErr.Error())
	}
	end, endErr := c.EndDate(time.Now())
	if endErr != nil {
		errs = append(errs, endErr.Error())
	}
	if startErr == nil && endErr == nil && end.Before(start) {
		errs = append(errs, "backfill.end must not be before backfill.start")
	}
	if c.Backfill.TZOffset != "" && !tzOffsetPattern.MatchString(c.Backfill.TZOffset) {
		errs = append(errs, "backfill.tz_offset must look like +HHMM or -HHMM")
	}
	if c.Backfill.ProgressFile == "" {
		errs = append(errs, "backfill.progress_file is required")
	}
	if c.Backfill.RequestDelay < 0 {
		errs = append(errs, "backfill.request_delay must not be negative")
	}

	// Daemon validation
	if c.Daemon.PollInterval < time.Second {
		errs = append(errs, "daemon.poll_interval must be at least 1s")
	}

	// Sink validation - credentials are only needed when something is written
	if !c.Backfill.DryRun {
		switch c.Sink.Backend {
		case SinkInfluxDB:
			if c.Sink.InfluxDB.URL == "" {
				errs = append(errs, "sink.influxdb.url is required (set HEALTHBRIDGE_INFLUXDB_URL)")
			}
			if c.Sink.InfluxDB.Token == "" {
				errs = append(errs, "sink.influxdb.token is required (set HEALTHBRIDGE_INFLUXDB_TOKEN)")
			}
			if c.Sink.InfluxDB.Bucket == "" {
				errs = append(errs, "sink.influxdb.bucket is required")
			}
		case SinkVictoriaMetrics:
			if c.Sink.VictoriaMetrics.URL == "" {
				errs = append(errs, "sink.victoriametrics.url is required")
			}
		default:
			errs = append(errs, fmt.Sprintf("sink.backend %q is not supported (use %s or %s)",
				c.Sink.Backend, SinkInfluxDB, SinkVictoriaMetrics))
		}
	}

	// MQTT validation
	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
	}

	// Journal validation
	if c.Journal.Enabled && c.Journal.Path == "" {
		errs = append(errs, "journal.path is required when the journal is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// StartDate returns the parsed inclusive start of the import range.
func (c *Config) StartDate() (time.Time, error) {
	d, err := time.Parse(DateLayout, c.Backfill.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("backfill.start must be YYYY-MM-DD: %w", err)
	}
	return d, nil
}

// EndDate returns the parsed inclusive end of the import range.
// An empty value resolves to the calendar date of now.
func (c *Config) EndDate(now time.Time) (time.Time, error) {
	if c.Backfill.End == "" {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.Parse(DateLayout, c.Backfill.End)
	if err != nil {
		return time.Time{}, fmt.Errorf("backfill.end must be YYYY-MM-DD: %w", err)
	}
	return d, nil
}

// ResolvedTZOffset returns the configured offset, or the local offset at
// now formatted as ±HHMM when none is configured.
func (c *Config) ResolvedTZOffset(now time.Time) string {
	if c.Backfill.TZOffset != "" {
		return c.Backfill.TZOffset
	}
	return now.Format("-0700")
}

// DeviceAddress returns the device host:port.
func (c *Config) DeviceAddress() string {
	return fmt.Sprintf("%s:%d", c.Device.Host, c.Device.Port)
}
