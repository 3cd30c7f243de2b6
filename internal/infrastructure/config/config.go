package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Gray Logic Grow.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Transport TransportConfig `yaml:"transport"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Entities  EntitiesConfig  `yaml:"entities"`
	ActionLog ActionLogConfig `yaml:"actionlog"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	API       APIConfig       `yaml:"api"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TransportConfig describes the link to the embedded controller.
type TransportConfig struct {
	// Address is the controller endpoint.
	// Supported formats:
	//   - "serial:///dev/ttyACM0" or a bare device path (serial port)
	//   - "tcp://192.168.1.50:4001" (ser2net or similar bridge)
	Address string `yaml:"address"`

	// BaudRate is the serial symbol rate. Ignored for TCP endpoints.
	// Default: 9600
	BaudRate int `yaml:"baud_rate"`

	// Timeout bounds a single open+write+close cycle.
	// Default: 5s
	Timeout time.Duration `yaml:"timeout"`

	// SettleDelay is how long to wait after opening the port before writing.
	// Many boards reset when the port is opened. Default: 0
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// ScheduleConfig locates the schedule description and controls daemon planning.
type ScheduleConfig struct {
	// File is the YAML schedule file listing action requests.
	File string `yaml:"file"`

	// PlanCron is a standard 5-field cron expression deciding when the daemon
	// resolves the schedule for the following window. Default: "0 0 * * *"
	PlanCron string `yaml:"plan_cron"`
}

// EntitiesConfig selects the entity registry source.
type EntitiesConfig struct {
	// Source is "static" (use Static) or "database" (entities table).
	Source string   `yaml:"source"`
	Static []string `yaml:"static"`
}

// ActionLogConfig contains durable action log settings.
type ActionLogConfig struct {
	// Dir holds one CSV file per entity.
	Dir string `yaml:"dir"`

	// Database enables the SQLite action_log table as an additional sink.
	Database bool `yaml:"database"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// KafkaConfig contains Kafka action event stream settings.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Acks    int      `yaml:"acks"`
}

// APIConfig contains the read-only status API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// Entity registry sources.
const (
	EntitySourceStatic   = "static"
	EntitySourceDatabase = "database"
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GROWLOGIC_SECTION_KEY
// For example: GROWLOGIC_DATABASE_PATH, GROWLOGIC_TRANSPORT_ADDRESS
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "grow-001",
			Name:     "Gray Logic Grow",
			Timezone: "Local",
		},
		Database: DatabaseConfig{
			Path:        "./data/growlogic.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Transport: TransportConfig{
			Address:  "serial:///dev/ttyACM0",
			BaudRate: 9600,
			Timeout:  5 * time.Second,
		},
		Schedule: ScheduleConfig{
			File:     "configs/schedule.yaml",
			PlanCron: "0 0 * * *",
		},
		Entities: EntitiesConfig{
			Source: EntitySourceStatic,
		},
		ActionLog: ActionLogConfig{
			Dir:      "./data/logs",
			Database: true,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "growlogic",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Kafka: KafkaConfig{
			Topic: "grow.actions",
			Acks:  1,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GROWLOGIC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("GROWLOGIC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Transport
	if v := os.Getenv("GROWLOGIC_TRANSPORT_ADDRESS"); v != "" {
		cfg.Transport.Address = v
	}
	if v := os.Getenv("GROWLOGIC_TRANSPORT_BAUD_RATE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Transport.BaudRate = n
		}
	}

	// Schedule
	if v := os.Getenv("GROWLOGIC_SCHEDULE_FILE"); v != "" {
		cfg.Schedule.File = v
	}

	// Action log
	if v := os.Getenv("GROWLOGIC_ACTIONLOG_DIR"); v != "" {
		cfg.ActionLog.Dir = v
	}

	// MQTT
	if v := os.Getenv("GROWLOGIC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GROWLOGIC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GROWLOGIC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("GROWLOGIC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Kafka
	if v := os.Getenv("GROWLOGIC_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("site.timezone %q is not a known zone", c.Site.Timezone))
	}

	if c.Transport.Address == "" {
		errs = append(errs, "transport.address is required")
	}
	if c.Transport.BaudRate <= 0 {
		errs = append(errs, "transport.baud_rate must be positive")
	}
	if c.Transport.Timeout <= 0 {
		errs = append(errs, "transport.timeout must be positive")
	}
	if c.Transport.SettleDelay < 0 {
		errs = append(errs, "transport.settle_delay cannot be negative")
	}

	switch c.Entities.Source {
	case EntitySourceStatic:
		if len(c.Entities.Static) == 0 {
			errs = append(errs, "entities.static must list at least one entity")
		}
	case EntitySourceDatabase:
		if c.Database.Path == "" {
			errs = append(errs, "database.path is required when entities.source is database")
		}
	default:
		errs = append(errs, "entities.source must be static or database")
	}

	if c.ActionLog.Dir == "" {
		errs = append(errs, "actionlog.dir is required")
	}
	if c.ActionLog.Database && c.Database.Path == "" {
		errs = append(errs, "database.path is required when actionlog.database is enabled")
	}

	if c.MQTT.Enabled && (c.MQTT.QoS < 0 || c.MQTT.QoS > 2) {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, "kafka.brokers must list at least one broker")
		}
		if c.Kafka.Topic == "" {
			errs = append(errs, "kafka.topic is required")
		}
	}
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Location resolves the site timezone. An empty value or "Local" means the
// host's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Site.Timezone == "" || c.Site.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Site.Timezone)
}

// DatabaseRequired reports whether any configured component needs SQLite.
func (c *Config) DatabaseRequired() bool {
	return c.ActionLog.Database || c.Entities.Source == EntitySourceDatabase
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
