package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
site:
  id: "tent-a"
  timezone: "UTC"
database:
  path: "/tmp/grow.db"
transport:
  address: "tcp://192.168.1.50:4001"
  baud_rate: 115200
  timeout: 2s
entities:
  source: static
  static: ["plant-01", "plant-02"]
actionlog:
  dir: "/tmp/logs"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "tent-a" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "tent-a")
	}
	if cfg.Transport.Address != "tcp://192.168.1.50:4001" {
		t.Errorf("Transport.Address = %q", cfg.Transport.Address)
	}
	if cfg.Transport.BaudRate != 115200 {
		t.Errorf("Transport.BaudRate = %d, want 115200", cfg.Transport.BaudRate)
	}
	if cfg.Transport.Timeout != 2*time.Second {
		t.Errorf("Transport.Timeout = %v, want 2s", cfg.Transport.Timeout)
	}
	if len(cfg.Entities.Static) != 2 {
		t.Errorf("Entities.Static = %v, want 2 entries", cfg.Entities.Static)
	}
	// Defaults survive partial files
	if cfg.Schedule.PlanCron != "0 0 * * *" {
		t.Errorf("Schedule.PlanCron = %q, want default", cfg.Schedule.PlanCron)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, `
site:
  id: ""
entities:
  static: ["plant-01"]
`)

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty site.id, got nil")
	}
}

func validConfig() *Config {
	cfg := Default()
	cfg.Entities.Static = []string{"plant-01"}
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "missing site ID",
			mutate:  func(c *Config) { c.Site.ID = "" },
			wantErr: "site.id",
		},
		{
			name:    "unknown timezone",
			mutate:  func(c *Config) { c.Site.Timezone = "Mars/Olympus" },
			wantErr: "site.timezone",
		},
		{
			name:    "missing transport address",
			mutate:  func(c *Config) { c.Transport.Address = "" },
			wantErr: "transport.address",
		},
		{
			name:    "zero baud rate",
			mutate:  func(c *Config) { c.Transport.BaudRate = 0 },
			wantErr: "transport.baud_rate",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Transport.Timeout = 0 },
			wantErr: "transport.timeout",
		},
		{
			name:    "static source without entities",
			mutate:  func(c *Config) { c.Entities.Static = nil },
			wantErr: "entities.static",
		},
		{
			name:    "unknown entity source",
			mutate:  func(c *Config) { c.Entities.Source = "ldap" },
			wantErr: "entities.source",
		},
		{
			name: "database source without path",
			mutate: func(c *Config) {
				c.Entities.Source = EntitySourceDatabase
				c.ActionLog.Database = false
				c.Database.Path = ""
			},
			wantErr: "database.path",
		},
		{
			name:    "missing action log dir",
			mutate:  func(c *Config) { c.ActionLog.Dir = "" },
			wantErr: "actionlog.dir",
		},
		{
			name: "invalid QoS when MQTT enabled",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.QoS = 3
			},
			wantErr: "mqtt.qos",
		},
		{
			name:   "invalid QoS ignored when MQTT disabled",
			mutate: func(c *Config) { c.MQTT.QoS = 3 },
		},
		{
			name:    "kafka without brokers",
			mutate:  func(c *Config) { c.Kafka.Enabled = true },
			wantErr: "kafka.brokers",
		},
		{
			name: "api port out of range",
			mutate: func(c *Config) {
				c.API.Enabled = true
				c.API.Port = 70000
			},
			wantErr: "api.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want error mentioning %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Default()

	t.Setenv("GROWLOGIC_DATABASE_PATH", "/custom/path.db")
	t.Setenv("GROWLOGIC_TRANSPORT_ADDRESS", "tcp://10.0.0.2:4001")
	t.Setenv("GROWLOGIC_TRANSPORT_BAUD_RATE", "57600")
	t.Setenv("GROWLOGIC_SCHEDULE_FILE", "/etc/grow/schedule.yaml")
	t.Setenv("GROWLOGIC_MQTT_HOST", "mqtt.example.com")
	t.Setenv("GROWLOGIC_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("GROWLOGIC_KAFKA_BROKERS", "k1:9092,k2:9092")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.Transport.Address != "tcp://10.0.0.2:4001" {
		t.Errorf("Transport.Address = %q", cfg.Transport.Address)
	}
	if cfg.Transport.BaudRate != 57600 {
		t.Errorf("Transport.BaudRate = %d, want 57600", cfg.Transport.BaudRate)
	}
	if cfg.Schedule.File != "/etc/grow/schedule.yaml" {
		t.Errorf("Schedule.File = %q", cfg.Schedule.File)
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Kafka.Brokers = %v", cfg.Kafka.Brokers)
	}
}

func TestApplyEnvOverrides_BadBaudIgnored(t *testing.T) {
	cfg := Default()
	t.Setenv("GROWLOGIC_TRANSPORT_BAUD_RATE", "fast")

	applyEnvOverrides(cfg)

	if cfg.Transport.BaudRate != 9600 {
		t.Errorf("Transport.BaudRate = %d, want default 9600", cfg.Transport.BaudRate)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Site.ID == "" {
		t.Error("Default should have non-empty Site.ID")
	}
	if cfg.Transport.BaudRate != 9600 {
		t.Errorf("Default Transport.BaudRate = %d, want 9600", cfg.Transport.BaudRate)
	}
	if cfg.Transport.Timeout != 5*time.Second {
		t.Errorf("Default Transport.Timeout = %v, want 5s", cfg.Transport.Timeout)
	}
	if !cfg.DatabaseRequired() {
		t.Error("Default should require the database for the action_log sink")
	}
}

func TestLocation(t *testing.T) {
	cfg := Default()
	loc, err := cfg.Location()
	if err != nil || loc != time.Local {
		t.Errorf("Location() = %v, %v; want time.Local", loc, err)
	}

	cfg.Site.Timezone = "UTC"
	loc, err = cfg.Location()
	if err != nil {
		t.Fatalf("Location() error = %v", err)
	}
	if loc != time.UTC {
		t.Errorf("Location() = %v, want UTC", loc)
	}
}
