package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the full monitoring service configuration.
type Config struct {
	Subject struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"subject"`

	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"database"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	MQTT struct {
		Enabled  bool   `yaml:"enabled"`
		Broker   string `yaml:"broker"`
		ClientID string `yaml:"client_id"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Topic    string `yaml:"topic"`
		QoS      byte   `yaml:"qos"`
	} `yaml:"mqtt"`

	Webhook struct {
		Enabled    bool   `yaml:"enabled"`
		URL        string `yaml:"url"`
		TimeoutSec int    `yaml:"timeout_sec"`
	} `yaml:"webhook"`

	// Alert thresholds, comparable to the corresponding channel's unit.
	Thresholds struct {
		SpO2Low             int     `yaml:"spo2_low"`              // percent
		HeartRateHigh       int     `yaml:"heart_rate_high"`       // bpm
		RespiratoryRateHigh int     `yaml:"respiratory_rate_high"` // breaths/min
		TemperatureHigh     float64 `yaml:"temperature_high"`      // °C
	} `yaml:"alert_thresholds"`

	Prediction struct {
		WindowSize    int `yaml:"window_size"`
		ForecastHours int `yaml:"forecast_hours"`
	} `yaml:"prediction_settings"`

	// Exacerbation heuristic vocabulary and severity floor. Kept as data so
	// the clinical symptom set is configuration, not scattered literals.
	Exacerbation struct {
		Symptoms    []string `yaml:"symptoms"`
		MinSeverity int      `yaml:"min_severity"`
	} `yaml:"exacerbation"`

	Alerts struct {
		RecentSize     int    `yaml:"recent_size"`      // in-memory alert list retention
		SinkTimeoutSec int    `yaml:"sink_timeout_sec"` // bound on sink delivery
		Stream         string `yaml:"stream"`           // redis stream for alert publishing
		CacheKeyPrefix string `yaml:"cache_key_prefix"` // latest-alerts cache key prefix
		CacheTTLSec    int    `yaml:"cache_ttl_sec"`
	} `yaml:"alerts"`

	Analytics struct {
		IntervalSec int `yaml:"interval_sec"` // forecast/anomaly cadence
	} `yaml:"analytics"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads configuration from the YAML file at path (an absent file means
// the documented defaults), then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaults returns the documented default configuration.
func defaults() *Config {
	cfg := &Config{}

	cfg.Subject.ID = "subject-1"
	cfg.Subject.Name = "Subject"

	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "vitalmonitor"
	cfg.Database.SSLMode = "disable"

	cfg.Redis.Addr = "localhost:6379"

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "vital-monitor"
	cfg.MQTT.Topic = "vital-monitor/measurements"
	cfg.MQTT.QoS = 1

	cfg.Webhook.TimeoutSec = 10

	cfg.Thresholds.SpO2Low = 92
	cfg.Thresholds.HeartRateHigh = 110
	cfg.Thresholds.RespiratoryRateHigh = 25
	cfg.Thresholds.TemperatureHigh = 38.0

	cfg.Prediction.WindowSize = 10
	cfg.Prediction.ForecastHours = 6

	cfg.Exacerbation.Symptoms = []string{"essoufflement", "toux", "fatigue"}
	cfg.Exacerbation.MinSeverity = 7

	cfg.Alerts.RecentSize = 50
	cfg.Alerts.SinkTimeoutSec = 5
	cfg.Alerts.Stream = "vital-monitor:alerts"
	cfg.Alerts.CacheKeyPrefix = "vital-monitor:subject:"
	cfg.Alerts.CacheTTLSec = 30

	cfg.Analytics.IntervalSec = 60

	cfg.Log.Level = "info"
	cfg.Log.Format = "json"

	return cfg
}

// applyEnv applies environment variable overrides.
func (c *Config) applyEnv() {
	c.Subject.ID = getEnv("SUBJECT_ID", c.Subject.ID)
	c.Subject.Name = getEnv("SUBJECT_NAME", c.Subject.Name)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Database = getEnv("DB_NAME", c.Database.Database)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)

	c.MQTT.Broker = getEnv("MQTT_BROKER", c.MQTT.Broker)
	c.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", c.MQTT.ClientID)
	c.MQTT.Username = getEnv("MQTT_USERNAME", c.MQTT.Username)
	c.MQTT.Password = getEnv("MQTT_PASSWORD", c.MQTT.Password)
	c.MQTT.Topic = getEnv("MQTT_TOPIC", c.MQTT.Topic)

	c.Webhook.URL = getEnv("WEBHOOK_URL", c.Webhook.URL)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Validate checks invariants the analytics depend on.
func (c *Config) Validate() error {
	if c.Prediction.WindowSize < 1 {
		return fmt.Errorf("window_size must be >= 1, got %d", c.Prediction.WindowSize)
	}
	if c.Prediction.ForecastHours < 1 {
		return fmt.Errorf("forecast_hours must be >= 1, got %d", c.Prediction.ForecastHours)
	}
	if c.Thresholds.SpO2Low < 0 || c.Thresholds.SpO2Low > 100 {
		return fmt.Errorf("spo2_low threshold out of range: %d", c.Thresholds.SpO2Low)
	}
	if c.Exacerbation.MinSeverity < 1 || c.Exacerbation.MinSeverity > 10 {
		return fmt.Errorf("exacerbation min_severity out of range: %d", c.Exacerbation.MinSeverity)
	}
	if c.Alerts.RecentSize < 1 {
		return fmt.Errorf("alerts recent_size must be >= 1, got %d", c.Alerts.RecentSize)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
