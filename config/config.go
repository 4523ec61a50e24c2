package config

import (
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	mu sync.Mutex `yaml:"-"`

	StationID    string `yaml:"station_id"`
	DatabasePath string `yaml:"database_path"`

	Web         WebConfig         `yaml:"web"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
	Messaging   MessagingConfig   `yaml:"messaging"`
	Redis       RedisConfig       `yaml:"redis"`
}

// WebConfig defines the web server settings.
type WebConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	SessionSecret string `yaml:"session_secret"`
}

// DiagnosticsConfig controls the simulated diagnostics progress indicator.
type DiagnosticsConfig struct {
	StepInterval time.Duration `yaml:"step_interval"`
}

// MessagingConfig defines the messaging backend.
type MessagingConfig struct {
	Backend             string        `yaml:"backend"` // "none", "mqtt", "kafka" or "nats"
	MQTT                MQTTConfig    `yaml:"mqtt"`
	Kafka               KafkaConfig   `yaml:"kafka"`
	NATS                NATSConfig    `yaml:"nats"`
	EventsTopic         string        `yaml:"events_topic"`
	SummaryTopic        string        `yaml:"summary_topic"`
	OutboxDrainInterval time.Duration `yaml:"outbox_drain_interval"`
	HeartbeatInterval   time.Duration `yaml:"heartbeat_interval"`
}

// MQTTConfig defines MQTT broker settings.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
}

// KafkaConfig defines Kafka broker settings.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
}

// NATSConfig defines the NATS server URL.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig defines the optional fleet mirror.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Defaults returns a Config with sane defaults.
func Defaults() *Config {
	return &Config{
		StationID:    "floor-1",
		DatabasePath: ":memory:",
		Web: WebConfig{
			Host: "0.0.0.0",
			Port: 8082,
		},
		Diagnostics: DiagnosticsConfig{
			StepInterval: 200 * time.Millisecond,
		},
		Messaging: MessagingConfig{
			Backend:             "none",
			EventsTopic:         "floorwatch.events",
			SummaryTopic:        "floorwatch.summary",
			OutboxDrainInterval: 5 * time.Second,
			HeartbeatInterval:   60 * time.Second,
			MQTT: MQTTConfig{
				Broker: "localhost",
				Port:   1883,
			},
			NATS: NATSConfig{
				URL: "nats://localhost:4222",
			},
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
	}
}

// Load reads a YAML config file. If the file doesn't exist, defaults are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to a YAML file.
func (c *Config) Save(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ClientID returns the MQTT client ID, falling back to the station ID.
func (c *Config) ClientID() string {
	if c.Messaging.MQTT.ClientID != "" {
		return c.Messaging.MQTT.ClientID
	}
	return "floorwatch-" + c.StationID
}

// MessagingEnabled reports whether a messaging backend is configured.
func (c *Config) MessagingEnabled() bool {
	switch c.Messaging.Backend {
	case "", "none":
		return false
	}
	return true
}
