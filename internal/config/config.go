package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config represents the complete service configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Minio    MinioConfig    `toml:"minio"`
	MQTT     MQTTConfig     `toml:"mqtt"`
	Quality  QualityPolicy  `toml:"quality"`
	Jobs     JobsConfig     `toml:"jobs"`
}

// ServerConfig contains HTTP listener settings
type ServerConfig struct {
	Port int `toml:"port"`
}

// DatabaseConfig contains the Postgres connection settings
type DatabaseConfig struct {
	URL string `toml:"url"`
}

// RedisConfig contains cache settings
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// MinioConfig contains object storage settings for inspection photos
type MinioConfig struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
	Bucket    string `toml:"bucket"`
}

// MQTTConfig contains sensor ingestion broker settings
type MQTTConfig struct {
	Enabled  bool   `toml:"enabled"`
	Broker   string `toml:"broker"`
	Port     int    `toml:"port"`
	ClientID string `toml:"client_id"`
	Topic    string `toml:"topic"`
}

// QualityPolicy surfaces the state-feedback rules the schema leaves to the
// operator: whether a failed inspection marks the instance damaged, and the
// contamination severity at which the same happens (0 disables).
type QualityPolicy struct {
	FailMarksDamaged            bool `toml:"fail_marks_damaged"`
	ContaminationDamageSeverity int  `toml:"contamination_damage_severity"`
}

// JobsConfig contains background job intervals in minutes
type JobsConfig struct {
	OverdueScanMinutes  int `toml:"overdue_scan_minutes"`
	ReconcileMinutes    int `toml:"reconcile_minutes"`
	CacheRefreshMinutes int `toml:"cache_refresh_minutes"`
}

// Load reads configuration from a TOML file and applies defaults.
func Load(filename string) (*Config, error) {
	config := defaults()
	if filename != "" {
		if _, err := toml.DecodeFile(filename, config); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}
	return config, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Redis:  RedisConfig{Addr: "localhost:6379"},
		Minio: MinioConfig{
			Endpoint: "localhost:9000",
			Bucket:   "packloop-inspections",
		},
		MQTT: MQTTConfig{
			Broker:   "localhost",
			Port:     1883,
			ClientID: "packloop-ingestor",
			Topic:    "packloop/telemetry/#",
		},
		Jobs: JobsConfig{
			OverdueScanMinutes:  60,
			ReconcileMinutes:    360,
			CacheRefreshMinutes: 15,
		},
	}
}
