// Package config loads movieindexd's runtime configuration from an optional
// config file plus the environment variables listed in the operator docs.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/Nomadcxx/movieindexd/internal/paths"
	"github.com/spf13/viper"
)

// PostgresConfig holds the source database connection parameters.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// DSN returns the libpq-style connection string for this configuration.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		p.Host, p.Port, p.Name, p.User, p.Password,
	)
}

// ElasticConfig holds the sink search engine connection parameters.
type ElasticConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Address returns the HTTP address of the Elasticsearch node.
func (e ElasticConfig) Address() string {
	return fmt.Sprintf("http://%s:%d", e.Host, e.Port)
}

// RedisConfig holds the state-store connection parameters.
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Address returns the host:port address of the Redis server.
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// PipelineConfig holds the knobs for the ETL runtime itself.
type PipelineConfig struct {
	// DBBufferSize is the number of rows pulled from the source cursor per batch.
	DBBufferSize int `mapstructure:"db_buffer_size"`
	// RestartIntervalSeconds is the sleep between full sweeps of all process kinds.
	RestartIntervalSeconds int `mapstructure:"restart_interval_seconds"`
}

// RestartInterval returns the configured sweep interval as a duration.
func (p PipelineConfig) RestartInterval() time.Duration {
	return time.Duration(p.RestartIntervalSeconds) * time.Second
}

// LoggingConfig configures the structured file/stdout logger.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// Config is the daemon's full runtime configuration.
type Config struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Elastic  ElasticConfig  `mapstructure:"elastic"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DefaultConfig returns configuration with the daemon's built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Postgres: PostgresConfig{Host: "localhost", Port: 5432},
		Elastic:  ElasticConfig{Host: "localhost", Port: 9200},
		Redis:    RedisConfig{Host: "localhost", Port: 6379},
		Pipeline: PipelineConfig{
			DBBufferSize:           100,
			RestartIntervalSeconds: 10,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
	}
}

// envBindings lists the daemon's environment variables and the config key
// each one overrides.
var envBindings = map[string]string{
	"PG_DB_HOST":                        "postgres.host",
	"PG_DB_PORT":                        "postgres.port",
	"PG_DB_NAME":                        "postgres.name",
	"PG_DB_USER":                        "postgres.user",
	"PG_DB_PASSWORD":                    "postgres.password",
	"ES_HOST":                           "elastic.host",
	"ES_PORT":                           "elastic.port",
	"REDIS_HOST":                        "redis.host",
	"REDIS_PORT":                        "redis.port",
	"DB_BUFFER_SIZE":                    "pipeline.db_buffer_size",
	"TIME_TO_RESTART_PROCESSES_SECONDS": "pipeline.restart_interval_seconds",
}

// Load reads the optional config file at paths.ConfigPath, layers the
// environment variables on top, and returns the merged configuration. A
// missing config file is not an error — defaults plus environment
// overrides are sufficient to run.
func Load() (*Config, error) {
	v := viper.New()

	for env, key := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("unable to bind env var %s: %w", env, err)
		}
	}

	configPath, err := paths.ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("unable to resolve config path: %w", err)
	}
	v.SetConfigFile(configPath)

	if _, statErr := os.Stat(configPath); statErr == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	return cfg, nil
}
