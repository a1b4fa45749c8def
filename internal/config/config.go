// Package config provides configuration management for the application.
// It handles loading, validation, and access to configuration values from
// YAML files and environment variables via viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Proxy     ProxyConfig     `mapstructure:"proxy"`
	Crawl     CrawlConfig     `mapstructure:"crawl"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// RedisConfig holds Redis connection settings for the legacy task queue.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Stream   string `mapstructure:"stream"`
}

// ProxyConfig holds settings for the crawl proxy service.
type ProxyConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CrawlConfig holds crawl execution settings.
type CrawlConfig struct {
	// ResultBasePath is the local mount of the proxy's crawl_files
	// directory; relative batch paths resolve against it.
	ResultBasePath string `mapstructure:"result_base_path"`
	// MaxArticles caps articles per crawl when the config does not set one.
	MaxArticles int `mapstructure:"max_articles"`
}

// AnalysisConfig holds batch analysis settings.
type AnalysisConfig struct {
	// Workers is the number of concurrent analysis runs per category.
	Workers int `mapstructure:"workers"`
	// QueueSize bounds pending analysis runs; further requests are rejected.
	QueueSize int `mapstructure:"queue_size"`
}

// SchedulerConfig holds cron scheduler settings.
type SchedulerConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from the given path (or the defaults search
// path when empty), layered under environment variable overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/regradar")
	}

	v.SetEnvPrefix("REGRADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults applies default values to the config.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "regradar")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "console")

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "regradar")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "crawl:tasks")

	v.SetDefault("proxy.base_url", "http://localhost:5000")
	v.SetDefault("proxy.timeout", 10*time.Minute)

	v.SetDefault("crawl.result_base_path", "crawl_files")
	v.SetDefault("crawl.max_articles", 10)

	v.SetDefault("analysis.workers", 2)
	v.SetDefault("analysis.queue_size", 100)

	v.SetDefault("scheduler.enabled", true)
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server address must not be empty")
	}
	if c.Proxy.BaseURL == "" {
		return fmt.Errorf("proxy base_url must not be empty")
	}
	if c.Analysis.Workers < 1 {
		return fmt.Errorf("analysis workers must be at least 1, got %d", c.Analysis.Workers)
	}
	if c.Analysis.QueueSize < 1 {
		return fmt.Errorf("analysis queue_size must be at least 1, got %d", c.Analysis.QueueSize)
	}
	return nil
}

// IsDevelopment reports whether the app runs in a development environment.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
