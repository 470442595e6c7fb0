// Package config provides configuration management for the scholar search service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// Config holds all configuration for the scholar search service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Scraper contains pagination driver and browser session settings.
	Scraper ScraperConfig `mapstructure:"scraper"`
	// Fetcher contains PDF artifact fetcher settings.
	Fetcher FetcherConfig `mapstructure:"fetcher"`
	// Cache contains search cache settings.
	Cache CacheConfig `mapstructure:"cache"`
	// Events contains Kafka settings for scrape lifecycle events.
	Events EventsConfig `mapstructure:"events"`
	// Topics contains topic generation collaborator settings.
	Topics TopicsConfig `mapstructure:"topics"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// IdleTimeout is the keep-alive idle timeout.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxUploadBytes is the largest accepted PDF upload (default: 25MB).
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (use environment variable in production).
	Password string `mapstructure:"password"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	// Default is "require" for production security. Use "disable" only for local development.
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool (default: 20).
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open (default: 2).
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files (relative or absolute).
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup (default: false).
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
	// StatementCacheCapacity is the size of the prepared statement cache.
	StatementCacheCapacity int `mapstructure:"statement_cache_capacity"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
}

// ScraperConfig holds pagination driver and browser session settings.
type ScraperConfig struct {
	// BaseURL is the scholar search endpoint.
	BaseURL string `mapstructure:"base_url"`
	// Headless runs the browser without a visible window (default: true).
	Headless bool `mapstructure:"headless"`
	// PageSize is the number of results the target renders per page.
	PageSize int `mapstructure:"page_size"`
	// ResultsTimeout bounds the wait for the results container per attempt.
	ResultsTimeout time.Duration `mapstructure:"results_timeout"`
	// NavigationTimeout bounds a single page navigation.
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	// MinDelay is the lower bound of the randomized inter-action delay.
	MinDelay time.Duration `mapstructure:"min_delay"`
	// MaxDelay is the upper bound of the randomized inter-action delay.
	MaxDelay time.Duration `mapstructure:"max_delay"`
	// ChallengeBackoff is the long pause after a detection event.
	ChallengeBackoff time.Duration `mapstructure:"challenge_backoff"`
	// RetryBudget is the number of extra attempts per page after a results timeout.
	RetryBudget int `mapstructure:"retry_budget"`
	// AcceptLanguage is sent with every session.
	AcceptLanguage string `mapstructure:"accept_language"`
	// WindowWidth and WindowHeight size the browser viewport.
	WindowWidth  int `mapstructure:"window_width"`
	WindowHeight int `mapstructure:"window_height"`
	// UserAgents is the fingerprint rotation pool. Empty uses the built-in pool.
	UserAgents []string `mapstructure:"user_agents"`
	// AbstractLimit caps how many papers get landing-page abstract resolution
	// per search when the caller asks for abstracts.
	AbstractLimit int `mapstructure:"abstract_limit"`
}

// FetcherConfig holds PDF artifact fetcher settings.
type FetcherConfig struct {
	// Dir is the directory PDF artifacts are persisted to.
	Dir string `mapstructure:"dir"`
	// Timeout bounds a single artifact download.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxSizeBytes rejects artifacts larger than this.
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
	// RatePerSecond spaces outbound artifact requests.
	RatePerSecond float64 `mapstructure:"rate_per_second"`
}

// CacheConfig holds search cache settings.
type CacheConfig struct {
	// TTL is how long a cache entry stays fresh (default: 24h, lazy expiry).
	TTL time.Duration `mapstructure:"ttl"`
	// CleanupAge is the janitor's default deletion threshold (default: 168h).
	CleanupAge time.Duration `mapstructure:"cleanup_age"`
}

// EventsConfig holds Kafka settings for scrape lifecycle events.
type EventsConfig struct {
	// Enabled controls whether scrape events are published.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic is the Kafka topic scrape events are published to.
	Topic string `mapstructure:"topic"`
	// BatchTimeout is the maximum time to wait for a batch to fill before sending.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// TopicsConfig holds topic generation collaborator settings. Stop words and
// question templates are explicit configuration, not process-wide constants.
type TopicsConfig struct {
	// MaxKeywords is the number of keywords surfaced per generation.
	MaxKeywords int `mapstructure:"max_keywords"`
	// Stopwords are excluded from keyword counting. Empty uses the built-in list.
	Stopwords []string `mapstructure:"stopwords"`
	// QuestionTemplates are fmt templates with up to three %s slots for
	// keywords. Empty uses the built-in list.
	QuestionTemplates []string `mapstructure:"question_templates"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}
	if c.StatementCacheCapacity > 0 {
		params.Set("statement_cache_capacity", fmt.Sprintf("%d", c.StatementCacheCapacity))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("SCHOLAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/scholar-search-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The database password may only come from the environment.
	if pw := os.Getenv("SCHOLAR_DATABASE_PASSWORD"); pw != "" {
		cfg.Database.Password = pw
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.idle_timeout", "2m")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_upload_bytes", 25*1024*1024)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "scholar")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "scholar_search_service")
	// Default to "require" for production security. Use SCHOLAR_DATABASE_SSL_MODE=disable for local development.
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)
	v.SetDefault("database.statement_cache_capacity", 512)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Scraper defaults
	v.SetDefault("scraper.base_url", "https://scholar.google.com")
	v.SetDefault("scraper.headless", true)
	v.SetDefault("scraper.page_size", 10)
	v.SetDefault("scraper.results_timeout", "10s")
	v.SetDefault("scraper.navigation_timeout", "30s")
	v.SetDefault("scraper.min_delay", "2s")
	v.SetDefault("scraper.max_delay", "5s")
	v.SetDefault("scraper.challenge_backoff", "30s")
	v.SetDefault("scraper.retry_budget", 1)
	v.SetDefault("scraper.accept_language", "en-US,en;q=0.9")
	v.SetDefault("scraper.window_width", 1920)
	v.SetDefault("scraper.window_height", 1080)
	v.SetDefault("scraper.abstract_limit", 5)

	// Fetcher defaults
	v.SetDefault("fetcher.dir", "data/papers")
	v.SetDefault("fetcher.timeout", "30s")
	v.SetDefault("fetcher.max_size_bytes", 50*1024*1024)
	v.SetDefault("fetcher.rate_per_second", 1.0)

	// Cache defaults
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_age", "168h")

	// Events defaults
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.brokers", []string{"localhost:9092"})
	v.SetDefault("events.topic", "scholar.scrape.events")
	v.SetDefault("events.batch_timeout", "10ms")

	// Topics defaults
	v.SetDefault("topics.max_keywords", 15)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	// Validate database config
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate scraper config
	if c.Scraper.BaseURL == "" {
		return fmt.Errorf("scraper base_url is required")
	}
	if c.Scraper.PageSize <= 0 {
		return fmt.Errorf("scraper page_size must be positive")
	}
	if c.Scraper.MinDelay <= 0 || c.Scraper.MaxDelay < c.Scraper.MinDelay {
		return fmt.Errorf("scraper delay window [%s, %s] is invalid", c.Scraper.MinDelay, c.Scraper.MaxDelay)
	}
	if c.Scraper.ResultsTimeout <= 0 {
		return fmt.Errorf("scraper results_timeout must be positive")
	}
	if c.Scraper.RetryBudget < 0 {
		return fmt.Errorf("scraper retry_budget must not be negative")
	}

	// Validate fetcher config
	if c.Fetcher.Dir == "" {
		return fmt.Errorf("fetcher dir is required")
	}
	if c.Fetcher.Timeout <= 0 {
		return fmt.Errorf("fetcher timeout must be positive")
	}
	if c.Fetcher.MaxSizeBytes <= 0 {
		return fmt.Errorf("fetcher max_size_bytes must be positive")
	}

	// Validate cache config
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}

	// Validate events config
	if c.Events.Enabled {
		if len(c.Events.Brokers) == 0 {
			return fmt.Errorf("events brokers are required when events are enabled")
		}
		if c.Events.Topic == "" {
			return fmt.Errorf("events topic is required when events are enabled")
		}
	}

	if c.Topics.MaxKeywords <= 0 {
		return fmt.Errorf("topics max_keywords must be positive")
	}

	return nil
}
