package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jwalitptl/clinic-booking/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-booking/pkg/worker"
)

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	Mode            string        `mapstructure:"mode"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
	Issuer      string `mapstructure:"issuer"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type OutboxConfig struct {
	// Embedded runs the processor inside the API process.
	Embedded      bool          `mapstructure:"embedded"`
	BatchSize     int           `mapstructure:"batch_size"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	MaxRetries    int           `mapstructure:"max_retries"`
	// CleanupSchedule is a cron spec for purging processed events.
	CleanupSchedule string        `mapstructure:"cleanup_schedule"`
	Retention       time.Duration `mapstructure:"retention"`
	StaleAfter      time.Duration `mapstructure:"stale_after"`
	// HealthPort serves health and metrics of the standalone worker.
	HealthPort int `mapstructure:"health_port"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool   `mapstructure:"prometheus_enabled"`
	MetricsPath       string `mapstructure:"metrics_path"`
	Namespace         string `mapstructure:"namespace"`
}

type ClinicConfig struct {
	Name     string `mapstructure:"name"`
	Timezone string `mapstructure:"timezone"`
	// Region is the phone numbering region of locally entered numbers.
	Region           string        `mapstructure:"region"`
	ServicesCacheTTL time.Duration `mapstructure:"services_cache_ttl"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// BootstrapConfig creates the first operator when none with that email exists.
type BootstrapConfig struct {
	OperatorEmail    string `mapstructure:"operator_email"`
	OperatorName     string `mapstructure:"operator_name"`
	OperatorPassword string `mapstructure:"operator_password"`
}

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Outbox     OutboxConfig     `mapstructure:"outbox"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Security   SecurityConfig   `mapstructure:"security"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Clinic     ClinicConfig     `mapstructure:"clinic"`
	Log        LogConfig        `mapstructure:"log"`
	Bootstrap  BootstrapConfig  `mapstructure:"bootstrap"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_header_bytes", 1<<20)
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "clinic")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("jwt.expiry_hours", 12)
	v.SetDefault("jwt.issuer", "clinic-booking")

	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("outbox.embedded", true)
	v.SetDefault("outbox.batch_size", 50)
	v.SetDefault("outbox.poll_interval", time.Second)
	v.SetDefault("outbox.retry_attempts", 3)
	v.SetDefault("outbox.retry_delay", 200*time.Millisecond)
	v.SetDefault("outbox.max_retries", 10)
	v.SetDefault("outbox.cleanup_schedule", "@daily")
	v.SetDefault("outbox.retention", 7*24*time.Hour)
	v.SetDefault("outbox.stale_after", 5*time.Minute)
	v.SetDefault("outbox.health_port", 8081)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 1)
	v.SetDefault("rate_limit.burst", 5)

	v.SetDefault("security.allowed_origins", []string{"*"})
	v.SetDefault("security.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("security.allowed_headers", []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"})

	v.SetDefault("monitoring.prometheus_enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("monitoring.namespace", "clinic")

	v.SetDefault("clinic.name", "العيادة")
	v.SetDefault("clinic.timezone", "Asia/Aden")
	v.SetDefault("clinic.region", "YE")
	v.SetDefault("clinic.services_cache_ttl", 5*time.Minute)

	v.SetDefault("log.level", "info")
}

// LoadConfig reads config.yml from the usual locations, or from the file in
// CONFIG_FILE. Any key can be overridden from the environment, e.g.
// DATABASE_HOST or JWT_SECRET.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")           // current directory
		v.AddConfigPath("./config")    // config subdirectory
		v.AddConfigPath("/app")        // container root directory
		v.AddConfigPath("/app/config") // container config directory
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// without an explicit file, defaults and env are enough
		if _, ok := err.(viper.ConfigFileNotFoundError); configFile != "" || !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if _, err := time.LoadLocation(c.Clinic.Timezone); err != nil {
		return fmt.Errorf("invalid clinic.timezone %q: %w", c.Clinic.Timezone, err)
	}
	return nil
}

// Location is the clinic's time zone. Validate has already checked it loads.
func (c *ClinicConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Add conversion methods to convert config types
func (c *OutboxConfig) ToWorkerConfig() worker.OutboxProcessorConfig {
	return worker.OutboxProcessorConfig{
		BatchSize:     c.BatchSize,
		PollInterval:  c.PollInterval,
		RetryAttempts: c.RetryAttempts,
		RetryDelay:    c.RetryDelay,
		MaxRetries:    c.MaxRetries,
	}
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}
