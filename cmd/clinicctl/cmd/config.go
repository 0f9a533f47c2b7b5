package cmd

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/jwalitptl/clinic-booking/internal/email"
)

// Config is read from CLINIC_* variables, e.g. CLINIC_API_URL or
// CLINIC_MAIL_TO=a@x.com,b@x.com.
type Config struct {
	APIURL    string `envconfig:"API_URL" default:"http://localhost:8080"`
	RedisURL  string `envconfig:"REDIS_URL"`
	StatePath string `envconfig:"STATE_PATH"`
	Timezone  string `envconfig:"TIMEZONE" default:"Asia/Aden"`
	// StrictSchedule makes date and time mandatory in the booking wizard.
	StrictSchedule bool          `envconfig:"STRICT_SCHEDULE"`
	AudioCommand   []string      `envconfig:"AUDIO_COMMAND" default:"aplay,-q,-"`
	Timeout        time.Duration `envconfig:"TIMEOUT" default:"15s"`
	// Endpoint is recorded with the push subscription of this device.
	Endpoint string `envconfig:"PUSH_ENDPOINT"`

	Log  LogConfig  `envconfig:"LOG"`
	Mail MailConfig `envconfig:"MAIL"`
}

type LogConfig struct {
	Level      string `envconfig:"LEVEL" default:"info"`
	File       string `envconfig:"FILE"`
	MaxSizeMB  int    `envconfig:"MAX_SIZE_MB" default:"10"`
	MaxBackups int    `envconfig:"MAX_BACKUPS" default:"3"`
	MaxAgeDays int    `envconfig:"MAX_AGE_DAYS" default:"28"`
}

type MailConfig struct {
	Enabled  bool     `envconfig:"ENABLED"`
	Host     string   `envconfig:"HOST"`
	Port     int      `envconfig:"PORT" default:"587"`
	Username string   `envconfig:"USERNAME"`
	Password string   `envconfig:"PASSWORD"`
	From     string   `envconfig:"FROM"`
	To       []string `envconfig:"TO"`
	SSL      bool     `envconfig:"SSL"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("clinic", &cfg); err != nil {
		return cfg, fmt.Errorf("failed to read environment: %w", err)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return cfg, fmt.Errorf("invalid CLINIC_TIMEZONE %q: %w", cfg.Timezone, err)
	}
	if cfg.Mail.Enabled && (cfg.Mail.Host == "" || len(cfg.Mail.To) == 0) {
		return cfg, fmt.Errorf("CLINIC_MAIL_HOST and CLINIC_MAIL_TO are required when mail is enabled")
	}
	return cfg, nil
}

func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c MailConfig) emailConfig() email.Config {
	return email.Config{
		Enabled:  c.Enabled,
		Host:     c.Host,
		Port:     c.Port,
		Username: c.Username,
		Password: c.Password,
		From:     c.From,
		SSL:      c.SSL,
	}
}
