package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full server configuration, loaded from the environment with an
// optional .env file. Business constants (queue capacity, working hours, slot
// length, modification cutoff) live here so services receive them injected
// rather than hard-coding them.
type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecret   string   `mapstructure:"JWT_SECRET"`
	JWTIssuer   string   `mapstructure:"JWT_ISSUER"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	QueueCapacity           int    `mapstructure:"QUEUE_CAPACITY"`
	WorkStartHour           int    `mapstructure:"WORK_START_HOUR"`
	WorkEndHour             int    `mapstructure:"WORK_END_HOUR"`
	SlotMinutes             int    `mapstructure:"SLOT_MINUTES"`
	ModificationCutoffHours int    `mapstructure:"MODIFICATION_CUTOFF_HOURS"`
	NotifyMode              string `mapstructure:"NOTIFY_MODE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("QUEUE_CAPACITY", 5)
	v.SetDefault("WORK_START_HOUR", 8)
	v.SetDefault("WORK_END_HOUR", 18)
	v.SetDefault("SLOT_MINUTES", 30)
	v.SetDefault("MODIFICATION_CUTOFF_HOURS", 12)
	v.SetDefault("NOTIFY_MODE", "mock")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"JWT_SECRET", "JWT_ISSUER", "CORS_ORIGINS",
		"QUEUE_CAPACITY", "WORK_START_HOUR", "WORK_END_HOUR",
		"SLOT_MINUTES", "MODIFICATION_CUTOFF_HOURS", "NOTIFY_MODE",
	} {
		v.BindEnv(key)
	}

	// Try reading .env, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe and coherent to run with.
// Outside development a JWT secret is mandatory; the business constants must
// describe a usable working day and queue.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV is not development")
	}
	if c.QueueCapacity < 1 {
		return fmt.Errorf("QUEUE_CAPACITY must be at least 1, got %d", c.QueueCapacity)
	}
	if c.WorkStartHour < 0 || c.WorkEndHour > 24 || c.WorkStartHour >= c.WorkEndHour {
		return fmt.Errorf("working hours [%d, %d) are invalid", c.WorkStartHour, c.WorkEndHour)
	}
	if c.SlotMinutes < 1 {
		return fmt.Errorf("SLOT_MINUTES must be at least 1, got %d", c.SlotMinutes)
	}
	if c.ModificationCutoffHours < 0 {
		return fmt.Errorf("MODIFICATION_CUTOFF_HOURS must not be negative, got %d", c.ModificationCutoffHours)
	}
	if c.NotifyMode != "mock" && c.NotifyMode != "console" && c.NotifyMode != "off" {
		return fmt.Errorf("NOTIFY_MODE must be \"mock\", \"console\", or \"off\", got %q", c.NotifyMode)
	}
	return nil
}
