package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Review   ReviewConfig   `mapstructure:"review"   validate:"required"`
	Reminder ReminderConfig `mapstructure:"reminder" validate:"required"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig selects the persistence backend. The memory driver keeps
// everything in process and needs no URL.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres memory"`
	URL    string `mapstructure:"url"    validate:"required_if=Driver postgres"`
}

// AuthConfig contains the bearer token settings of the HTTP API.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"     validate:"required,min=32"`
	TokenLifetime time.Duration `mapstructure:"token_lifetime" validate:"gt=0"`
}

// ReviewConfig tunes review sessions and answer grading.
type ReviewConfig struct {
	MinimumBatch       int           `mapstructure:"minimum_batch"        validate:"gte=1"`
	SessionIdleTimeout time.Duration `mapstructure:"session_idle_timeout" validate:"gt=0"`
	EasyLatency        time.Duration `mapstructure:"easy_latency"         validate:"gt=0"`
	ExactThreshold     float64       `mapstructure:"exact_threshold"      validate:"gt=0,lte=1"`
	PartialThreshold   float64       `mapstructure:"partial_threshold"    validate:"gt=0,ltefield=ExactThreshold"`
}

// ReminderConfig controls the reminder tick.
type ReminderConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Schedule        string        `mapstructure:"schedule"         validate:"required"`
	Window          time.Duration `mapstructure:"window"           validate:"gt=0"`
	DefaultTimezone string        `mapstructure:"default_timezone" validate:"required,timezone"`
	SweepSchedule   string        `mapstructure:"sweep_schedule"   validate:"required"`
	Concurrency     int           `mapstructure:"concurrency"      validate:"gte=1,lte=64"`
}

// TelegramConfig holds the bot credentials used to deliver reminders.
type TelegramConfig struct {
	Token string `mapstructure:"token"`
}
