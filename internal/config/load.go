package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. SCRY_SERVER_PORT.
const EnvPrefix = "SCRY"

// Load reads configuration from defaults, an optional config.yaml in the
// working directory, and SCRY_-prefixed environment variables, in increasing
// order of precedence. The result is validated before it is returned.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFile is Load with an explicit config file, which must exist.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults registers every key so that AutomaticEnv can override keys that
// have no default value too.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_lifetime", "24h")

	v.SetDefault("review.minimum_batch", 5)
	v.SetDefault("review.session_idle_timeout", "10m")
	v.SetDefault("review.easy_latency", "5s")
	v.SetDefault("review.exact_threshold", 0.8)
	v.SetDefault("review.partial_threshold", 0.6)

	v.SetDefault("reminder.enabled", false)
	v.SetDefault("reminder.schedule", "0 * * * * *")
	v.SetDefault("reminder.window", "30s")
	v.SetDefault("reminder.default_timezone", "Europe/Moscow")
	v.SetDefault("reminder.sweep_schedule", "30 * * * * *")
	v.SetDefault("reminder.concurrency", 8)

	v.SetDefault("telegram.token", "")
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags plus the cross-section rule that enabled
// reminders need a bot token to deliver through.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterStructValidation(validateReminderDelivery, Config{})

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func validateReminderDelivery(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)
	if cfg.Reminder.Enabled && cfg.Telegram.Token == "" {
		sl.ReportError(cfg.Telegram.Token, "Telegram.Token", "Token", "required_with_reminders", "")
	}
}
