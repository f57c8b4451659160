// Package config loads the application configuration from file, environment
// and defaults, in that order of increasing precedence for env overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configName = ".skladtrack"
	envPrefix  = "SKLADTRACK"
)

// AppConfig is the full application configuration.
type AppConfig struct {
	Database struct {
		// Path to the SQLite database file; ":memory:" for ephemeral runs.
		Path string `mapstructure:"path" validate:"required"`
	} `mapstructure:"database"`
	Server struct {
		Addr string `mapstructure:"addr" validate:"required"`
	} `mapstructure:"server"`
	Archive struct {
		// CooldownDays is the delay between task completion and automatic
		// archival. 7 calendar days approximates the shop's "5 working
		// days" rule.
		CooldownDays int `mapstructure:"cooldownDays" validate:"min=1"`
		// Cron is the schedule for the background archival pass.
		Cron string `mapstructure:"cron" validate:"required"`
	} `mapstructure:"archive"`
	// Actor is recorded on ledger entries for user-initiated mutations.
	Actor string `mapstructure:"actor"`
}

// Cooldown returns the archival cooldown as a duration.
func (c *AppConfig) Cooldown() time.Duration {
	return time.Duration(c.Archive.CooldownDays) * 24 * time.Hour
}

var validate = validator.New()

// Load reads .env (if present), the optional .skladtrack.yaml config file,
// and SKLADTRACK_* environment variables, then validates the result.
func Load(cfgFile string) (*AppConfig, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if cfgFile != "" {
				return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No config file found: defaults and environment apply.
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "skladtrack.db")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("archive.cooldownDays", 7)
	v.SetDefault("archive.cron", "0 3 * * *")
	v.SetDefault("actor", "user")
}
