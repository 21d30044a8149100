// Package config resolves prodreg settings from flags, environment and an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. PRODREG_DB.
const EnvPrefix = "PRODREG"

// Keys shared by flags, env and the config file.
const (
	KeyDB       = "db"
	KeyFormat   = "format"
	KeyLogLevel = "log_level"
	KeyVerbose  = "verbose"
)

// ValidFormats are the accepted output formats.
var ValidFormats = []string{"text", "json"}

// Config holds all configuration options for prodreg.
type Config struct {
	DB       string `mapstructure:"db"`
	Format   string `mapstructure:"format"`    // "text" (default) or "json"
	LogLevel string `mapstructure:"log_level"` // slog level name
	Verbose  bool   `mapstructure:"verbose"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		DB:       "prodreg.db",
		Format:   "text",
		LogLevel: "warn",
	}
}

// Load resolves configuration into v and returns it. Precedence, highest
// first: flags bound to v, PRODREG_* environment, the config file, defaults.
//
// An explicit file must exist. Without one, ./prodreg.yaml and then
// ~/.config/prodreg/config.yaml are tried and silently skipped if absent.
func Load(v *viper.Viper, file string) (Config, error) {
	defaults := Defaults()
	v.SetDefault(KeyDB, defaults.DB)
	v.SetDefault(KeyFormat, defaults.Format)
	v.SetDefault(KeyLogLevel, defaults.LogLevel)
	v.SetDefault(KeyVerbose, defaults.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("prodreg")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "prodreg"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the format and log level.
func (c Config) Validate() error {
	if !IsValidFormat(c.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", c.Format, ValidFormats)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if strings.TrimSpace(c.DB) == "" {
		return errors.New("database path must not be empty")
	}
	return nil
}

// Level parses LogLevel. Verbose forces debug.
func (c Config) Level() (slog.Level, error) {
	if c.Verbose {
		return slog.LevelDebug, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// IsValidFormat reports whether format is one of ValidFormats.
func IsValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
