// Package config loads modelstore CLI configuration from file and environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/JIMMY-KSU/modelstore/internal/observability"
	"github.com/JIMMY-KSU/modelstore/internal/store"
)

// Sentinel validation errors.
var (
	ErrInvalidExtension    = errors.New("store extension must be non-empty")
	ErrInvalidDefaultName  = errors.New("invalid default model name")
	ErrInvalidLogLevel     = errors.New("invalid log level")
	ErrInvalidLogFormat    = errors.New("invalid log format")
	ErrInvalidOutputFormat = errors.New("invalid output format")
	ErrInvalidColorMode    = errors.New("invalid color mode")
)

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// EnvPrefix prefixes every environment override, e.g. MODELSTORE_STORE_COMPRESS_ARRAYS.
const EnvPrefix = "MODELSTORE"

// Config holds all modelstore configuration.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
	Output  OutputConfig  `mapstructure:"output"`
}

// StoreConfig holds save/load settings.
type StoreConfig struct {
	DefaultName    string `mapstructure:"default_name"`
	Extension      string `mapstructure:"extension"`
	CompressArrays bool   `mapstructure:"compress_arrays"`
	Sync           bool   `mapstructure:"sync"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OutputConfig holds report rendering settings.
type OutputConfig struct {
	Format string `mapstructure:"format"`
	Color  string `mapstructure:"color"`
}

// LoadConfig loads configuration from file and environment variables.
//
// An explicit configPath must exist. Without one, modelstore.yaml is searched for in the
// working directory and $HOME/.config/modelstore, and its absence is not an error.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()
	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("modelstore")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viperCfg.AddConfigPath(filepath.Join(home, ".config", "modelstore"))
		}
	}

	viperCfg.SetEnvPrefix(EnvPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viperCfg.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viperCfg.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	viperCfg := viper.New()
	setDefaults(viperCfg)
	var config Config
	_ = viperCfg.Unmarshal(&config)
	return &config
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("store.default_name", store.DefaultName)
	viperCfg.SetDefault("store.extension", store.DefaultExtension)
	viperCfg.SetDefault("store.compress_arrays", false)
	viperCfg.SetDefault("store.sync", true)

	viperCfg.SetDefault("logging.level", "warn")
	viperCfg.SetDefault("logging.format", observability.FormatText)

	viperCfg.SetDefault("output.format", OutputTable)
	viperCfg.SetDefault("output.color", ColorAuto)
}

func validateConfig(config *Config) error {
	if strings.TrimPrefix(config.Store.Extension, ".") == "" {
		return ErrInvalidExtension
	}
	if err := store.ValidateModelName(config.Store.DefaultName); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDefaultName, err)
	}
	if _, err := observability.ParseLevel(config.Logging.Level); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, config.Logging.Level)
	}

	switch config.Logging.Format {
	case observability.FormatText, observability.FormatJSON:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	switch config.Output.Format {
	case OutputTable, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOutputFormat, config.Output.Format)
	}

	switch config.Output.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidColorMode, config.Output.Color)
	}
	return nil
}

// StoreOptions translates the store section into store options.
func (c *Config) StoreOptions() []store.Option {
	return []store.Option{
		store.WithDefaultName(c.Store.DefaultName),
		store.WithExtension(c.Store.Extension),
		store.WithCompression(c.Store.CompressArrays),
		store.WithSync(c.Store.Sync),
	}
}
