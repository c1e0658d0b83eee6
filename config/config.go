// Package config loads filedrop settings from an optional config file and
// FILEDROP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/opd-ai/filedrop/commands"
	"github.com/opd-ai/filedrop/limits"
)

// EnvPrefix prefixes every environment override, e.g. FILEDROP_PORT.
const EnvPrefix = "FILEDROP"

// Config represents the application's configuration structure.
type Config struct {
	Address        string        `mapstructure:"address"`
	Port           int           `mapstructure:"port"`
	LogLevel       string        `mapstructure:"log-level"`
	MaxConnections int           `mapstructure:"max-connections"`
	ShutdownWait   time.Duration `mapstructure:"shutdown-wait"`
	Chunk          ChunkConfig   `mapstructure:"chunk"`
	Encode         EncodeConfig  `mapstructure:"encode"`
}

// ChunkConfig holds the splitter settings.
type ChunkConfig struct {
	MinSize   int64  `mapstructure:"min-size"`
	MaxSize   int64  `mapstructure:"max-size"`
	SizeKB    int64  `mapstructure:"size-kb"`
	OutputDir string `mapstructure:"output-dir"`
}

// EncodeConfig holds the base64 transcoder settings.
type EncodeConfig struct {
	MaxSize int64  `mapstructure:"max-size"`
	Shell   string `mapstructure:"shell"`
}

// field: default value
var defaults = map[string]interface{}{
	"address":          "0.0.0.0",
	"port":             limits.DefaultPort,
	"log-level":        "info",
	"max-connections":  0,
	"shutdown-wait":    time.Second,
	"chunk.min-size":   limits.MinChunkSize,
	"chunk.max-size":   limits.MaxChunkSize,
	"chunk.size-kb":    limits.DefaultChunkSizeKB,
	"chunk.output-dir": "",
	"encode.max-size":  limits.MaxEncodeSize,
	"encode.shell":     commands.ShellPOSIX.String(),
}

// Default returns the built-in configuration, ignoring the environment.
func Default() *Config {
	cfg, err := load("", false)
	if err != nil {
		// Defaults alone always unmarshal and validate.
		panic(err)
	}
	return cfg
}

// Load reads configuration from path (json, yaml or toml; empty for none)
// and the environment. Environment variables take precedence over the file.
func Load(path string) (*Config, error) {
	return load(path, true)
}

func load(path string, env bool) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if env {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
		v.AutomaticEnv()
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
		logrus.WithFields(logrus.Fields{
			"function": "Load",
			"file":     v.ConfigFileUsed(),
		}).Debug("Configuration file loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error

	if err := limits.ValidatePort(c.Port); err != nil {
		errs = append(errs, err)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.MaxConnections < 0 {
		errs = append(errs, errors.New("max-connections cannot be negative"))
	}
	if c.ShutdownWait <= 0 {
		errs = append(errs, errors.New("shutdown-wait must be positive"))
	}
	if c.Chunk.MinSize <= 0 || c.Chunk.MinSize > c.Chunk.MaxSize {
		errs = append(errs, fmt.Errorf("chunk size bounds [%d, %d] are invalid", c.Chunk.MinSize, c.Chunk.MaxSize))
	} else if size, err := limits.KiBToBytes(c.Chunk.SizeKB); err != nil {
		errs = append(errs, fmt.Errorf("chunk.size-kb: %w", err))
	} else if err := limits.ValidateChunkSize(size, c.Chunk.MinSize, c.Chunk.MaxSize); err != nil {
		errs = append(errs, fmt.Errorf("chunk.size-kb: %w", err))
	}
	if c.Encode.MaxSize < 0 {
		errs = append(errs, errors.New("encode.max-size cannot be negative"))
	}
	if _, err := commands.ParseShell(c.Encode.Shell); err != nil {
		errs = append(errs, fmt.Errorf("encode.shell: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Level returns the parsed log level, defaulting to Info.
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// Shell returns the parsed decode-command shell.
func (c *Config) Shell() commands.Shell {
	shell, _ := commands.ParseShell(c.Encode.Shell)
	return shell
}
