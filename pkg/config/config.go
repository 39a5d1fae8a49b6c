// Package config loads shortfunc settings from a YAML file, SHORTFUNC_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mamaar/shortfunc/pkg/discover"
	"github.com/mamaar/shortfunc/pkg/refactor"
	"github.com/mamaar/shortfunc/pkg/types"
)

// FileName is the config file looked up when no path is given.
const FileName = ".shortfunc.yaml"

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SHORTFUNC"

// Config holds every setting of a run.
type Config struct {
	MaxLength       int       `mapstructure:"max_length" yaml:"max_length" json:"max_length"`
	MinStatements   int       `mapstructure:"min_statements" yaml:"min_statements" json:"min_statements"`
	MinMethodLength int       `mapstructure:"min_method_length" yaml:"min_method_length" json:"min_method_length"`
	LengthWeight    float64   `mapstructure:"length_weight" yaml:"length_weight" json:"length_weight"`
	MaxScoreLength  float64   `mapstructure:"max_score_length" yaml:"max_score_length" json:"max_score_length"`
	MaxRounds       int       `mapstructure:"max_rounds" yaml:"max_rounds" json:"max_rounds"`
	StrictInit      bool      `mapstructure:"strict_init" yaml:"strict_init" json:"strict_init"`
	IncludeTests    bool      `mapstructure:"include_tests" yaml:"include_tests" json:"include_tests"`
	Workers         int       `mapstructure:"workers" yaml:"workers" json:"workers"`
	Extensions      []string  `mapstructure:"extensions" yaml:"extensions" json:"extensions"`
	Log             LogConfig `mapstructure:"log" yaml:"log" json:"log"`

	// path of the file the settings were read from, if any
	source string
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// Source returns the config file that was read, or "" when only defaults,
// environment and flags were used.
func (c *Config) Source() string {
	return c.source
}

// Load reads the configuration. An explicit path must exist; without one,
// FileName is looked up in the working directory and then in the home
// directory, and a missing file is not an error. Flags in flags whose name
// is a key with '_' and '.' turned into '-' (max-length, log-level) take
// precedence over everything else when set on the command line.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for _, key := range Keys() {
			if f := flags.Lookup(FlagName(key)); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, configError(err, "bind flag %s", f.Name)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, configError(err, "read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configError(err, "decode config")
	}
	cfg.source = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FlagName is the command-line flag bound to key.
func FlagName(key string) string {
	return strings.NewReplacer("_", "-", ".", "-").Replace(key)
}

// Validate reports settings no run can use.
func (c *Config) Validate() error {
	if err := c.RefactorOptions().Validate(); err != nil {
		return err
	}
	if c.Workers < 1 {
		return types.Errorf(types.ConfigError, "workers must be positive, got %d", c.Workers)
	}
	if len(c.Extensions) == 0 {
		return types.Errorf(types.ConfigError, "extensions must not be empty")
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return types.Errorf(types.ConfigError, "extension %q must start with a dot", ext)
		}
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case FormatText, FormatJSON:
	default:
		return types.Errorf(types.ConfigError, "log.format must be %q or %q, got %q", FormatText, FormatJSON, c.Log.Format)
	}
	return nil
}

// RefactorOptions returns the driver thresholds.
func (c *Config) RefactorOptions() refactor.Options {
	return refactor.Options{
		MaxLength:       c.MaxLength,
		MinStatements:   c.MinStatements,
		MinMethodLength: c.MinMethodLength,
		LengthWeight:    c.LengthWeight,
		MaxScoreLength:  c.MaxScoreLength,
		MaxRounds:       c.MaxRounds,
		StrictInit:      c.StrictInit,
	}
}

// DiscoverOptions returns the file filter.
func (c *Config) DiscoverOptions() discover.Options {
	return discover.Options{
		IncludeTests: c.IncludeTests,
		Extensions:   c.Extensions,
	}
}

func (c *Config) EngineConfig(dryRun bool) refactor.EngineConfig {
	return refactor.EngineConfig{Workers: c.Workers, DryRun: dryRun}
}

// WriteYAML writes c in the format Load reads.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return configError(err, "encode config")
	}
	return enc.Close()
}

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// NewLogger builds the slog logger described by c.Log, writing to w.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, types.Errorf(types.ConfigError, "log.level %q is not one of debug, info, warn, error", s)
	}
	return level, nil
}

func configError(err error, format string, args ...any) error {
	return &types.RefactorError{
		Type:    types.ConfigError,
		Message: fmt.Sprintf(format, args...) + ": " + err.Error(),
		Cause:   err,
	}
}
