package config

import (
	"github.com/spf13/viper"

	"github.com/mamaar/shortfunc/pkg/refactor"
)

// Default values not owned by the refactor package.
const (
	DefaultIncludeTests = false
	DefaultWorkers      = 1
	DefaultLogLevel     = "info"
	DefaultLogFormat    = FormatText
)

// DefaultExtensions is the stock file filter.
var DefaultExtensions = []string{".go"}

// Keys lists every configuration key, in the order they are documented.
func Keys() []string {
	return []string{
		"max_length",
		"min_statements",
		"min_method_length",
		"length_weight",
		"max_score_length",
		"max_rounds",
		"strict_init",
		"include_tests",
		"workers",
		"extensions",
		"log.level",
		"log.format",
	}
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	opts := refactor.DefaultOptions()
	return &Config{
		MaxLength:       opts.MaxLength,
		MinStatements:   opts.MinStatements,
		MinMethodLength: opts.MinMethodLength,
		LengthWeight:    opts.LengthWeight,
		MaxScoreLength:  opts.MaxScoreLength,
		MaxRounds:       opts.MaxRounds,
		StrictInit:      opts.StrictInit,
		IncludeTests:    DefaultIncludeTests,
		Workers:         DefaultWorkers,
		Extensions:      append([]string(nil), DefaultExtensions...),
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("max_length", d.MaxLength)
	v.SetDefault("min_statements", d.MinStatements)
	v.SetDefault("min_method_length", d.MinMethodLength)
	v.SetDefault("length_weight", d.LengthWeight)
	v.SetDefault("max_score_length", d.MaxScoreLength)
	v.SetDefault("max_rounds", d.MaxRounds)
	v.SetDefault("strict_init", d.StrictInit)

	v.SetDefault("include_tests", d.IncludeTests)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("extensions", d.Extensions)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}
