package cli

import (
	"github.com/spf13/pflag"

	"github.com/mamaar/shortfunc/pkg/config"
)

// Flags holds the flags shared by every command.
type Flags struct {
	ConfigPath string
	JSON       bool
	NoColor    bool
}

// bind registers the global flags on fs. Configuration keys get a flag of
// their own that config.Load picks up when set; their defaults here are
// only shown in help.
func (f *Flags) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&f.ConfigPath, "config", "c", "", "config file (default: ./"+config.FileName+" or ~/"+config.FileName+")")
	fs.BoolVar(&f.JSON, "json", false, "output results in JSON format")
	fs.BoolVar(&f.NoColor, "no-color", false, "disable colored output")

	d := config.Default()
	fs.Int(config.FlagName("max_length"), d.MaxLength, "line count above which a function is refactored")
	fs.Int(config.FlagName("min_statements"), d.MinStatements, "smallest number of statements worth extracting")
	fs.Int(config.FlagName("min_method_length"), d.MinMethodLength, "smallest function an extraction may leave behind")
	fs.Float64(config.FlagName("length_weight"), d.LengthWeight, "weight of the length component of the score")
	fs.Float64(config.FlagName("max_score_length"), d.MaxScoreLength, "cap of the length component of the score")
	fs.Int(config.FlagName("max_rounds"), d.MaxRounds, "maximum number of extractions per file")
	fs.Bool(config.FlagName("strict_init"), d.StrictInit, "treat 'var x T' as uninitialized")
	fs.Bool(config.FlagName("include_tests"), d.IncludeTests, "also refactor _test.go files")
	fs.Int(config.FlagName("workers"), d.Workers, "number of package directories processed in parallel")
	fs.StringSlice(config.FlagName("extensions"), d.Extensions, "file extensions to refactor")
	fs.String(config.FlagName("log.level"), d.Log.Level, "log level (debug, info, warn, error)")
	fs.String(config.FlagName("log.format"), d.Log.Format, "log format (text, json)")
}
