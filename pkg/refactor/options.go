package refactor

import "github.com/mamaar/shortfunc/pkg/types"

// Options tunes candidate search and selection.
type Options struct {
	// MaxLength is the printed line count above which a function is
	// refactored.
	MaxLength int
	// MinStatements is the smallest window that is considered.
	MinStatements int
	// MinMethodLength is the smallest remainder an extraction may leave.
	MinMethodLength int
	// LengthWeight scales the length component of the score.
	LengthWeight float64
	// MaxScoreLength caps the length component of the score.
	MaxScoreLength float64
	// MaxRounds bounds the number of extractions applied to one file.
	MaxRounds int
	// StrictInit treats `var x T` without a value as uninitialized, so
	// windows reading such a variable before any write are rejected.
	StrictInit bool
}

// DefaultOptions returns the stock thresholds.
func DefaultOptions() Options {
	return Options{
		MaxLength:       30,
		MinStatements:   3,
		MinMethodLength: 6,
		LengthWeight:    0.1,
		MaxScoreLength:  3,
		MaxRounds:       500,
	}
}

// Validate reports nonsensical settings.
func (o Options) Validate() error {
	switch {
	case o.MaxLength < 1:
		return types.Errorf(types.ConfigError, "max_length must be positive, got %d", o.MaxLength)
	case o.MinStatements < 1:
		return types.Errorf(types.ConfigError, "min_statements must be positive, got %d", o.MinStatements)
	case o.MinMethodLength < 1:
		return types.Errorf(types.ConfigError, "min_method_length must be positive, got %d", o.MinMethodLength)
	case o.LengthWeight < 0:
		return types.Errorf(types.ConfigError, "length_weight must not be negative, got %g", o.LengthWeight)
	case o.MaxScoreLength < 0:
		return types.Errorf(types.ConfigError, "max_score_length must not be negative, got %g", o.MaxScoreLength)
	case o.MaxRounds < 1:
		return types.Errorf(types.ConfigError, "max_rounds must be positive, got %d", o.MaxRounds)
	}
	return nil
}
