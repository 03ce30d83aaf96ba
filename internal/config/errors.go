package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Validate wraps them when the offending value
// helps the user.
var (
	// ErrNoInput is returned when the input directory is empty.
	ErrNoInput = errors.New("no input directory specified")

	// ErrInvalidThreshold is returned when the threshold is outside [0,1].
	ErrInvalidThreshold = errors.New("invalid threshold: must be between 0 and 1")

	// ErrInvalidFieldCutoff is returned when the field cutoff is outside (0,1].
	ErrInvalidFieldCutoff = errors.New("invalid field cutoff: must be greater than 0 and at most 1")

	// ErrInvalidWeights is returned when a weight is negative, names an
	// unknown field, or all weights are zero.
	ErrInvalidWeights = errors.New("invalid field weights")

	// ErrNoExtensions is returned when no issue file extension is configured.
	ErrNoExtensions = errors.New("no issue file extensions configured")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be at least 1")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
