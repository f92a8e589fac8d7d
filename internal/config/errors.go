package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and the loader, and
// support errors.Is() for programmatic handling.
var (
	// ErrInvalidRanges is returned when the score band is missing,
	// unparsable, negative or inverted.
	ErrInvalidRanges = errors.New("invalid ranges: expected low,good with 0 <= low <= good")

	// ErrInvalidConcurrency is returned when concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidFormat is returned for an unknown report format.
	ErrInvalidFormat = errors.New("invalid format: must be text, json, yaml or markdown")

	// ErrConflictingReportFormats is returned when more than one of
	// --json, --yaml and --markdown is given.
	ErrConflictingReportFormats = errors.New("conflicting report formats: use only one of --json, --yaml and --markdown")

	// ErrConflictingLists is returned when a package is both allowed and banned.
	ErrConflictingLists = errors.New("package is both allowed and banned")

	// ErrNoDBDir is returned when history is enabled without a database directory.
	ErrNoDBDir = errors.New("history enabled but no database directory configured")

	// ErrConfigNotFound is returned when an explicit configuration file
	// does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
