package model

import "errors"

// Analysis errors.
// Scrapers and extractors wrap these with fmt.Errorf("...: %w") so that
// callers can tell failure modes apart with errors.Is while the message
// still carries the upstream detail.
var (
	// ErrDataUnavailable is returned when a required upstream field is
	// missing, for example a package without versions or repository.
	ErrDataUnavailable = errors.New("required data is unavailable")

	// ErrUnsupportedRepository is returned when the repository reference does
	// not look like <scheme>://<host>/<owner>/<repo>.
	ErrUnsupportedRepository = errors.New("unsupported repository URL")

	// ErrRateLimited is returned when the code-hosting API quota is exhausted.
	// The CLI turns it into guidance about authenticating.
	ErrRateLimited = errors.New("API rate limit exceeded")

	// ErrPackageNotFound is returned when the registry has no such package.
	ErrPackageNotFound = errors.New("the package could not be found")

	// ErrExtraction is returned when a metric extractor cannot find the raw
	// field it needs. It aborts the analysis of that package.
	ErrExtraction = errors.New("metric extraction failed")

	// ErrInvalidMessageType marks a rule declared with a type outside
	// pro, note and cons. It is a programming error and is raised with panic.
	ErrInvalidMessageType = errors.New("unknown message type")
)
