package archive

import (
	"errors"
	"fmt"
)

// Sentinel causes of a ConfigurationError, matched with errors.Is.
var (
	ErrNoJobs           = errors.New("no jobs")
	ErrTooManyJobs      = errors.New("too many jobs")
	ErrInvalidJob       = errors.New("invalid job")
	ErrDuplicateJob     = errors.New("duplicate job name")
	ErrInvalidBucket    = errors.New("malformed bucket identifier")
	ErrInvalidHour      = errors.New("invalid hour")
	ErrInvalidFunction  = errors.New("invalid function")
	ErrInvalidRetention = errors.New("invalid retention")
	ErrInvalidIdentity  = errors.New("invalid identity")
	ErrInvalidTimezone  = errors.New("invalid timezone")
)

// ConfigurationError reports construct properties that cannot be
// synthesized. It is always fatal and is returned before any resource is
// derived.
type ConfigurationError struct {
	// Field locates the offending property, e.g. "schedules[2].name".
	Field string
	// Reason is a human readable description.
	Reason string
	// Err is one of the Err* sentinels.
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configErr(field string, sentinel error, format string, args ...any) *ConfigurationError {
	reason := sentinel.Error()
	if format != "" {
		reason = fmt.Sprintf(format, args...)
	}
	return &ConfigurationError{Field: field, Reason: reason, Err: sentinel}
}
