package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is; every error type below unwraps to one.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrConsistency   = errors.New("consistency error")
	ErrDomainRange   = errors.New("domain range error")
)

// ConfigError reports an invalid setup detected at the call that received it:
// unknown modes, dose counts that do not match geometry, duplicate
// applications, or a required attribute left unset.
type ConfigError struct {
	Subject string
	Reason  string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Subject, e.Reason)
}

// Unwrap returns ErrConfiguration.
func (e ConfigError) Unwrap() error { return ErrConfiguration }

// Configf builds a ConfigError with a formatted reason.
func Configf(subject, format string, args ...any) error {
	return ConfigError{Subject: subject, Reason: fmt.Sprintf(format, args...)}
}

// ConsistencyError reports objects that are individually valid but cannot be
// used together.
type ConsistencyError struct {
	Subject string
	Reason  string
}

func (e ConsistencyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Subject, e.Reason)
}

// Unwrap returns ErrConsistency.
func (e ConsistencyError) Unwrap() error { return ErrConsistency }

// Consistencyf builds a ConsistencyError with a formatted reason.
func Consistencyf(subject, format string, args ...any) error {
	return ConsistencyError{Subject: subject, Reason: fmt.Sprintf(format, args...)}
}

// RangeError reports a value outside the range a transform can reach.
type RangeError struct {
	Subject string
	Value   float64
	Min     float64
	Max     float64
}

func (e RangeError) Error() string {
	return fmt.Sprintf("%s: %g outside [%g, %g]", e.Subject, e.Value, e.Min, e.Max)
}

// Unwrap returns ErrDomainRange.
func (e RangeError) Unwrap() error { return ErrDomainRange }
