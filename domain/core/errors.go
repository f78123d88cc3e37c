package core

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors - centralized error definitions
var (
	// Configuration-time errors. These abort a run.
	ErrLoad              = errors.New("load failed")
	ErrUnknownFilter     = errors.New("unknown filter")
	ErrDuplicateQuestion = errors.New("duplicate question")
	ErrInvalidBreakdown  = errors.New("invalid breakdown")
	ErrConfiguration     = errors.New("invalid configuration")

	// Per-test computation errors. These are recorded inline in a report.
	ErrInsufficientData   = errors.New("insufficient data for analysis")
	ErrDegenerateVariance = errors.New("degenerate variance")
	ErrTestTimeout        = errors.New("statistical test timed out")
	ErrTestPanicked       = errors.New("statistical test panicked")
)

// LoadError reports bad or missing input data
type LoadError struct {
	Source  string
	Reason  string
	Columns []string
	Cause   error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "load %s: %s", e.Source, e.Reason)
	if len(e.Columns) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Columns, ", "))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *LoadError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrLoad, e.Cause}
	}
	return []error{ErrLoad}
}

// UnknownFilterError reports a filter reference that was never registered
type UnknownFilterError struct {
	Name string
}

func (e *UnknownFilterError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnknownFilter, e.Name)
}

func (e *UnknownFilterError) Unwrap() error { return ErrUnknownFilter }

// DuplicateQuestionError reports an identifier collision in the question registry
type DuplicateQuestionError struct {
	ID string
}

func (e *DuplicateQuestionError) Error() string {
	return fmt.Sprintf("%v: %q already defined", ErrDuplicateQuestion, e.ID)
}

func (e *DuplicateQuestionError) Unwrap() error { return ErrDuplicateQuestion }

// InvalidBreakdownError reports a breakdown field absent from the metadata schema
type InvalidBreakdownError struct {
	Question string
	Field    string
}

func (e *InvalidBreakdownError) Error() string {
	return fmt.Sprintf("%v: question %q breaks down by unknown field %q", ErrInvalidBreakdown, e.Question, e.Field)
}

func (e *InvalidBreakdownError) Unwrap() error { return ErrInvalidBreakdown }

// ConfigurationError reports structural misconfiguration caught before analysis begins
type ConfigurationError struct {
	Subject string // offending identifier
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("%v: %s", ErrConfiguration, e.Reason)
	}
	return fmt.Sprintf("%v: %s: %s", ErrConfiguration, e.Subject, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// Error constructors with context
func NewLoadError(source, reason string, cause error) error {
	return &LoadError{Source: source, Reason: reason, Cause: cause}
}

func NewMissingColumnsError(source string, columns []string) error {
	return &LoadError{Source: source, Reason: "missing required columns", Columns: columns}
}

func NewConfigurationError(subject, format string, args ...interface{}) error {
	return &ConfigurationError{Subject: subject, Reason: fmt.Sprintf(format, args...)}
}

// Error checking helpers

// IsConfigError reports whether err should abort a run before any test executes
func IsConfigError(err error) bool {
	return errors.Is(err, ErrUnknownFilter) ||
		errors.Is(err, ErrDuplicateQuestion) ||
		errors.Is(err, ErrInvalidBreakdown) ||
		errors.Is(err, ErrConfiguration)
}

// IsComputationError reports whether err is an isolated per-test failure
func IsComputationError(err error) bool {
	return errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrDegenerateVariance) ||
		errors.Is(err, ErrTestTimeout) ||
		errors.Is(err, ErrTestPanicked)
}
