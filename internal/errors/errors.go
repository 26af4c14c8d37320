// Package errors provides centralized error handling with optional telemetry integration
package errors

import (
	stderrors "errors"
	"fmt"
	"sync/atomic"
	"time"
)

// ErrorCategory represents the type of error for better categorization
type ErrorCategory string

const (
	CategoryValidation      ErrorCategory = "validation"
	CategoryConfiguration   ErrorCategory = "configuration"
	CategoryFrameProcessing ErrorCategory = "frame-processing"
	CategoryDetection       ErrorCategory = "motion-detection"
	CategoryState           ErrorCategory = "state"
	CategoryBuffer          ErrorCategory = "video-buffer"
	CategoryDatabase        ErrorCategory = "database"
	CategoryExport          ErrorCategory = "clip-export"
	CategoryMQTTConnection  ErrorCategory = "mqtt-connection"
	CategoryMQTTPublish     ErrorCategory = "mqtt-publish"
	CategoryHTTP            ErrorCategory = "http-request"
	CategoryBroadcast       ErrorCategory = "broadcast"
	CategoryFileIO          ErrorCategory = "file-io"
	CategoryGeneric         ErrorCategory = "generic"
)

// ComponentUnknown is used when the component cannot be determined.
const ComponentUnknown = "unknown"

// EnhancedError wraps an error with additional context and metadata
type EnhancedError struct {
	Err       error          // Original error
	Component string         // Component where the error occurred
	Category  ErrorCategory  // Error category for better grouping
	Context   map[string]any // Additional context data
	Timestamp time.Time      // When the error occurred
}

// Error implements the error interface
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

// Unwrap implements the error unwrapping interface
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is implements error type checking; two enhanced errors match on category.
func (ee *EnhancedError) Is(target error) bool {
	if ee2, ok := target.(*EnhancedError); ok {
		return ee.Category == ee2.Category
	}
	return stderrors.Is(ee.Err, target)
}

// GetCategory returns the error category as a string
func (ee *EnhancedError) GetCategory() string {
	return string(ee.Category)
}

// GetContext returns the context map (may be nil)
func (ee *EnhancedError) GetContext() map[string]any {
	return ee.Context
}

// ErrorBuilder provides a fluent interface for creating enhanced errors
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New creates a new error with enhanced context
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{
		err: err,
		// context is lazily initialized when needed
	}
}

// Newf creates a new formatted error with enhanced context
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// NewStd returns a plain standard error without enhancement.
func NewStd(text string) error {
	return stderrors.New(text)
}

// Component sets the component name
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the error category for better grouping
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context adds context data to the error
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// Timing adds performance timing context
func (eb *ErrorBuilder) Timing(operation string, duration time.Duration) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context["operation"] = operation
	eb.context["duration_ms"] = duration.Milliseconds()
	return eb
}

// Build creates the EnhancedError and triggers optional telemetry reporting
func (eb *ErrorBuilder) Build() *EnhancedError {
	ee := &EnhancedError{
		Err:       eb.err,
		Component: eb.component,
		Category:  eb.category,
		Context:   eb.context,
		Timestamp: time.Now(),
	}
	if ee.Component == "" {
		ee.Component = ComponentUnknown
	}
	if ee.Category == "" {
		ee.Category = CategoryGeneric
	}

	if hasActiveReporting.Load() {
		reportToTelemetry(ee)
	}

	return ee
}

// Reporter receives enhanced errors for out-of-band reporting (e.g. Sentry).
type Reporter interface {
	ReportError(ee *EnhancedError)
}

var (
	hasActiveReporting atomic.Bool
	telemetryReporter  atomic.Pointer[Reporter]
)

// SetTelemetryReporter installs a reporter; passing nil disables reporting.
// Installed by the telemetry package to avoid an import cycle.
func SetTelemetryReporter(r Reporter) {
	if r == nil {
		hasActiveReporting.Store(false)
		telemetryReporter.Store(nil)
		return
	}
	telemetryReporter.Store(&r)
	hasActiveReporting.Store(true)
}

func reportToTelemetry(ee *EnhancedError) {
	if rp := telemetryReporter.Load(); rp != nil {
		(*rp).ReportError(ee)
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
