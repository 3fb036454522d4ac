// pkg/vigil_err/classification.go
//
// Error classification with exit codes. The collector uses the categories
// to decide how a failure is recovered; the CLI uses them for exit codes.

package vigil_err

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCategory classifies errors for appropriate handling
type ErrorCategory int

const (
	// CategoryInternal - bugs in vigil itself (exit 3)
	CategoryInternal ErrorCategory = iota
	// CategoryValidation - bad config or arguments (exit 2)
	CategoryValidation
	// CategoryTransport - remote connect, auth or command failure (exit 1)
	CategoryTransport
	// CategoryParse - unreadable log or stored value (exit 1). Line-level
	// parse failures never leave pkg/detect: the line is kept as undated,
	// so there is no constructor for it.
	CategoryParse
	// CategoryPersistence - record store failure (exit 1)
	CategoryPersistence
	// CategoryNotification - mail relay failure (exit 1)
	CategoryNotification
	// CategoryUser - user cancelled/interrupted (exit 130)
	CategoryUser
)

func (c ErrorCategory) String() string {
	switch c {
	case CategoryValidation:
		return "validation"
	case CategoryTransport:
		return "transport"
	case CategoryParse:
		return "parse"
	case CategoryPersistence:
		return "persistence"
	case CategoryNotification:
		return "notification"
	case CategoryUser:
		return "user"
	default:
		return "internal"
	}
}

// ClassifiedError wraps an error with category and remediation info
type ClassifiedError struct {
	Category    ErrorCategory
	Message     string
	Cause       error
	Remediation []string
}

func (e *ClassifiedError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Cause != nil && e.Cause.Error() != e.Message {
		sb.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Remediation) > 0 {
		sb.WriteString("\n\nHow to fix:")
		for i, step := range e.Remediation {
			sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, step))
		}
	}
	return sb.String()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error category
func (e *ClassifiedError) ExitCode() int {
	switch e.Category {
	case CategoryUser:
		return 130
	case CategoryValidation:
		return 2
	case CategoryInternal:
		return 3
	default:
		return 1
	}
}

// GetExitCode extracts an exit code from any error.
// Returns 0 for nil and expected user errors, 1 for unclassified errors.
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.ExitCode()
	}
	if IsExpectedUserError(err) {
		return 0
	}
	return 1
}

// CategoryOf returns the category of the outermost classified error in the
// chain. Unclassified errors are internal.
func CategoryOf(err error) ErrorCategory {
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.Category
	}
	return CategoryInternal
}

// IsCategory reports whether err carries the given category.
func IsCategory(err error, cat ErrorCategory) bool {
	return err != nil && CategoryOf(err) == cat
}

func NewValidationError(message string, remediation ...string) error {
	return &ClassifiedError{
		Category:    CategoryValidation,
		Message:     message,
		Remediation: remediation,
	}
}

// NewTransportError marks a failure to reach or run commands on a server.
func NewTransportError(server string, cause error, remediation ...string) error {
	return &ClassifiedError{
		Category:    CategoryTransport,
		Message:     fmt.Sprintf("transport to %s failed", server),
		Cause:       cause,
		Remediation: remediation,
	}
}

// NewPersistenceError marks a failed store operation.
func NewPersistenceError(op string, cause error) error {
	return &ClassifiedError{
		Category: CategoryPersistence,
		Message:  fmt.Sprintf("store: %s", op),
		Cause:    cause,
	}
}

func NewNotificationError(message string, cause error) error {
	return &ClassifiedError{
		Category: CategoryNotification,
		Message:  message,
		Cause:    cause,
	}
}
