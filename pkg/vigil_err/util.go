// pkg/vigil_err/util.go

package vigil_err

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// UserError marks an error the user can fix; the CLI exits 0 on it.
type UserError struct {
	cause error
}

func (e *UserError) Error() string {
	return e.cause.Error()
}

func (e *UserError) Unwrap() error {
	return e.cause
}

// NewExpectedError wraps an error for softer UX handling.
func NewExpectedError(err error) error {
	if err == nil {
		return nil
	}
	return &UserError{cause: err}
}

// IsExpectedUserError checks if the error is marked as expected.
func IsExpectedUserError(err error) bool {
	var e *UserError
	return errors.As(err, &e)
}

// PrintError prints a human-readable error message without exiting.
func PrintError(userMessage string, err error) {
	if err == nil {
		return
	}
	if IsExpectedUserError(err) {
		zap.L().Warn(userMessage, zap.Error(err))
		fmt.Fprintf(os.Stderr, "Notice: %s: %v\n", userMessage, err)
		return
	}
	zap.L().Error(userMessage, zap.Error(err))
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", userMessage, err)
}
