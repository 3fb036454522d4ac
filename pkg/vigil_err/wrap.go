// pkg/vigil_err/wrap.go

package vigil_err

import (
	cerr "github.com/cockroachdb/errors"
)

// WrapValidationError marks err as a failed validation pass with a hint.
func WrapValidationError(err error) error {
	return cerr.WithHint(cerr.WithStack(err), "validation failed")
}

// WrapConfigError attaches the config path as a hint.
func WrapConfigError(err error, path string) error {
	return cerr.WithHintf(cerr.WithStack(err), "check %s or the VIGIL_* environment overrides", path)
}
