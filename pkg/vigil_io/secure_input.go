// pkg/vigil_io/secure_input.go

package vigil_io

import (
	"fmt"
	"os"
	"strings"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"golang.org/x/term"
)

// PromptSecurePassword reads a secret from the terminal without echo.
func PromptSecurePassword(rc *RuntimeContext, prompt string) (string, error) {
	logger := otelzap.Ctx(rc.Ctx)

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	value := strings.TrimRight(string(password), "\r\n")
	if value == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	if strings.ContainsAny(value, "\x00\n") {
		return "", fmt.Errorf("password contains control characters")
	}
	logger.Debug("Read password from terminal")
	return value, nil
}
