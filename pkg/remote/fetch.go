// pkg/remote/fetch.go

package remote

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"mvdan.cc/sh/v3/syntax"
)

const (
	debianAuthLog = "/var/log/auth.log"
	redhatSecure  = "/var/log/secure"
)

// Result is the outcome of one fetch.
type Result struct {
	Lines         []string
	LogIdentifier string
}

// Fetcher tails log sources on remote servers.
type Fetcher struct {
	dialer Dialer
}

func NewFetcher(d Dialer) *Fetcher {
	return &Fetcher{dialer: d}
}

// Fetch returns up to tail trailing lines of source on server. For
// "ssh:auto" the returned identifier names the source that was found.
func (f *Fetcher) Fetch(ctx context.Context, server domain.Server, source string, tail int) (Result, error) {
	src, err := ParseSource(source)
	if err != nil {
		return Result{}, err
	}

	sess, err := f.dialer.Dial(ctx, server)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = sess.Close() }()

	switch src.Kind {
	case SourceFile:
		out, _, err := f.tailFile(ctx, sess, server, src.Path, tail)
		if err != nil {
			return Result{}, err
		}
		return Result{Lines: splitLines(out), LogIdentifier: src.Identifier()}, nil
	case SourceJournal:
		out, _, err := f.tailUnit(ctx, sess, server, src.Unit, tail)
		if err != nil {
			return Result{}, err
		}
		return Result{Lines: splitLines(out), LogIdentifier: src.Identifier()}, nil
	default:
		return f.autoDetect(ctx, sess, server, tail)
	}
}

// autoDetect tries the journal units and then the auth log files, using
// the distribution family to pick which to try first.
func (f *Fetcher) autoDetect(ctx context.Context, sess Session, server domain.Server, tail int) (Result, error) {
	logger := otelzap.Ctx(ctx)

	probe, _, err := sess.Exec(ctx, "command -v journalctl >/dev/null 2>&1; echo $?", "")
	if err != nil {
		return Result{}, err
	}
	hasJournal := strings.HasSuffix(strings.TrimSpace(probe), "0")

	osRelease, _, err := sess.Exec(ctx, "cat /etc/os-release 2>/dev/null || true", "")
	if err != nil {
		return Result{}, err
	}
	debian := IsDebianFamily(osRelease)

	unit, altUnit := "sshd", "ssh"
	file, altFile := redhatSecure, debianAuthLog
	if debian {
		unit, altUnit = altUnit, unit
		file, altFile = altFile, file
	}

	logger.Debug("Auto-detecting SSH log source",
		zap.String("server", server.Name),
		zap.Bool("journal", hasJournal),
		zap.Bool("debian_family", debian))

	if hasJournal {
		for _, u := range []string{unit, altUnit} {
			out, code, err := f.tailUnit(ctx, sess, server, u, tail)
			if err != nil {
				return Result{}, err
			}
			if code == 0 && strings.TrimSpace(out) != "" {
				return Result{Lines: splitLines(out), LogIdentifier: journalPrefix + u}, nil
			}
		}
	}

	out, code, err := f.tailFile(ctx, sess, server, file, tail)
	if err != nil {
		return Result{}, err
	}
	if code == 0 && strings.TrimSpace(out) != "" {
		return Result{Lines: splitLines(out), LogIdentifier: file}, nil
	}

	out, _, err = f.tailFile(ctx, sess, server, altFile, tail)
	if err != nil {
		return Result{}, err
	}
	return Result{Lines: splitLines(out), LogIdentifier: altFile}, nil
}

func (f *Fetcher) tailFile(ctx context.Context, sess Session, server domain.Server, path string, tail int) (string, int, error) {
	q, err := quote(path)
	if err != nil {
		return "", -1, err
	}
	return ExecPrivileged(ctx, sess, fmt.Sprintf("tail -n %d %s", tail, q), server.Password)
}

func (f *Fetcher) tailUnit(ctx context.Context, sess Session, server domain.Server, unit string, tail int) (string, int, error) {
	q, err := quote(unit)
	if err != nil {
		return "", -1, err
	}
	return ExecPrivileged(ctx, sess, fmt.Sprintf("journalctl -u %s -n %d --no-pager", q, tail), server.Password)
}

// ExecPrivileged runs cmd as the login user, then through passwordless
// sudo, then through sudo reading password from stdin. The first zero exit
// wins. When every attempt fails the first attempt's output is returned,
// unless the password attempt ran, whose result is returned instead.
func ExecPrivileged(ctx context.Context, sess Session, cmd string, password *string) (string, int, error) {
	out, code, err := sess.Exec(ctx, cmd, "")
	if err != nil || code == 0 {
		return out, code, err
	}

	out2, code2, err := sess.Exec(ctx, "sudo -n "+cmd, "")
	if err != nil {
		return "", -1, err
	}
	if code2 == 0 {
		return out2, code2, nil
	}

	if password != nil && *password != "" {
		return sess.Exec(ctx, "sudo -S -p '' "+cmd, *password+"\n")
	}
	return out, code, nil
}

// IsDebianFamily reads /etc/os-release content.
func IsDebianFamily(osRelease string) bool {
	var id, like string
	sc := bufio.NewScanner(strings.NewReader(osRelease))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "ID="):
			id = strings.ToLower(strings.Trim(strings.TrimPrefix(line, "ID="), `"'`))
		case strings.HasPrefix(line, "ID_LIKE="):
			like = strings.ToLower(strings.Trim(strings.TrimPrefix(line, "ID_LIKE="), `"'`))
		}
	}
	switch id {
	case "debian", "ubuntu", "raspbian":
		return true
	}
	return strings.Contains(like, "debian") || strings.Contains(like, "ubuntu")
}

func quote(s string) (string, error) {
	q, err := syntax.Quote(s, syntax.LangPOSIX)
	if err != nil {
		return "", cerr.Wrapf(err, "cannot quote %q for the remote shell", s)
	}
	return q, nil
}

func splitLines(out string) []string {
	if out == "" {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
