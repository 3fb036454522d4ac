// pkg/remote/ssh.go
// SSH transport for reading logs on monitored servers

package remote

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/config"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_err"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Session runs commands on one connected server.
type Session interface {
	// Exec runs cmd, feeding stdin when non-empty. A non-zero exit status
	// is reported through the int, not the error.
	Exec(ctx context.Context, cmd, stdin string) (string, int, error)
	Close() error
}

// Dialer opens sessions to servers.
type Dialer interface {
	Dial(ctx context.Context, server domain.Server) (Session, error)
}

var defaultKeyNames = []string{"id_ed25519", "id_ecdsa", "id_rsa"}

// SSHDialer connects with golang.org/x/crypto/ssh.
type SSHDialer struct {
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	KnownHostsFile string
	HomeDir        string
}

func NewSSHDialer(cfg config.CollectionConfig) *SSHDialer {
	return &SSHDialer{
		ConnectTimeout: cfg.ConnectTimeout(),
		CommandTimeout: cfg.CommandTimeout(),
		KnownHostsFile: cfg.KnownHostsFile,
	}
}

// Dial authenticates to server using, in order: the configured password,
// the configured private key, the local ssh-agent and default keys in
// ~/.ssh.
func (d *SSHDialer) Dial(ctx context.Context, server domain.Server) (Session, error) {
	logger := otelzap.Ctx(ctx)

	hostKeys, err := d.hostKeyCallback()
	if err != nil {
		return nil, vigil_err.NewTransportError(server.Name, err,
			"check collection.known_hosts_file points to a readable known_hosts file")
	}

	auth, agentConn := d.authMethods(ctx, server)
	if len(auth) == 0 {
		return nil, vigil_err.NewTransportError(server.Name,
			cerr.New("no usable authentication method"),
			"configure a password or private_key_path for the server")
	}

	port := server.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(server.Host, strconv.Itoa(port))
	cfg := &ssh.ClientConfig{
		User:            server.Username,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         d.ConnectTimeout,
	}

	closeAgent := func() {
		if agentConn != nil {
			_ = agentConn.Close()
		}
	}

	nd := net.Dialer{Timeout: d.ConnectTimeout}
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		closeAgent()
		return nil, vigil_err.NewTransportError(server.Name, cerr.Wrapf(err, "dial %s", addr))
	}
	if d.ConnectTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(d.ConnectTimeout))
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()
		closeAgent()
		return nil, vigil_err.NewTransportError(server.Name, cerr.Wrapf(err, "ssh handshake with %s", addr))
	}
	_ = conn.SetDeadline(time.Time{})

	logger.Debug("SSH session established",
		zap.String("server", server.Name),
		zap.String("addr", addr),
		zap.String("user", server.Username))

	return &sshSession{
		server:  server.Name,
		client:  ssh.NewClient(c, chans, reqs),
		agent:   agentConn,
		timeout: d.CommandTimeout,
	}, nil
}

func (d *SSHDialer) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if d.KnownHostsFile == "" {
		// #nosec G106 -- unknown hosts are accepted unless known_hosts_file is configured
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(d.KnownHostsFile)
	if err != nil {
		return nil, cerr.Wrapf(err, "load known hosts %s", d.KnownHostsFile)
	}
	return cb, nil
}

func (d *SSHDialer) authMethods(ctx context.Context, server domain.Server) ([]ssh.AuthMethod, net.Conn) {
	logger := otelzap.Ctx(ctx)
	var methods []ssh.AuthMethod
	var signers []ssh.Signer

	home := d.HomeDir
	if home == "" {
		home, _ = os.UserHomeDir()
	}

	if server.PrivateKeyPath != nil && *server.PrivateKeyPath != "" {
		signer, err := loadSigner(expandHome(*server.PrivateKeyPath, home), server.Password)
		if err != nil {
			logger.Warn("Could not load private key",
				zap.String("server", server.Name),
				zap.String("path", *server.PrivateKeyPath),
				zap.Error(err))
		} else {
			signers = append(signers, signer)
		}
	}

	if home != "" {
		for _, name := range defaultKeyNames {
			path := filepath.Join(home, ".ssh", name)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			signer, err := loadSigner(path, nil)
			if err != nil {
				logger.Debug("Skipping default key", zap.String("path", path), zap.Error(err))
				continue
			}
			signers = append(signers, signer)
		}
	}

	if len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}

	var agentConn net.Conn
	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		conn, err := net.Dial("unix", sock)
		if err != nil {
			logger.Debug("ssh-agent unavailable", zap.Error(err))
		} else {
			agentConn = conn
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	if server.HasPassword() {
		pw := *server.Password
		methods = append(methods,
			ssh.Password(pw),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = pw
				}
				return answers, nil
			}),
		)
	}

	return methods, agentConn
}

// expandHome resolves a leading "~/" against home.
func expandHome(path, home string) string {
	if home == "" || !strings.HasPrefix(path, "~/") {
		return path
	}
	return filepath.Join(home, path[2:])
}

func loadSigner(path string, passphrase *string) (ssh.Signer, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(pem)
	var missing *ssh.PassphraseMissingError
	if cerr.As(err, &missing) && passphrase != nil && *passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(pem, []byte(*passphrase))
	}
	return signer, err
}

type sshSession struct {
	server  string
	client  *ssh.Client
	agent   net.Conn
	timeout time.Duration
}

func (s *sshSession) Exec(ctx context.Context, cmd, stdin string) (string, int, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return "", -1, vigil_err.NewTransportError(s.server, cerr.Wrap(err, "open session"))
	}
	defer func() { _ = sess.Close() }()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr
	if stdin != "" {
		sess.Stdin = strings.NewReader(stdin)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- sess.Run(cmd) }()

	select {
	case err = <-done:
	case <-ctx.Done():
		_ = sess.Signal(ssh.SIGKILL)
		_ = sess.Close()
		return "", -1, vigil_err.NewTransportError(s.server, cerr.Wrap(ctx.Err(), "remote command timed out"))
	}

	if err == nil {
		return stdout.String(), 0, nil
	}
	var exitErr *ssh.ExitError
	if cerr.As(err, &exitErr) {
		otelzap.Ctx(ctx).Debug("Remote command exited non-zero",
			zap.String("server", s.server),
			zap.Int("exit_code", exitErr.ExitStatus()),
			zap.String("stderr", strings.TrimSpace(stderr.String())))
		return stdout.String(), exitErr.ExitStatus(), nil
	}
	return stdout.String(), -1, vigil_err.NewTransportError(s.server, cerr.Wrap(err, "run remote command"))
}

func (s *sshSession) Close() error {
	err := s.client.Close()
	if s.agent != nil {
		_ = s.agent.Close()
	}
	return err
}
