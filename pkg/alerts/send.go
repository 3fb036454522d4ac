// pkg/alerts/send.go

package alerts

import (
	"bytes"
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"time"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/config"
	cerr "github.com/cockroachdb/errors"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// Envelope is a message plus its SMTP routing.
type Envelope struct {
	From string
	To   []string
	Data []byte
}

// Sender delivers an envelope through the configured relay.
type Sender interface {
	Send(ctx context.Context, cfg config.EmailConfig, env Envelope) error
}

// SMTPSender speaks SMTP with github.com/emersion/go-smtp.
type SMTPSender struct {
	// TLSConfig overrides the TLS client settings; nil verifies against
	// the system roots using the relay host name.
	TLSConfig *tls.Config
}

func (s *SMTPSender) Send(ctx context.Context, cfg config.EmailConfig, env Envelope) error {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr := net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort))
	tlsCfg := s.TLSConfig
	if tlsCfg == nil {
		tlsCfg = &tls.Config{ServerName: cfg.SMTPHost, MinVersion: tls.VersionTLS12}
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return cerr.Wrapf(err, "connect to relay %s", addr)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	var c *smtp.Client
	switch {
	case cfg.ImplicitTLS:
		c = smtp.NewClient(tls.Client(conn, tlsCfg))
	case cfg.UseTLS:
		c, err = smtp.NewClientStartTLS(conn, tlsCfg)
		if err != nil {
			_ = conn.Close()
			return cerr.Wrap(err, "starttls")
		}
	default:
		c = smtp.NewClient(conn)
	}
	defer func() { _ = c.Close() }()

	if cfg.Username != nil && *cfg.Username != "" && cfg.Password != nil {
		if err := c.Auth(sasl.NewPlainClient("", *cfg.Username, *cfg.Password)); err != nil {
			return cerr.Wrap(err, "smtp auth")
		}
	}

	if err := c.Mail(env.From, nil); err != nil {
		return cerr.Wrap(err, "smtp MAIL FROM")
	}
	for _, rcpt := range env.To {
		if err := c.Rcpt(rcpt, nil); err != nil {
			return cerr.Wrapf(err, "smtp RCPT TO %s", rcpt)
		}
	}
	w, err := c.Data()
	if err != nil {
		return cerr.Wrap(err, "smtp DATA")
	}
	if _, err := bytes.NewReader(env.Data).WriteTo(w); err != nil {
		_ = w.Close()
		return cerr.Wrap(err, "write message")
	}
	if err := w.Close(); err != nil {
		return cerr.Wrap(err, "finish message")
	}
	return c.Quit()
}
