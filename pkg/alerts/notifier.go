// pkg/alerts/notifier.go

package alerts

import (
	"context"
	"net/mail"
	"time"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/config"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_err"
	"github.com/sony/gobreaker"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const fallbackSender = "vigil@localhost"

// Notifier sends critical and digest emails. After repeated relay failures
// its breaker opens and sends are refused until the cool-down passes.
type Notifier struct {
	sender  Sender
	breaker *gobreaker.CircuitBreaker
	now     func() time.Time
}

// NotifierOption tweaks a Notifier.
type NotifierOption func(*gobreaker.Settings)

// WithBreakerTimeout sets how long the breaker stays open.
func WithBreakerTimeout(d time.Duration) NotifierOption {
	return func(s *gobreaker.Settings) { s.Timeout = d }
}

// WithFailureThreshold sets how many consecutive failures open the breaker.
func WithFailureThreshold(n uint32) NotifierOption {
	return func(s *gobreaker.Settings) {
		s.ReadyToTrip = func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= n }
	}
}

func NewNotifier(sender Sender, opts ...NotifierOption) *Notifier {
	st := gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Timeout:     5 * time.Minute,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 3 },
		OnStateChange: func(name string, from, to gobreaker.State) {
			otelzap.L().Warn("Mail circuit breaker changed state",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	for _, o := range opts {
		o(&st)
	}
	return &Notifier{
		sender:  sender,
		breaker: gobreaker.NewCircuitBreaker(st),
		now:     time.Now,
	}
}

// NotifyCritical sends one message for this cycle's critical alerts.
func (n *Notifier) NotifyCritical(ctx context.Context, cfg config.EmailConfig, alerts []domain.Alert) error {
	if !n.shouldSend(cfg, alerts) {
		return nil
	}
	r, err := RenderCritical(alerts, n.now())
	if err != nil {
		return vigil_err.NewNotificationError("render critical alert email", err)
	}
	return n.deliver(ctx, cfg, KindCritical, r, len(alerts))
}

// NotifyDigest sends the summary of all new alerts of this cycle.
func (n *Notifier) NotifyDigest(ctx context.Context, cfg config.EmailConfig, alerts []domain.Alert) error {
	if !n.shouldSend(cfg, alerts) {
		return nil
	}
	r, err := RenderDigest(alerts, n.now())
	if err != nil {
		return vigil_err.NewNotificationError("render digest email", err)
	}
	return n.deliver(ctx, cfg, KindDigest, r, len(alerts))
}

// BreakerState reports the circuit state, for health output.
func (n *Notifier) BreakerState() string {
	return n.breaker.State().String()
}

func (n *Notifier) shouldSend(cfg config.EmailConfig, alerts []domain.Alert) bool {
	return cfg.Enabled && len(alerts) > 0 && len(cfg.ToAddrs) > 0
}

func (n *Notifier) deliver(ctx context.Context, cfg config.EmailConfig, kind Kind, r Rendered, count int) error {
	logger := otelzap.Ctx(ctx)

	from := cfg.Sender()
	if from == "" {
		from = fallbackSender
	}
	to := make([]mail.Address, len(cfg.ToAddrs))
	for i, a := range cfg.ToAddrs {
		to[i] = mail.Address{Address: a}
	}
	env := Envelope{
		From: from,
		To:   cfg.ToAddrs,
		Data: buildMime(mail.Address{Address: from}, to, r.Subject, r.Text, r.HTML),
	}

	_, err := n.breaker.Execute(func() (interface{}, error) {
		return nil, n.sender.Send(ctx, cfg, env)
	})
	if err != nil {
		return vigil_err.NewNotificationError("send "+kind.String()+" email", err)
	}

	logger.Info("Notification sent",
		zap.String("kind", kind.String()),
		zap.Int("alerts", count),
		zap.Int("recipients", len(cfg.ToAddrs)))
	return nil
}
