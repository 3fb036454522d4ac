package alerts

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/config"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_err"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	mock.Mock
	mu   sync.Mutex
	sent []Envelope
}

func (m *mockSender) Send(ctx context.Context, cfg config.EmailConfig, env Envelope) error {
	args := m.Called(ctx, cfg, env)
	if args.Error(0) == nil {
		m.mu.Lock()
		m.sent = append(m.sent, env)
		m.mu.Unlock()
	}
	return args.Error(0)
}

func enabledEmail() config.EmailConfig {
	return config.EmailConfig{
		Enabled:        true,
		SMTPHost:       "mail.example.com",
		SMTPPort:       587,
		FromAddr:       domain.Ptr("vigil@example.com"),
		ToAddrs:        []string{"ops@example.com", "sec@example.com"},
		TimeoutSeconds: 5,
	}
}

func TestNotifier_SkipsWhenDisabledOrEmpty(t *testing.T) {
	sender := &mockSender{}
	n := NewNotifier(sender)
	alerts := []domain.Alert{testAlert("web1", domain.RuleSSHDFailed, "x")}

	disabled := enabledEmail()
	disabled.Enabled = false
	require.NoError(t, n.NotifyDigest(context.Background(), disabled, alerts))

	noRcpt := enabledEmail()
	noRcpt.ToAddrs = nil
	require.NoError(t, n.NotifyCritical(context.Background(), noRcpt, alerts))

	require.NoError(t, n.NotifyDigest(context.Background(), enabledEmail(), nil))
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotifier_SendsEnvelope(t *testing.T) {
	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	n := NewNotifier(sender)

	err := n.NotifyCritical(context.Background(), enabledEmail(),
		[]domain.Alert{testAlert("web1", domain.RuleBreakInAttempt, "POSSIBLE BREAK-IN ATTEMPT")})
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	env := sender.sent[0]
	assert.Equal(t, "vigil@example.com", env.From)
	assert.Equal(t, []string{"ops@example.com", "sec@example.com"}, env.To)
	assert.Contains(t, string(env.Data), "Subject: vigil: CRITICAL 1 alert(s) on 1 server(s)")
}

func TestNotifier_FallbackSender(t *testing.T) {
	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	n := NewNotifier(sender)

	cfg := enabledEmail()
	cfg.FromAddr = nil
	require.NoError(t, n.NotifyDigest(context.Background(), cfg, []domain.Alert{testAlert("web1", domain.RuleSSHDFailed, "x")}))
	assert.Equal(t, fallbackSender, sender.sent[0].From)

	cfg.Username = domain.Ptr("relay-user@example.com")
	require.NoError(t, n.NotifyDigest(context.Background(), cfg, []domain.Alert{testAlert("web1", domain.RuleSSHDFailed, "x")}))
	assert.Equal(t, "relay-user@example.com", sender.sent[1].From)
}

func TestNotifier_BreakerOpensAfterFailures(t *testing.T) {
	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("relay down"))
	n := NewNotifier(sender, WithFailureThreshold(2))
	alerts := []domain.Alert{testAlert("web1", domain.RuleSSHDFailed, "x")}

	for i := 0; i < 2; i++ {
		err := n.NotifyDigest(context.Background(), enabledEmail(), alerts)
		require.Error(t, err)
		assert.True(t, vigil_err.IsCategory(err, vigil_err.CategoryNotification))
	}
	assert.Equal(t, "open", n.BreakerState())

	err := n.NotifyDigest(context.Background(), enabledEmail(), alerts)
	require.Error(t, err)
	assert.True(t, vigil_err.IsCategory(err, vigil_err.CategoryNotification))
	sender.AssertNumberOfCalls(t, "Send", 2)
}
