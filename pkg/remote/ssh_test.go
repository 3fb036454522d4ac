package remote

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/config"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_err"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func writeTestKey(t *testing.T, dir, name string) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
	return path
}

func TestNewSSHDialer(t *testing.T) {
	d := NewSSHDialer(config.CollectionConfig{ConnectTimeoutSeconds: 7, CommandTimeoutSeconds: 9, KnownHostsFile: "/tmp/kh"})
	assert.Equal(t, 7*time.Second, d.ConnectTimeout)
	assert.Equal(t, 9*time.Second, d.CommandTimeout)
	assert.Equal(t, "/tmp/kh", d.KnownHostsFile)
}

func TestAuthMethods(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".ssh"), 0o700))
	d := &SSHDialer{HomeDir: home}

	t.Run("nothing available", func(t *testing.T) {
		methods, conn := d.authMethods(context.Background(), domain.Server{Name: "web1"})
		assert.Empty(t, methods)
		assert.Nil(t, conn)
	})

	t.Run("password adds password and keyboard-interactive", func(t *testing.T) {
		methods, _ := d.authMethods(context.Background(), domain.Server{Name: "web1", Password: domain.Ptr("pw")})
		assert.Len(t, methods, 2)
	})

	t.Run("configured and default keys", func(t *testing.T) {
		writeTestKey(t, filepath.Join(home, ".ssh"), "id_ed25519")
		keyPath := writeTestKey(t, t.TempDir(), "custom")
		methods, _ := d.authMethods(context.Background(), domain.Server{Name: "web1", PrivateKeyPath: &keyPath})
		assert.Len(t, methods, 1, "keys are offered through one public-key method")
	})

	t.Run("unreadable configured key is skipped", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "nope")
		methods, _ := (&SSHDialer{HomeDir: t.TempDir()}).authMethods(context.Background(),
			domain.Server{Name: "web1", PrivateKeyPath: &missing})
		assert.Empty(t, methods)
	})
}

func TestExpandHome(t *testing.T) {
	tests := []struct {
		path, home, want string
	}{
		{"~/.ssh/id_ed25519", "/home/ops", "/home/ops/.ssh/id_ed25519"},
		{"/etc/vigil/key", "/home/ops", "/etc/vigil/key"},
		{"~/.ssh/id_rsa", "", "~/.ssh/id_rsa"},
		{"~ops/key", "/home/ops", "~ops/key"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, expandHome(tt.path, tt.home), tt.path)
	}
}

func TestDial_Errors(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")

	t.Run("bad known hosts file", func(t *testing.T) {
		d := &SSHDialer{KnownHostsFile: filepath.Join(t.TempDir(), "missing"), HomeDir: t.TempDir()}
		_, err := d.Dial(context.Background(), domain.Server{Name: "web1", Host: "127.0.0.1", Password: domain.Ptr("x")})
		require.Error(t, err)
		assert.True(t, vigil_err.IsCategory(err, vigil_err.CategoryTransport))
	})

	t.Run("no auth", func(t *testing.T) {
		d := &SSHDialer{HomeDir: t.TempDir()}
		_, err := d.Dial(context.Background(), domain.Server{Name: "web1", Host: "127.0.0.1"})
		require.Error(t, err)
		assert.True(t, vigil_err.IsCategory(err, vigil_err.CategoryTransport))
	})
}
