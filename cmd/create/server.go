// cmd/create/server.go

package create

import (
	"fmt"
	"os"
	"strings"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/remote"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_cli"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_err"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_io"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serverHost        string
	serverPort        int
	serverUser        string
	serverKey         string
	serverLogs        []string
	serverAskPassword bool
)

var serverCmd = &cobra.Command{
	Use:   "server <name>",
	Short: "Add or replace a monitored server",
	Long: `Add a server to the store, replacing any server with the same name.
Without --log the server is read with ssh:auto, which picks the journal or
the distribution's auth log.`,
	Example: `  vigil create server web1 --host 10.0.0.5 --user ops --key ~/.ssh/id_ed25519
  vigil create server db1 --host db1.internal --user audit --ask-password --log journal:sshd --log /var/log/fail2ban.log`,
	Args: cobra.ExactArgs(1),
	RunE: vigil_cli.Wrap(runCreateServer),
}

func init() {
	serverCmd.Flags().StringVar(&serverHost, "host", "", "Hostname or address (required)")
	serverCmd.Flags().IntVar(&serverPort, "port", 22, "SSH port")
	serverCmd.Flags().StringVar(&serverUser, "user", "", "SSH username (required)")
	serverCmd.Flags().StringVar(&serverKey, "key", "", "Path to a private key")
	serverCmd.Flags().StringArrayVar(&serverLogs, "log", nil, "Log source, repeatable (file path, journal:<unit> or ssh:auto)")
	serverCmd.Flags().BoolVar(&serverAskPassword, "ask-password", false, "Prompt for the SSH password")
	_ = serverCmd.MarkFlagRequired("host")
	_ = serverCmd.MarkFlagRequired("user")
}

func runCreateServer(rc *vigil_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	srv := domain.Server{
		Name:     strings.TrimSpace(args[0]),
		Host:     strings.TrimSpace(serverHost),
		Port:     serverPort,
		Username: strings.TrimSpace(serverUser),
	}
	if srv.Name == "" || srv.Host == "" || srv.Username == "" {
		return vigil_err.NewExpectedError(fmt.Errorf("name, --host and --user must not be empty"))
	}
	if srv.Port < 1 || srv.Port > 65535 {
		return vigil_err.NewExpectedError(fmt.Errorf("--port %d is out of range", srv.Port))
	}
	if serverKey != "" {
		key := serverKey
		srv.PrivateKeyPath = &key
	}
	for _, l := range serverLogs {
		src, err := remote.ParseSource(l)
		if err != nil {
			return vigil_err.NewExpectedError(err)
		}
		srv.Logs = append(srv.Logs, src.Raw)
	}

	cfg, err := vigil_cli.Setup(rc, cmd)
	if err != nil {
		return err
	}

	if serverAskPassword {
		pw, err := vigil_io.PromptSecurePassword(rc, fmt.Sprintf("SSH password for %s@%s: ", srv.Username, srv.Host))
		if err != nil {
			return vigil_err.NewExpectedError(err)
		}
		srv.Password = &pw
	}

	store, err := vigil_cli.OpenStore(rc, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.UpsertServer(rc.Ctx, srv); err != nil {
		return err
	}
	rc.Log.Info("Server saved",
		zap.String("server", srv.Name),
		zap.String("host", srv.Host),
		zap.Strings("logs", srv.Sources()))
	fmt.Fprintf(os.Stdout, "Server %s saved; it is collected from the next cycle.\n", srv.Name)
	return nil
}
