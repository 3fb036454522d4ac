// cmd/check/server.go

package check

import (
	"fmt"
	"os"
	"strconv"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/remote"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_cli"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_err"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_io"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var probeLines int

var serverCmd = &cobra.Command{
	Use:   "server <name>",
	Short: "Connect to a server and read each of its log sources",
	Long: `Connect to a server over SSH and tail every configured log source without
storing alerts or moving watermarks. The server is looked up in the store
first and then in the configuration file.`,
	Args: cobra.ExactArgs(1),
	RunE: vigil_cli.Wrap(runCheckServer),
}

func init() {
	serverCmd.Flags().IntVar(&probeLines, "lines", 5, "Number of lines to read from each source")
}

func runCheckServer(rc *vigil_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	cfg, err := vigil_cli.Setup(rc, cmd)
	if err != nil {
		return err
	}
	name := args[0]

	store, err := vigil_cli.OpenStore(rc, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	srv, found, err := store.GetServer(rc.Ctx, name)
	if err != nil {
		return err
	}
	if !found {
		for _, s := range cfg.DomainServers() {
			if s.Name == name {
				srv, found = s, true
				break
			}
		}
	}
	if !found {
		return vigil_err.NewExpectedError(fmt.Errorf("server %q is not in the store or the configuration", name))
	}
	if srv.Port == 0 {
		srv.Port = 22
	}

	fetcher := remote.NewFetcher(remote.NewSSHDialer(cfg.Collection))
	tbl := vigil_cli.Table{Header: []string{"SOURCE", "RESOLVED", "LINES", "STATUS"}}
	failed := 0
	for _, source := range srv.Sources() {
		res, err := fetcher.Fetch(rc.Ctx, srv, source, probeLines)
		if err != nil {
			failed++
			rc.Log.Warn("Log source check failed",
				zap.String("server", srv.Name),
				zap.String("source", source),
				zap.Error(err))
			tbl.Rows = append(tbl.Rows, []string{source, "-", "0", err.Error()})
			continue
		}
		tbl.Rows = append(tbl.Rows, []string{source, res.LogIdentifier, strconv.Itoa(len(res.Lines)), "ok"})
	}

	fmt.Fprintf(os.Stdout, "%s (%s@%s:%d)\n", srv.Name, srv.Username, srv.Host, srv.Port)
	if err := vigil_cli.Render(os.Stdout, vigil_cli.FormatTable, nil, tbl); err != nil {
		return err
	}
	if failed == len(srv.Sources()) {
		return vigil_err.NewTransportError(srv.Name, fmt.Errorf("no log source could be read"))
	}
	return nil
}

