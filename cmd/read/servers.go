// cmd/read/servers.go

package read

import (
	"os"
	"strconv"
	"strings"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_cli"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_io"
	"github.com/spf13/cobra"
)

var withWatermarks bool

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "List monitored servers",
	Args:  cobra.NoArgs,
	RunE:  vigil_cli.Wrap(runReadServers),
}

func init() {
	serversCmd.Flags().BoolVar(&withWatermarks, "watermarks", false, "List the per-source watermarks instead")
}

func runReadServers(rc *vigil_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	cfg, err := vigil_cli.Setup(rc, cmd)
	if err != nil {
		return err
	}
	store, err := vigil_cli.OpenStore(rc, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if withWatermarks {
		marks, err := store.ListWatermarks(rc.Ctx)
		if err != nil {
			return err
		}
		tbl := vigil_cli.Table{Header: []string{"SERVER", "LOG", "LAST SEEN"}}
		for _, m := range marks {
			tbl.Rows = append(tbl.Rows, []string{m.ServerName, m.LogPath, m.LastSeen.Local().Format("2006-01-02 15:04:05")})
		}
		if marks == nil {
			marks = []domain.Watermark{}
		}
		return vigil_cli.Render(os.Stdout, format, marks, tbl)
	}

	servers, err := store.ListServers(rc.Ctx)
	if err != nil {
		return err
	}
	tbl := vigil_cli.Table{Header: []string{"NAME", "HOST", "PORT", "USER", "AUTH", "LOGS"}}
	for _, s := range servers {
		auth := "agent"
		switch {
		case s.PrivateKeyPath != nil && *s.PrivateKeyPath != "":
			auth = "key"
		case s.HasPassword():
			auth = "password"
		}
		tbl.Rows = append(tbl.Rows, []string{
			s.Name,
			s.Host,
			strconv.Itoa(s.Port),
			s.Username,
			auth,
			strings.Join(s.Sources(), ", "),
		})
	}
	if servers == nil {
		servers = []domain.Server{}
	}
	return vigil_cli.Render(os.Stdout, format, servers, tbl)
}
