// cmd/read/exceptions.go

package read

import (
	"os"
	"strconv"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_cli"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_io"
	"github.com/spf13/cobra"
)

var exceptionsCmd = &cobra.Command{
	Use:     "exceptions",
	Short:   "List exception rules",
	Aliases: []string{"exception"},
	Args:    cobra.NoArgs,
	RunE: vigil_cli.Wrap(func(rc *vigil_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		cfg, err := vigil_cli.Setup(rc, cmd)
		if err != nil {
			return err
		}
		store, err := vigil_cli.OpenStore(rc, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		rules, err := store.ListExceptions(rc.Ctx)
		if err != nil {
			return err
		}
		tbl := vigil_cli.Table{Header: []string{"ID", "TYPE", "VALUE", "ENABLED", "DESCRIPTION"}}
		for _, r := range rules {
			tbl.Rows = append(tbl.Rows, []string{
				strconv.FormatUint(uint64(r.ID), 10),
				string(r.RuleType),
				r.Value,
				strconv.FormatBool(r.Enabled),
				vigil_cli.OrDash(r.Description),
			})
		}
		if rules == nil {
			rules = []domain.ExceptionRule{}
		}
		return vigil_cli.Render(os.Stdout, format, rules, tbl)
	}),
}
