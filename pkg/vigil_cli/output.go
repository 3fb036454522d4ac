// pkg/vigil_cli/output.go

package vigil_cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_err"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Table is the tabular rendering of a listing.
type Table struct {
	Header []string
	Rows   [][]string
}

// Render writes v as JSON or YAML, or writes tbl for the table format.
func Render(w io.Writer, format string, v any, tbl Table) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable, "":
		table := tablewriter.NewWriter(w)
		header := make([]any, len(tbl.Header))
		for i, h := range tbl.Header {
			header[i] = h
		}
		table.Header(header...)
		for _, row := range tbl.Rows {
			if err := table.Append(row); err != nil {
				return err
			}
		}
		return table.Render()
	default:
		return vigil_err.NewExpectedError(fmt.Errorf("unknown output format %q (use table, json or yaml)", format))
	}
}

// OrDash renders optional values in tables.
func OrDash(p *string) string {
	if p == nil || *p == "" {
		return "-"
	}
	return *p
}
