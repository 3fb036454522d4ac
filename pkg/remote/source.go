// pkg/remote/source.go

package remote

import (
	"fmt"
	"strings"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
)

// SourceKind says how a configured log source is read.
type SourceKind int

const (
	SourceFile SourceKind = iota
	SourceJournal
	SourceAuto
)

func (k SourceKind) String() string {
	switch k {
	case SourceJournal:
		return "journal"
	case SourceAuto:
		return "auto"
	default:
		return "file"
	}
}

const journalPrefix = "journal:"

// Source is a parsed log source entry.
type Source struct {
	Kind SourceKind
	Path string // file path for SourceFile
	Unit string // systemd unit for SourceJournal
	Raw  string
}

// ParseSource interprets one entry of a server's log list:
// "ssh:auto", "journal:<unit>" or a file path.
func ParseSource(raw string) (Source, error) {
	s := strings.TrimSpace(raw)
	switch {
	case s == "":
		return Source{}, fmt.Errorf("empty log source")
	case s == domain.DefaultSource:
		return Source{Kind: SourceAuto, Raw: s}, nil
	case strings.HasPrefix(s, journalPrefix):
		unit := strings.TrimSpace(strings.TrimPrefix(s, journalPrefix))
		if unit == "" {
			return Source{}, fmt.Errorf("journal source %q has no unit", raw)
		}
		return Source{Kind: SourceJournal, Unit: unit, Raw: s}, nil
	default:
		return Source{Kind: SourceFile, Path: s, Raw: s}, nil
	}
}

// Identifier is the resolved name used as the watermark key and the
// alert's source_log.
func (s Source) Identifier() string {
	switch s.Kind {
	case SourceJournal:
		return journalPrefix + s.Unit
	case SourceFile:
		return s.Path
	default:
		return s.Raw
	}
}
