// pkg/alerts/model.go
package alerts

import (
	"time"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
)

// Kind distinguishes the two notification classes.
type Kind int

const (
	// KindCritical is sent once per cycle when any critical rule fired.
	KindCritical Kind = iota
	// KindDigest summarises every new alert of the cycle.
	KindDigest
)

func (k Kind) String() string {
	if k == KindCritical {
		return "critical"
	}
	return "digest"
}

// Entry is one alert as shown in a message. All fields are plain strings;
// the HTML template escapes them.
type Entry struct {
	Time    string
	Level   string
	Rule    string
	Source  string
	IP      string
	User    string
	Message string
}

// Group holds one server's entries.
type Group struct {
	Server  string
	Entries []Entry
}

// Message is the template input.
type Message struct {
	Kind      Kind
	Count     int
	Servers   int
	Generated time.Time
	Groups    []Group
}

func newMessage(kind Kind, alerts []domain.Alert, now time.Time) Message {
	names, byServer := domain.GroupByServer(alerts)
	msg := Message{
		Kind:      kind,
		Count:     len(alerts),
		Servers:   len(names),
		Generated: now.UTC(),
	}
	for _, name := range names {
		g := Group{Server: name}
		for _, a := range byServer[name] {
			g.Entries = append(g.Entries, Entry{
				Time:    a.Timestamp.UTC().Format(time.RFC3339),
				Level:   string(a.Level),
				Rule:    a.Rule.String(),
				Source:  a.SourceLog,
				IP:      a.IP(),
				User:    a.User(),
				Message: a.Message,
			})
		}
		msg.Groups = append(msg.Groups, g)
	}
	return msg
}
