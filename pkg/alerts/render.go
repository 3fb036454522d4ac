// pkg/alerts/render.go

package alerts

import (
	"bytes"
	htmltpl "html/template"
	"strings"
	texttpl "text/template"
	"time"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
	cerr "github.com/cockroachdb/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Rendered is a ready-to-send message body.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

// BestBody returns the richest available body and its MIME type.
func (r Rendered) BestBody() (string, string) {
	if r.HTML != "" {
		return "text/html", r.HTML
	}
	return "text/plain", r.Text
}

const subjectSrc = `vigil: {{if eq .Kind.String "critical"}}CRITICAL {{.Count}} alert(s) on {{.Servers}} server(s){{else}}{{.Count}} new security alert(s){{end}}`

const textSrc = `{{if eq .Kind.String "critical"}}Critical security alerts{{else}}New security alerts{{end}} ({{.Count}}) generated {{.Generated.Format "2006-01-02 15:04:05 MST"}}
{{range .Groups}}
== {{.Server}} ({{len .Entries}}) ==
{{range .Entries}}[{{.Time}}] {{upper .Level}} {{.Rule}} {{.Source}}{{if .IP}} ip={{.IP}}{{end}}{{if .User}} user={{.User}}{{end}}
  {{.Message}}
{{end}}{{end}}`

const htmlSrc = `<!DOCTYPE html>
<html><body style="font-family:sans-serif">
<h2>{{if eq .Kind.String "critical"}}Critical security alerts{{else}}New security alerts{{end}} ({{.Count}})</h2>
<p>Generated {{.Generated.Format "2006-01-02 15:04:05 MST"}}</p>
{{range .Groups}}<h3>{{.Server}}</h3>
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Time</th><th>Level</th><th>Rule</th><th>Source</th><th>IP</th><th>User</th><th>Message</th></tr>
{{range .Entries}}<tr><td>{{.Time}}</td><td>{{title .Level}}</td><td>{{.Rule}}</td><td>{{.Source}}</td><td>{{.IP}}</td><td>{{.User}}</td><td>{{.Message}}</td></tr>
{{end}}</table>
{{end}}</body></html>`

var (
	subjTpl = texttpl.Must(texttpl.New("subject").Parse(subjectSrc))
	txtTpl  = texttpl.Must(texttpl.New("text").Funcs(texttpl.FuncMap{"upper": strings.ToUpper}).Parse(textSrc))
	htmlTpl = htmltpl.Must(htmltpl.New("html").Funcs(htmltpl.FuncMap{"title": titleCase}).Parse(htmlSrc))
)

// titleCase builds a Caser per call; a Caser is not safe for concurrent use.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// RenderCritical renders the immediate notification for critical alerts.
func RenderCritical(alerts []domain.Alert, now time.Time) (Rendered, error) {
	return render(newMessage(KindCritical, alerts, now))
}

// RenderDigest renders the per-cycle summary of all new alerts.
func RenderDigest(alerts []domain.Alert, now time.Time) (Rendered, error) {
	return render(newMessage(KindDigest, alerts, now))
}

func render(msg Message) (Rendered, error) {
	var subj, txt, html bytes.Buffer
	if err := subjTpl.Execute(&subj, msg); err != nil {
		return Rendered{}, cerr.Wrap(err, "render subject")
	}
	if err := txtTpl.Execute(&txt, msg); err != nil {
		return Rendered{}, cerr.Wrap(err, "render text body")
	}
	if err := htmlTpl.Execute(&html, msg); err != nil {
		return Rendered{}, cerr.Wrap(err, "render html body")
	}
	return Rendered{
		Subject: strings.TrimSpace(subj.String()),
		Text:    txt.String(),
		HTML:    html.String(),
	}, nil
}
