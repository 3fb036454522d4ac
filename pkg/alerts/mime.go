// pkg/alerts/mime.go

package alerts

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
)

// buildMime assembles an RFC 5322 message. With an HTML body it is
// multipart/alternative, otherwise a single text/plain part.
func buildMime(from mail.Address, to []mail.Address, subject, text, html string) []byte {
	var buf bytes.Buffer

	rcpts := make([]string, len(to))
	for i, a := range to {
		rcpts[i] = a.String()
	}

	writeHeader := func(k, v string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
	}
	writeHeader("From", from.String())
	writeHeader("To", strings.Join(rcpts, ", "))
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", subject))
	writeHeader("Date", time.Now().Format(time.RFC1123Z))
	writeHeader("Message-ID", fmt.Sprintf("<%s@vigil>", uuid.NewString()))
	writeHeader("MIME-Version", "1.0")

	if html == "" {
		writeHeader("Content-Type", `text/plain; charset="utf-8"`)
		writeHeader("Content-Transfer-Encoding", "quoted-printable")
		buf.WriteString("\r\n")
		writeQP(&buf, text)
		return buf.Bytes()
	}

	mw := multipart.NewWriter(&buf)
	writeHeader("Content-Type", fmt.Sprintf(`multipart/alternative; boundary="%s"`, mw.Boundary()))
	buf.WriteString("\r\n")

	for _, part := range []struct{ ctype, body string }{
		{`text/plain; charset="utf-8"`, text},
		{`text/html; charset="utf-8"`, html},
	} {
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", part.ctype)
		h.Set("Content-Transfer-Encoding", "quoted-printable")
		w, err := mw.CreatePart(h)
		if err != nil {
			continue
		}
		qp := quotedprintable.NewWriter(w)
		_, _ = qp.Write([]byte(part.body))
		_ = qp.Close()
	}
	_ = mw.Close()
	return buf.Bytes()
}

func writeQP(buf *bytes.Buffer, body string) {
	qp := quotedprintable.NewWriter(buf)
	_, _ = qp.Write([]byte(body))
	_ = qp.Close()
}
