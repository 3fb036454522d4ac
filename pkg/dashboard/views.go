// pkg/dashboard/views.go

package dashboard

import (
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const uiAlertLimit = 300

var viewFuncs = template.FuncMap{
	"ts": func(t time.Time) string {
		return t.Format(time.RFC3339)
	},
	"deref": func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	},
	"join": strings.Join,
}

func (s *Server) uiAlerts(c *gin.Context) {
	f, err := alertFilterFromQuery(c)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	if f.Limit == 0 {
		f.Limit = uiAlertLimit
	}
	alerts, err := s.store.ListAlerts(c.Request.Context(), f)
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "failed to load alerts")
		return
	}
	c.HTML(http.StatusOK, "alerts.html", gin.H{
		"Alerts": alerts,
		"Filter": f,
	})
}

func (s *Server) uiServers(c *gin.Context) {
	servers, err := s.store.ListServers(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "failed to load servers")
		return
	}
	views := make([]serverView, len(servers))
	for i, srv := range servers {
		views[i] = toServerView(srv)
	}
	c.HTML(http.StatusOK, "servers.html", gin.H{"Servers": views})
}
