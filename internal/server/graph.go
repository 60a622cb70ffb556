package server

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"arc/internal/schema"
)

// graphPage renders a completed trace as a static conversation flow:
// one column per turn, messages in temporal order, debate messages
// indented under the boundary they belong to.
var graphPage = template.Must(template.New("graph").Funcs(template.FuncMap{
	"preview": preview,
	"isDebate": func(m schema.Message) bool {
		return strings.HasPrefix(m.Content, "[DEBATE")
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>arc · {{.Topic}}</title>
<style>
body { font-family: -apple-system, Segoe UI, sans-serif; margin: 2rem; background: #fafafa; }
h1 { font-size: 1.3rem; }
.turn { border: 1px solid #ddd; border-radius: 8px; margin: 1rem 0; padding: 1rem; background: #fff; }
.turn h2 { font-size: 1rem; color: #555; margin-top: 0; }
.msg { border-left: 4px solid #888; margin: .6rem 0; padding: .4rem .8rem; }
.msg.debate { margin-left: 2rem; border-left-style: dashed; opacity: .85; }
.msg .role { font-weight: 600; text-transform: uppercase; font-size: .75rem; letter-spacing: .05em; }
.msg .conf { float: right; color: #777; font-size: .75rem; }
.msg pre { white-space: pre-wrap; font-family: inherit; font-size: .85rem; margin: .3rem 0 0; }
.extractor { border-left-color: #2d7dd2; } .challenger { border-left-color: #d2442d; }
.integrator { border-left-color: #2dd26f; } .validator { border-left-color: #b02dd2; }
.planner { border-left-color: #d2a42d; }
.status { color: #777; font-size: .85rem; }
</style>
</head>
<body>
<h1>{{.Topic}}</h1>
<p class="status">run {{.RunID}} · status {{.Status}} · {{len .Turns}} turn(s)</p>
{{range .Turns}}
<div class="turn">
<h2>Turn {{.Index}}</h2>
{{range .Messages}}
<div class="msg {{.Role}}{{if isDebate .}} debate{{end}}">
<span class="role">{{.Role}}</span>
<span class="conf">confidence {{printf "%.2f" .Confidence}}</span>
<pre>{{preview .Content}}</pre>
</div>
{{end}}
</div>
{{end}}
</body>
</html>`))

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	trace, err := s.orch.LoadTrace(chi.URLParam(r, "runID"))
	if err != nil {
		s.writeLoadError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := graphPage.Execute(w, trace); err != nil {
		s.logger.Error("graph render failed", zap.Error(err))
	}
}

// preview bounds message bodies on the static page; the full text
// remains available via /trace.
func preview(content string) string {
	const max = 600
	if len(content) <= max {
		return content
	}
	return content[:max] + " ..."
}
