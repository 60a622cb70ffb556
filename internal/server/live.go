package server

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"arc/internal/schema"
)

// Live-view limits. The stream closes after maxWatch regardless of run
// state so abandoned browser tabs do not pin watchers forever.
const (
	maxWatch     = 10 * time.Minute
	debounceWait = 200 * time.Millisecond
)

var livePage = template.Must(template.New("live").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>arc · live</title>
<style>
body { font-family: -apple-system, Segoe UI, sans-serif; margin: 2rem; background: #fafafa; }
#topic { font-size: 1.2rem; font-weight: 600; }
#status { color: #777; font-size: .85rem; }
.msg { border-left: 4px solid #888; margin: .6rem 0; padding: .4rem .8rem; background: #fff; }
.msg .role { font-weight: 600; text-transform: uppercase; font-size: .75rem; }
.msg pre { white-space: pre-wrap; font-family: inherit; font-size: .85rem; margin: .3rem 0 0; }
</style>
</head>
<body>
<div id="topic">waiting for run…</div>
<div id="status">connecting</div>
<div id="messages"></div>
<script>
const src = new EventSource("/graph/live/{{.RunID}}/stream");
const messages = document.getElementById("messages");
src.addEventListener("init", e => {
  document.getElementById("topic").textContent = JSON.parse(e.data).topic;
  document.getElementById("status").textContent = "running";
});
src.addEventListener("message_added", e => {
  const m = JSON.parse(e.data);
  const div = document.createElement("div");
  div.className = "msg";
  div.innerHTML = '<span class="role"></span><pre></pre>';
  div.querySelector(".role").textContent = m.role;
  div.querySelector("pre").textContent = m.content;
  messages.appendChild(div);
});
src.addEventListener("complete", e => {
  document.getElementById("status").textContent = "complete";
  src.close();
});
src.addEventListener("error", e => {
  if (e.data) document.getElementById("status").textContent = JSON.parse(e.data).message;
});
</script>
</body>
</html>`))

func (s *Server) handleLiveGraph(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := livePage.Execute(w, map[string]string{"RunID": chi.URLParam(r, "runID")}); err != nil {
		s.logger.Error("live page render failed", zap.Error(err))
	}
}

// handleLiveStream pushes trace updates over SSE. The run directory is
// watched with fsnotify; every replace of trace.json re-reads the file
// and emits the messages appended since the previous read. Atomic
// renames by the store guarantee each read observes a consistent trace.
func (s *Server) handleLiveStream(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	tracePath := s.store.TracePath(runID)
	runDir := filepath.Dir(tracePath)
	if _, err := os.Stat(runDir); err != nil {
		sendEvent(w, flusher, "error", map[string]string{"message": "Run not found"})
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Error("failed to create watcher", zap.Error(err))
		sendEvent(w, flusher, "error", map[string]string{"message": "watch failed"})
		return
	}
	defer watcher.Close()
	if err := watcher.Add(runDir); err != nil {
		sendEvent(w, flusher, "error", map[string]string{"message": "watch failed"})
		return
	}

	sent := 0
	emit := func() (done bool) {
		trace, err := s.store.LoadTrace(runID)
		if err != nil {
			return false // trace not written yet, or replaced mid-read; wait for the next event
		}
		if sent == 0 {
			sendEvent(w, flusher, "init", map[string]string{"topic": trace.Topic})
		}
		flat := flatten(trace)
		for ; sent < len(flat); sent++ {
			sendEvent(w, flusher, "message_added", map[string]any{
				"role":    flat[sent].Role,
				"content": preview200(flat[sent].Content),
				"index":   sent,
			})
		}
		if trace.Status == schema.StatusComplete {
			sendEvent(w, flusher, "complete", map[string]any{
				"message":        "Run completed successfully",
				"total_messages": sent,
			})
			return true
		}
		return false
	}

	if emit() {
		return
	}

	deadline := time.NewTimer(maxWatch)
	defer deadline.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-deadline.C:
			sendEvent(w, flusher, "complete", map[string]string{"message": "Monitoring timeout"})
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != filepath.Base(tracePath) {
				continue
			}
			// Coalesce the write+rename burst before re-reading.
			time.Sleep(debounceWait)
			if emit() {
				return
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func flatten(trace *schema.Trace) []schema.Message {
	var out []schema.Message
	for _, t := range trace.Turns {
		out = append(out, t.Messages...)
	}
	return out
}

func preview200(content string) string {
	const max = 200
	if len(content) <= max {
		return content
	}
	return content[:max]
}

func sendEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}
