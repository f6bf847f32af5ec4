package httpapi

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"

	"github.com/DoyleJ11/roster-socket/internal/hub"
	"github.com/DoyleJ11/roster-socket/internal/store"
	"github.com/DoyleJ11/roster-socket/internal/view"
	wire "github.com/DoyleJ11/roster-socket/pkg/types"
)

const maxMessagesLimit = 200

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>Connected clients</title></head>
<body>
<h1>Connected clients</h1>
{{.List}}
<p>roster version {{.Version}}</p>
</body>
</html>
`))

// Index renders the roster the same way the page client does.
func Index(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := h.State(r.Context())
		if err != nil {
			http.Error(w, "roster unavailable", http.StatusServiceUnavailable)
			return
		}

		list := view.NewList(view.ClientListID)
		list.Replace(view.ClientLines(v.Clients))
		rendered, err := list.HTML()
		if err != nil {
			http.Error(w, "render failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = indexTmpl.Execute(w, struct {
			List    template.HTML
			Version int
		}{List: rendered, Version: v.Version})
	}
}

func Clients(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := h.State(r.Context())
		if err != nil {
			http.Error(w, "roster unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, wire.RosterSnapshot{Version: v.Version, Clients: v.Clients})
	}
}

func Messages(messages store.MessageLog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				http.Error(w, "bad limit", http.StatusBadRequest)
				return
			}
			limit = min(n, maxMessagesLimit)
		}

		msgs, err := messages.Recent(r.Context(), limit)
		if err != nil {
			http.Error(w, "failed to load messages", http.StatusInternalServerError)
			return
		}
		if msgs == nil {
			msgs = []store.Message{}
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
