package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/roster-socket/internal/hub"
	"github.com/DoyleJ11/roster-socket/internal/logging"
	"github.com/DoyleJ11/roster-socket/internal/store"
	"github.com/DoyleJ11/roster-socket/internal/ws"
)

type Deps struct {
	Hub      *hub.Hub
	Messages store.MessageLog
	WS       ws.Options
	Log      *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	log := logging.OrNop(d.Log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/", Index(d.Hub))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(d.Hub, d.WS, log))

	r.Group(func(r chi.Router) {
		r.Use(requestLogger(log))
		r.Get("/clients", Clients(d.Hub))
		r.Get("/messages", Messages(d.Messages))
	})
	return r
}
