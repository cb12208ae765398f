package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mindhaven-ai/mindhaven/backend/internal/analytics"
	analyticsHandler "github.com/mindhaven-ai/mindhaven/backend/internal/handler/analytics"
	"github.com/mindhaven-ai/mindhaven/backend/internal/handler/live"
	ragHandler "github.com/mindhaven-ai/mindhaven/backend/internal/handler/rag"
	sessionHandler "github.com/mindhaven-ai/mindhaven/backend/internal/handler/session"
	therapistHandler "github.com/mindhaven-ai/mindhaven/backend/internal/handler/therapist"
	middlewarePkg "github.com/mindhaven-ai/mindhaven/backend/internal/middleware"
	chatService "github.com/mindhaven-ai/mindhaven/backend/internal/service/chat"
	therapistService "github.com/mindhaven-ai/mindhaven/backend/internal/service/therapist"
	"github.com/mindhaven-ai/mindhaven/backend/internal/upstream"
	"github.com/mindhaven-ai/mindhaven/backend/pkg/utils"
)

// Deps collects everything the router wires together.
type Deps struct {
	ChatSvc      *chatService.Service
	Orchestrator *therapistService.Orchestrator
	// Upstream is non-nil in remote mode.
	Upstream        *upstream.Client
	Store           analytics.Store
	MonitorInterval time.Duration
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	sessions := sessionHandler.New(deps.ChatSvc, deps.Orchestrator, deps.Upstream)
	proxy := therapistHandler.New(deps.ChatSvc, deps.Orchestrator)
	dashboard := analyticsHandler.New(deps.Store)
	rag := ragHandler.New(deps.Upstream)
	liveHandler := live.New(deps.ChatSvc, deps.Orchestrator, nil, deps.MonitorInterval)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
		})

		sessions.RegisterRoutes(api)
		proxy.RegisterRoutes(api)
		dashboard.RegisterRoutes(api)
		rag.RegisterRoutes(api)
		liveHandler.RegisterRoutes(api)
	})

	return r
}
