package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chatHandler "github.com/ruchitha1109/MechanicAI-2/internal/handler/chat"
	middlewarePkg "github.com/ruchitha1109/MechanicAI-2/internal/middleware"
	chatService "github.com/ruchitha1109/MechanicAI-2/internal/service/chat"
	"github.com/ruchitha1109/MechanicAI-2/internal/store"
	"github.com/ruchitha1109/MechanicAI-2/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(chatSvc *chatService.Service, conversations store.ConversationStore, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(allowedOrigins))

	r.Route("/api", func(api chi.Router) {
		chatHandler.New(chatSvc).RegisterRoutes(api)

		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			if err := conversations.Ping(r.Context()); err != nil {
				utils.RespondError(w, http.StatusServiceUnavailable, "store unreachable")
				return
			}
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	return r
}
