package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/brix12bs/pingpong-server/internal/hub"
	"github.com/brix12bs/pingpong-server/internal/ws"
)

// SetupRoutes builds the router with the hub injected. staticDir, when set,
// serves the game client files from the same process.
func SetupRoutes(h *hub.Hub, log *zap.Logger, staticDir string) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, log))
	if staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(staticDir)))
	}
	return r
}
