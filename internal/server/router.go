package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/HMasataka/relay/internal/logging"
	"github.com/HMasataka/relay/pkg/domain"
	"github.com/HMasataka/relay/pkg/transport/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// LivenessMessage is the body returned to plain HTTP requests
const LivenessMessage = "WebSocket server running"

// StatsProvider reports relay statistics
type StatsProvider interface {
	Stats() domain.HubStats
}

// NewRouter builds the HTTP surface. A WebSocket upgrade on any path is
// handed to ws; other unmatched requests get the liveness text.
func NewRouter(ws http.Handler, stats StatsProvider, logger *logging.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(logger.Handler(), slog.LevelDebug),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)

	fallback := upgradeOr(ws, liveness)

	r.Get("/healthz", health)
	r.Get("/stats", statsHandler(stats))
	r.Handle("/ws", fallback)
	r.NotFound(fallback)
	r.MethodNotAllowed(fallback)

	return r
}

func upgradeOr(ws http.Handler, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsUpgrade(r) {
			ws.ServeHTTP(w, r)
			return
		}
		next(w, r)
	}
}

func liveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(LivenessMessage))
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func statsHandler(stats StatsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, stats.Stats())
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
