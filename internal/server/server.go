package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/claude/repcoach/internal/metrics"
	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RecordingReader is the read side of recording storage. Both *storage.DB and
// *storage.LiteDB satisfy it.
type RecordingReader interface {
	ListRecordings(ctx context.Context, limit int) ([]models.RecordingSummary, error)
	GetRecording(ctx context.Context, id uuid.UUID) (*models.Recording, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	sessions *session.Manager
	store    RecordingReader
	metrics  *metrics.Manager
	log      *slog.Logger
	apiKey   string
	router   chi.Router
}

// New creates a new Server with all routes configured. store and m may be
// nil; without a store the recording endpoints answer 503.
func New(sessions *session.Manager, store RecordingReader, m *metrics.Manager, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		sessions: sessions,
		store:    store,
		metrics:  m,
		log:      log,
		apiKey:   apiKey,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(Recoverer(s.log, s.metrics))
	s.router.Use(RequestLogging(s.log))
	s.router.Use(RequestMetrics(s.metrics))
	s.router.Use(CORS)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))

		r.Get("/exercises", s.handleListExercises)

		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions", s.handleListSessions)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleFinishSession)
			r.Post("/frames", s.handleFrame)
			r.Post("/reset", s.handleReset)
			r.Get("/stream", s.handleStream)
		})

		r.Get("/recordings", s.handleListRecordings)
		r.Get("/recordings/{id}", s.handleGetRecording)
		r.Post("/recordings/{id}/replay", s.handleReplay)
	})
}

// SetMetricsHandler exposes the registry on /metrics.
func (s *Server) SetMetricsHandler(g prometheus.Gatherer) {
	s.router.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

// SetMCP mounts an MCP transport on /mcp behind the API key.
func (s *Server) SetMCP(h http.Handler) {
	s.router.With(APIKeyAuth(s.apiKey)).Handle("/mcp", h)
}
