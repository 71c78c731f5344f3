// Package server exposes the task service over a JSON HTTP API and streams
// broadcast events to live-update subscribers. Request routing and payload
// validation stop here; all domain rules live in the service and workflow
// packages.
package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/hmuroya/taskward/internal/config"
	"github.com/hmuroya/taskward/internal/eventbus"
	"github.com/hmuroya/taskward/internal/service"
	"github.com/hmuroya/taskward/internal/subscription"
	"github.com/hmuroya/taskward/pkg/cerr"
	"github.com/hmuroya/taskward/pkg/clog"
)

type Server struct {
	server  *http.Server
	env     *config.Env
	svc     *service.TaskService
	bus     *eventbus.Bus
	subRepo subscription.Repository
}

func NewServer(env *config.Env, svc *service.TaskService, bus *eventbus.Bus, subRepo subscription.Repository) *Server {
	return &Server{
		env:     env,
		svc:     svc,
		bus:     bus,
		subRepo: subRepo,
	}
}

// ListenAndServe starts the HTTP server. The given context becomes the base
// context of every request, so cancelling it on shutdown also tears down the
// open SSE streams.
func (s *Server) ListenAndServe(ctx context.Context) error {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/events", s.streamEvents)

		r.Group(func(r chi.Router) {
			r.Use(
				clog.SlogChiMiddleware(),
				cerr.NewJSONResponseChiMiddleware(),
			)
			r.Post("/tasks", s.createTask)
			r.Get("/tasks", s.listTasks)
			r.Get("/tasks/{id}", s.getTask)
			r.Get("/tasks/{id}/history", s.getHistory)
			r.Get("/tasks/{id}/transitions", s.getTransitions)
			r.Post("/tasks/{id}/claim", s.claimTask)
			r.Post("/tasks/{id}/unclaim", s.unclaimTask)
			r.Post("/tasks/{id}/transition", s.transitionTask)
			r.Post("/maintenance/sweep", s.runSweep)
			r.Post("/push/subscriptions", s.createSubscription)
			r.NotFound(func(w http.ResponseWriter, r *http.Request) {
				cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
			})
		})
	})

	mux := http.NewServeMux()
	mux.Handle("/health", &HealthChecker{})
	mux.Handle("/api/", r)

	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr: addr,
		Handler: h2c.NewHandler(cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler(s.apiKeyMiddleware(mux)), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// apiKeyMiddleware guards everything but the health endpoint. Real identity
// comes from the excluded integration layer; the API key only fences off the
// process.
func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("X-Api-Key") != s.env.APIKey {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":"unauthenticated","message":"invalid api key"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type HealthChecker struct{}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
