package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const ReadHeaderTimeoutValue = 3

type Config struct {
	Port int
}

type Server struct {
	server       *http.Server
	usersHandler usersHandler
	port         int
	metrics      *metrics
}

type usersHandler interface {
	CreateUser(w http.ResponseWriter, r *http.Request)
	GetUsers(w http.ResponseWriter, r *http.Request)
	GetUsersStream(w http.ResponseWriter, r *http.Request)
	GetUser(w http.ResponseWriter, r *http.Request)
	DeleteUser(w http.ResponseWriter, r *http.Request)
}

func New(cfg Config, usersHandler usersHandler) *Server {
	router := chi.NewRouter()
	s := &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: ReadHeaderTimeoutValue * time.Second,
		},
		usersHandler: usersHandler,
		port:         cfg.Port,
		metrics:      newMetrics(),
	}

	router.Get("/metrics", promhttp.Handler().ServeHTTP)

	router.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Use(middleware.Recoverer)
			r.Use(s.metricTrack)

			r.Post("/users", s.usersHandler.CreateUser)
			r.Get("/users", s.usersHandler.GetUsers)
			r.Get("/users/stream", s.usersHandler.GetUsersStream)
			r.Get("/users/{userId}", s.usersHandler.GetUser)
			r.Delete("/users/{userId}", s.usersHandler.DeleteUser)
		})
	})

	return s
}

func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()

		if err := s.server.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to shutdown server")
		}
	}()

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start a server: %w", err)
	}

	return nil
}

func (s *Server) metricTrack(next http.Handler) http.Handler {
	var fn http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
		defer s.metrics.trackHTTPRequest(time.Now(), r)

		next.ServeHTTP(w, r)
	}

	return fn
}
