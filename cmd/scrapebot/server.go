package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"scrapebot/internal/constants"
	"scrapebot/internal/metrics"
	"scrapebot/internal/middleware"
	"scrapebot/internal/models"
	slackapi "scrapebot/pkg/slack"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Server exposes health, metrics and, in HTTP mode, the Slack endpoints
type Server struct {
	router *mux.Router
	logger *logrus.Logger
	port   int
	server *http.Server
}

func NewServer(cfg *models.Config, logger *logrus.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		logger: logger,
		port:   cfg.Server.Port,
	}
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.router,
		ReadTimeout:  constants.DefaultServerReadTimeoutSec * time.Second,
		WriteTimeout: constants.DefaultServerWriteTimeoutSec * time.Second,
		IdleTimeout:  constants.DefaultServerIdleTimeoutSec * time.Second,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.ObservabilityMiddleware(s.logger))

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
}

// RegisterSlackRoutes mounts the Events API and slash command endpoints
func (s *Server) RegisterSlackRoutes(webhook *slackapi.WebhookHandler) {
	slack := s.router.PathPrefix("/slack").Subrouter()
	slack.HandleFunc("/events", webhook.HandleEvents()).Methods(http.MethodPost)
	slack.HandleFunc("/commands", webhook.HandleCommands()).Methods(http.MethodPost)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called. After Shutdown it returns
// http.ErrServerClosed immediately.
func (s *Server) Start() error {
	s.logger.Infof("Starting server on port %d", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}
