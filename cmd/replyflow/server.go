package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"replyflow/internal/middleware"
	"replyflow/internal/models"
	"replyflow/internal/service"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Server struct {
	router    *mux.Router
	logger    *logrus.Logger
	cfg       models.ServerConfig
	engine    *service.RuleEngine
	lifecycle *service.LifecycleManager
	pipeline  *service.Pipeline
	store     service.LogStore
	server    *http.Server
}

func NewServer(cfg models.ServerConfig, engine *service.RuleEngine, lifecycle *service.LifecycleManager, pipeline *service.Pipeline, store service.LogStore, logger *logrus.Logger) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		logger:    logger,
		cfg:       cfg,
		engine:    engine,
		lifecycle: lifecycle,
		pipeline:  pipeline,
		store:     store,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestLogging(s.logger))

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus()).Methods(http.MethodGet)
	api.HandleFunc("/qr", s.handleQR()).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats()).Methods(http.MethodGet)

	api.HandleFunc("/rules", s.handleListRules()).Methods(http.MethodGet)
	api.HandleFunc("/rules", s.handleCreateRule()).Methods(http.MethodPost)
	api.HandleFunc("/rules/{id}", s.handleUpdateRule()).Methods(http.MethodPut)
	api.HandleFunc("/rules/{id}", s.handleDeleteRule()).Methods(http.MethodDelete)
	api.HandleFunc("/rules/{id}/toggle", s.handleToggleRule()).Methods(http.MethodPatch)

	api.HandleFunc("/logs", s.handleGetLogs()).Methods(http.MethodGet)
	api.HandleFunc("/logs", s.handleClearLogs()).Methods(http.MethodDelete)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSec) * time.Second,
	}

	s.logger.Infof("Starting server on port %d", s.cfg.Port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
