package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"parking-monitor-go/internal/api/handlers"
	"parking-monitor-go/internal/config"
	"parking-monitor-go/internal/services"
)

type Server struct {
	config   *config.Config
	router   *gin.Engine
	server   *http.Server
	services *services.ServiceContainer

	healthHandler     *handlers.HealthHandler
	sessionHandler    *handlers.SessionHandler
	slotsHandler      *handlers.SlotsHandler
	violationsHandler *handlers.ViolationsHandler
	systemHandler     *handlers.SystemHandler
}

func NewServer(cfg *config.Config) (*Server, error) {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	sc, err := services.NewServiceContainer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create services: %w", err)
	}

	var history handlers.HistoryStore
	if sc.Store != nil {
		history = sc.Store
	}

	s := &Server{
		config:            cfg,
		router:            gin.New(),
		services:          sc,
		healthHandler:     handlers.NewHealthHandler(cfg.WorkerID, cfg.Version, sc.Coordinator),
		sessionHandler:    handlers.NewSessionHandler(sc.Coordinator, sc.Publisher),
		slotsHandler:      handlers.NewSlotsHandler(sc.Slots, sc.Coordinator, cfg.TemplateDir),
		violationsHandler: handlers.NewViolationsHandler(sc.Violations, history),
		systemHandler:     handlers.NewSystemHandler(cfg.WorkerID, sc.Metrics, sc.Coordinator),
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.setupSwagger()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: s.router,
	}
	return s, nil
}

func (s *Server) Start() error {
	log.Info().Int("port", s.config.Port).Msg("Starting parking monitor API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then stops the pipeline and its services
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Stopping parking monitor API")

	httpErr := s.server.Shutdown(ctx)
	svcErr := s.services.Shutdown(ctx)
	return errors.Join(httpErr, svcErr)
}
