package services

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"parking-monitor-go/internal/config"
	"parking-monitor-go/internal/logging"
	"parking-monitor-go/internal/metrics"
	"parking-monitor-go/internal/models"
	"parking-monitor-go/internal/services/capture"
	"parking-monitor-go/internal/services/detection"
	"parking-monitor-go/internal/services/messaging"
	"parking-monitor-go/internal/services/pipeline"
	"parking-monitor-go/internal/services/publisher/mjpeg"
	"parking-monitor-go/internal/services/render"
	"parking-monitor-go/internal/services/slots"
	"parking-monitor-go/internal/services/tracking"
	"parking-monitor-go/internal/services/violations"
	"parking-monitor-go/internal/store"
)

// ServiceContainer holds all services
type ServiceContainer struct {
	Config      *config.Config
	Detector    detection.Detector
	Slots       *slots.Manager
	Violations  *violations.Engine
	Renderer    *render.Renderer
	Publisher   *mjpeg.Publisher
	Messaging   *messaging.Service
	Store       *store.DB
	Metrics     *metrics.Metrics
	Coordinator *pipeline.Coordinator
}

// NewServiceContainer creates a new service container
func NewServiceContainer(cfg *config.Config) (*ServiceContainer, error) {
	logger := logging.NewServiceLogger(cfg, "container")

	detector, err := detection.New(cfg, logging.NewServiceLogger(cfg, "detection"))
	if err != nil {
		return nil, fmt.Errorf("create detector: %w", err)
	}

	sc := &ServiceContainer{
		Config:    cfg,
		Detector:  detector,
		Slots:     slots.NewManager(),
		Renderer:  render.NewRenderer(cfg.LabelCacheMax),
		Publisher: mjpeg.NewPublisher(cfg.JPEGQuality, logging.NewServiceLogger(cfg, "mjpeg")),
		Metrics:   metrics.New(),
	}

	var sinks []violations.EventSink

	db, err := store.NewDB(cfg.DatabasePath)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.DatabasePath).Msg("Violation history disabled")
	} else {
		sc.Store = db
		sinks = append(sinks, db)
	}

	if cfg.NatsEnabled {
		msg, err := messaging.NewService(cfg, logging.NewServiceLogger(cfg, "messaging"))
		if err != nil {
			logger.Warn().Err(err).Str("url", cfg.NatsURL).Msg("NATS unavailable, violation events will not be published")
		} else {
			sc.Messaging = msg
			sink, err := violations.NewPublisherSink(msg, cfg.ViolationsSubject, cfg.WorkerID)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, sink)
		}
	}

	sc.Violations = violations.NewEngine(
		violations.RulesFromConfig(cfg),
		violations.NewJPEGSnapshotter(cfg.JPEGQuality),
		logging.NewServiceLogger(cfg, "violations"),
		sinks...,
	)

	captureLogger := logging.NewServiceLogger(cfg, "capture")
	coordinator, err := pipeline.NewCoordinator(cfg, pipeline.Deps{
		Opener: func(spec models.SourceSpec) (capture.Source, error) {
			return capture.Open(spec, captureLogger)
		},
		LoadImage:  capture.LoadImage,
		Detector:   detector,
		Tracker:    tracking.NewIoUTracker(tracking.ParamsFromConfig(cfg)),
		Slots:      sc.Slots,
		Violations: sc.Violations,
		Renderer:   sc.Renderer,
		Publisher:  sc.Publisher,
		Metrics:    sc.Metrics,
	}, logging.NewServiceLogger(cfg, "pipeline"))
	if err != nil {
		return nil, err
	}
	sc.Coordinator = coordinator

	sc.loadDefaultTemplate(logger)
	return sc, nil
}

func (sc *ServiceContainer) loadDefaultTemplate(logger zerolog.Logger) {
	if sc.Config.DefaultTemplate == "" {
		return
	}
	path, err := slots.TemplatePath(sc.Config.TemplateDir, sc.Config.DefaultTemplate)
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid default template name")
		return
	}
	if err := sc.Slots.LoadTemplate(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info().Str("path", path).Msg("Default template not found")
			return
		}
		logger.Warn().Err(err).Str("path", path).Msg("Failed to load default template")
		return
	}
	if err := sc.Coordinator.SetParkingMode(true); err != nil {
		logger.Warn().Err(err).Msg("Failed to enable parking mode")
	}
	logger.Info().Str("template", sc.Slots.Name()).Int("slots", sc.Slots.Len()).Msg("Default template loaded")
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	var errs []error

	if sc.Coordinator != nil {
		if err := sc.Coordinator.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if sc.Publisher != nil {
		sc.Publisher.Shutdown()
	}

	if sc.Renderer != nil {
		sc.Renderer.Close()
	}

	if sc.Detector != nil {
		if err := sc.Detector.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if sc.Messaging != nil {
		if err := sc.Messaging.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if sc.Store != nil {
		if err := sc.Store.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
