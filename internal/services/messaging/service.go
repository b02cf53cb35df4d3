package messaging

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"parking-monitor-go/internal/config"
)

var ErrNotConnected = errors.New("nats connection is not established")

type Service struct {
	conn   *nats.Conn
	cfg    *config.Config
	logger zerolog.Logger
}

func NewService(cfg *config.Config, logger zerolog.Logger) (*Service, error) {
	opts := []nats.Option{
		nats.Name("parking-monitor-" + cfg.WorkerID),
		nats.Timeout(cfg.NatsConnectTimeout),
		nats.ReconnectWait(cfg.NatsReconnectWait),
		nats.MaxReconnects(cfg.NatsMaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(cfg.NatsURL, opts...)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("url", cfg.NatsURL).Msg("NATS connection established")

	return &Service{
		conn:   conn,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Publish marshals data as JSON and publishes it on subject
func (s *Service) Publish(subject string, data interface{}) error {
	if s.conn == nil {
		return ErrNotConnected
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return s.conn.Publish(subject, payload)
}

func (s *Service) Subscribe(subject string, handler func([]byte)) (*nats.Subscription, error) {
	if s.conn == nil {
		return nil, ErrNotConnected
	}
	return s.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
}

func (s *Service) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

func (s *Service) Shutdown(ctx context.Context) error {
	if s.conn != nil {
		// Try graceful drain, fallback to immediate close
		if err := s.conn.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to drain NATS connection gracefully, closing immediately")
			s.conn.Close()
		}
	}
	return nil
}
