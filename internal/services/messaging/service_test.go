package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"parking-monitor-go/internal/models"
)

var _ models.MessagePublisher = (*Service)(nil)

func TestUnconnectedService(t *testing.T) {
	var s Service

	assert.False(t, s.IsConnected())
	assert.ErrorIs(t, s.Publish("parking.violations", map[string]int{"id": 1}), ErrNotConnected)

	_, err := s.Subscribe("parking.violations", func([]byte) {})
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.NoError(t, s.Shutdown(context.Background()))
}
