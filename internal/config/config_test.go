package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NATS_URL", "nats://test:4222")

	cfg := Load()

	assert.Equal(t, 640, cfg.InputSize)
	assert.InDelta(t, 0.25, cfg.ConfThreshold, 1e-6)
	assert.InDelta(t, 0.45, cfg.NMSThreshold, 1e-6)
	assert.Equal(t, 300, cfg.OverstayFrames)
	assert.Equal(t, 30, cfg.WrongSlotFrames)
	assert.Equal(t, 500*time.Millisecond, cfg.ViolationCheckInterval)
	assert.Equal(t, uint64(3), cfg.DropLagThreshold)
	assert.Equal(t, 2*time.Second, cfg.JoinTimeout)
	assert.Equal(t, 90, cfg.TrackBuffer)
	assert.Equal(t, "nats://test:4222", cfg.NatsURL)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CONF_THRESHOLD", "0.4")
	t.Setenv("OVERSTAY_FRAMES", "600")
	t.Setenv("VIOLATION_CHECK_INTERVAL", "1s")
	t.Setenv("NATS_ENABLED", "true")
	t.Setenv("INPUT_SIZE", "not-a-number")

	cfg := Load()

	assert.InDelta(t, 0.4, cfg.ConfThreshold, 1e-6)
	assert.Equal(t, 600, cfg.OverstayFrames)
	assert.Equal(t, time.Second, cfg.ViolationCheckInterval)
	assert.True(t, cfg.NatsEnabled)
	assert.Equal(t, 640, cfg.InputSize, "unparsable values fall back to the default")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"input size", func(c *Config) { c.InputSize = 100 }},
		{"confidence", func(c *Config) { c.ConfThreshold = 1.5 }},
		{"nms", func(c *Config) { c.NMSThreshold = 0 }},
		{"classes", func(c *Config) { c.NumClasses = 0 }},
		{"stillness", func(c *Config) { c.WrongSlotFrames = 0 }},
		{"fps", func(c *Config) { c.DefaultFPS = 120 }},
		{"backend", func(c *Config) { c.DetectorBackend = "tensorrt" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
