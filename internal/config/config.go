package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Application
	Version     string
	Environment string
	WorkerID    string
	Port        int
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// Model / Detector
	// DetectorBackend is "onnx" (local gocv dnn) or "grpc" (remote inference service)
	DetectorBackend string
	ModelPath       string
	DetectorGRPCURL string
	DetectorTimeout time.Duration
	InputSize       int
	ConfThreshold   float32
	NMSThreshold    float32
	NumClasses      int

	// Tracker
	TrackBuffer int     // frames a lost track is kept before it is dropped
	TrackThresh float32 // minimum confidence to start a track
	MatchIoU    float64
	StillPixels float64 // max center displacement counted as "still"

	// Violation rules
	OverstayFrames         int
	WrongSlotFrames        int
	ViolationCheckInterval time.Duration

	// Pipeline
	DropLagThreshold uint64
	DefaultFPS       float64
	MaxFPS           float64
	JoinTimeout      time.Duration

	// Rendering
	JPEGQuality   int
	LabelCacheMax int

	// Parking templates
	TemplateDir     string
	DefaultTemplate string

	// NATS (violation events)
	// Default: nats://localhost:4222
	// Docker: Use nats://nats:4222 if running the monitor in Docker
	NatsEnabled        bool
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	ViolationsSubject  string

	// Violation history
	DatabasePath string

	// Metrics
	MetricsEnabled bool

	// Swagger Configuration
	SwaggerHost string

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		WorkerID:    getEnv("WORKER_ID", "monitor-1"),
		Port:        getEnvInt("PORT", 8000),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Logdy
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// Model / Detector
		DetectorBackend: getEnv("DETECTOR_BACKEND", "onnx"),
		ModelPath:       getEnv("MODEL_PATH", "models/yolo11n.onnx"),
		DetectorGRPCURL: getEnv("DETECTOR_GRPC_URL", "localhost:50052"),
		DetectorTimeout: getEnvDuration("DETECTOR_TIMEOUT", 2*time.Second),
		InputSize:       getEnvInt("INPUT_SIZE", 640),
		ConfThreshold:   getEnvFloat32("CONF_THRESHOLD", 0.25),
		NMSThreshold:    getEnvFloat32("NMS_THRESHOLD", 0.45),
		NumClasses:      getEnvInt("NUM_CLASSES", 20),

		// Tracker (ByteTrack-compatible defaults)
		TrackBuffer: getEnvInt("TRACK_BUFFER", 90),
		TrackThresh: getEnvFloat32("TRACK_THRESH", 0.25),
		MatchIoU:    getEnvFloat("TRACK_MATCH_IOU", 0.3),
		StillPixels: getEnvFloat("TRACK_STILL_PIXELS", 3.0),

		// Violation rules (300 frames ~ 10s at 30fps)
		OverstayFrames:         getEnvInt("OVERSTAY_FRAMES", 300),
		WrongSlotFrames:        getEnvInt("WRONG_SLOT_FRAMES", 30),
		ViolationCheckInterval: getEnvDuration("VIOLATION_CHECK_INTERVAL", 500*time.Millisecond),

		// Pipeline
		DropLagThreshold: uint64(getEnvInt("DROP_LAG_THRESHOLD", 3)),
		DefaultFPS:       getEnvFloat("DEFAULT_FPS", 30),
		MaxFPS:           getEnvFloat("MAX_FPS", 60),
		JoinTimeout:      getEnvDuration("JOIN_TIMEOUT", 2*time.Second),

		// Rendering
		JPEGQuality:   getEnvInt("JPEG_QUALITY", 90),
		LabelCacheMax: getEnvInt("LABEL_CACHE_MAX", 100),

		// Parking templates
		TemplateDir:     getEnv("TEMPLATE_DIR", "templates"),
		DefaultTemplate: getEnv("DEFAULT_TEMPLATE", ""),

		// NATS
		NatsEnabled:        getEnvBool("NATS_ENABLED", false),
		NatsURL:            getNatsURL(),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		ViolationsSubject:  getEnv("VIOLATIONS_SUBJECT", "parking.violations"),

		// Violation history
		DatabasePath: getEnv("DATABASE_PATH", "parking-monitor.db"),

		// Metrics
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),

		// Swagger
		SwaggerHost: getEnv("SWAGGER_HOST", "localhost:8000"),

		// Graceful Shutdown
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// Validate rejects threshold combinations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.InputSize <= 0 || c.InputSize%32 != 0 {
		return fmt.Errorf("input size must be a positive multiple of 32, got %d", c.InputSize)
	}
	if c.ConfThreshold <= 0 || c.ConfThreshold >= 1 {
		return fmt.Errorf("confidence threshold must be in (0,1), got %.2f", c.ConfThreshold)
	}
	if c.NMSThreshold <= 0 || c.NMSThreshold >= 1 {
		return fmt.Errorf("nms threshold must be in (0,1), got %.2f", c.NMSThreshold)
	}
	if c.NumClasses <= 0 {
		return fmt.Errorf("num classes must be positive, got %d", c.NumClasses)
	}
	if c.WrongSlotFrames <= 0 || c.OverstayFrames <= 0 {
		return fmt.Errorf("stillness thresholds must be positive")
	}
	if c.DefaultFPS <= 0 || c.DefaultFPS > c.MaxFPS {
		return fmt.Errorf("default fps %.1f outside (0,%.1f]", c.DefaultFPS, c.MaxFPS)
	}
	switch c.DetectorBackend {
	case "onnx", "grpc":
	default:
		return fmt.Errorf("unknown detector backend %q", c.DetectorBackend)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat32(key string, defaultValue float32) float32 {
	return float32(getEnvFloat(key, float64(defaultValue)))
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Helper functions for Docker environment detection
func isRunningInDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}

	if isRunningInDocker() {
		return "nats://nats:4222"
	}

	return "nats://localhost:4222"
}
