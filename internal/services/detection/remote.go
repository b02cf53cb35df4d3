package detection

import (
	"context"
	"crypto/tls"
	"fmt"
	"image"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"parking-monitor-go/internal/models"
)

const detectMethod = "/parking.v1.DetectionService/Detect"

// RemoteDetector sends JPEG frames to an inference service over gRPC. The
// service answers with boxes already mapped to source coordinates.
type RemoteDetector struct {
	opts    Options
	timeout time.Duration
	logger  zerolog.Logger

	mu       sync.RWMutex
	conn     *grpc.ClientConn
	endpoint string

	// Retry management
	lastFailTime     time.Time
	consecutiveFails int
	maxRetryBackoff  time.Duration
}

// NewRemoteDetector dials the endpoint and runs one health check. An
// unreachable service is a session-setup error.
func NewRemoteDetector(endpoint string, timeout time.Duration, opts Options, logger zerolog.Logger) (*RemoteDetector, error) {
	rd := &RemoteDetector{
		opts:            opts,
		timeout:         timeout,
		logger:          logger,
		maxRetryBackoff: 30 * time.Second,
	}

	if err := rd.connect(endpoint); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rd.HealthCheck(ctx); err != nil {
		rd.Close()
		return nil, fmt.Errorf("detection service health check failed: %w", err)
	}

	return rd, nil
}

func (rd *RemoteDetector) connect(endpoint string) error {
	rd.mu.Lock()
	defer rd.mu.Unlock()

	if rd.conn != nil {
		rd.conn.Close()
		rd.conn = nil
	}

	normalizedEndpoint, creds, err := parseGRPCEndpoint(endpoint)
	if err != nil {
		return fmt.Errorf("failed to parse detector endpoint %s: %w", endpoint, err)
	}

	rd.logger.Info().
		Str("original_endpoint", endpoint).
		Str("normalized_endpoint", normalizedEndpoint).
		Bool("use_tls", creds.Info().SecurityProtocol == "tls").
		Msg("Connecting to detection gRPC service")

	conn, err := grpc.NewClient(normalizedEndpoint, grpc.WithTransportCredentials(creds))
	if err != nil {
		return fmt.Errorf("failed to connect to detection service at %s: %w", normalizedEndpoint, err)
	}

	rd.conn = conn
	rd.endpoint = endpoint
	rd.consecutiveFails = 0
	return nil
}

// HealthCheck queries the standard gRPC health service
func (rd *RemoteDetector) HealthCheck(ctx context.Context) error {
	rd.mu.RLock()
	conn := rd.conn
	rd.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("detection client not connected")
	}

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		return err
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("detection service status %s", resp.GetStatus())
	}
	return nil
}

// IsConnected checks if the connection is usable
func (rd *RemoteDetector) IsConnected() bool {
	rd.mu.RLock()
	defer rd.mu.RUnlock()

	if rd.conn == nil {
		return false
	}
	state := rd.conn.GetState()
	return state == connectivity.Ready || state == connectivity.Idle || state == connectivity.Connecting
}

// Detect encodes the frame and performs one unary call
func (rd *RemoteDetector) Detect(ctx context.Context, frame *models.Frame) ([]models.Detection, error) {
	if frame.Empty() {
		return nil, nil
	}
	if !rd.shouldRetry() {
		return nil, fmt.Errorf("in backoff period after consecutive failures")
	}
	if err := rd.ensureConnected(); err != nil {
		return nil, err
	}

	jpeg, err := encodeJPEG(frame)
	if err != nil {
		return nil, err
	}

	rd.mu.RLock()
	conn := rd.conn
	rd.mu.RUnlock()

	callCtx, cancel := context.WithTimeout(ctx, rd.timeout)
	defer cancel()

	resp := &structpb.Struct{}
	if err := conn.Invoke(callCtx, detectMethod, wrapperspb.Bytes(jpeg), resp); err != nil {
		rd.recordFailure()
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	rd.mu.Lock()
	rd.consecutiveFails = 0
	rd.mu.Unlock()

	candidates, err := candidatesFromStruct(resp, rd.opts)
	if err != nil {
		return nil, err
	}
	return NMS(candidates, rd.opts.ConfThreshold, rd.opts.NMSThreshold), nil
}

func (rd *RemoteDetector) ensureConnected() error {
	rd.mu.RLock()
	needsConnection := rd.conn == nil
	if rd.conn != nil {
		state := rd.conn.GetState()
		needsConnection = state == connectivity.TransientFailure || state == connectivity.Shutdown
	}
	endpoint := rd.endpoint
	rd.mu.RUnlock()

	if !needsConnection {
		return nil
	}
	if err := rd.connect(endpoint); err != nil {
		rd.recordFailure()
		return fmt.Errorf("failed to ensure connection: %w", err)
	}
	return nil
}

func (rd *RemoteDetector) Close() error {
	rd.mu.Lock()
	defer rd.mu.Unlock()

	if rd.conn == nil {
		return nil
	}
	err := rd.conn.Close()
	rd.conn = nil
	rd.logger.Info().Msg("Detection gRPC connection closed")
	return err
}

// shouldRetry determines if we should attempt a call based on exponential backoff
func (rd *RemoteDetector) shouldRetry() bool {
	rd.mu.RLock()
	defer rd.mu.RUnlock()

	if rd.consecutiveFails == 0 {
		return true
	}

	// Exponential backoff: 1s, 2s, 4s, 8s, 16s, 30s (max)
	backoffDuration := time.Duration(1<<uint(rd.consecutiveFails-1)) * time.Second
	if backoffDuration > rd.maxRetryBackoff {
		backoffDuration = rd.maxRetryBackoff
	}

	return time.Since(rd.lastFailTime) >= backoffDuration
}

func (rd *RemoteDetector) recordFailure() {
	rd.mu.Lock()
	defer rd.mu.Unlock()

	rd.consecutiveFails++
	rd.lastFailTime = time.Now()

	if rd.consecutiveFails <= 5 {
		rd.logger.Warn().
			Int("consecutive_fails", rd.consecutiveFails).
			Msg("Detection call failure recorded")
	}
}

func encodeJPEG(frame *models.Frame) ([]byte, error) {
	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create Mat from frame data: %w", err)
	}
	defer mat.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, 90})
	if err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	defer buf.Close()

	b := buf.GetBytes()
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// candidatesFromStruct reads {"detections":[{x,y,w,h,class_id,confidence}]}
func candidatesFromStruct(resp *structpb.Struct, opts Options) (Candidates, error) {
	var out Candidates

	field, ok := resp.GetFields()["detections"]
	if !ok {
		return out, nil
	}
	list := field.GetListValue()
	if list == nil {
		return out, fmt.Errorf("%w: detections is not a list", ErrMalformedOutput)
	}

	for _, v := range list.GetValues() {
		item := v.GetStructValue()
		if item == nil {
			return Candidates{}, fmt.Errorf("%w: detection is not an object", ErrMalformedOutput)
		}
		f := item.GetFields()
		num := func(key string) float64 { return f[key].GetNumberValue() }

		score := float32(num("confidence"))
		classID := int(num("class_id"))
		if score <= opts.ConfThreshold {
			continue
		}
		if opts.NumClasses > 0 && (classID < 0 || classID >= opts.NumClasses) {
			continue
		}

		x, y := int(num("x")), int(num("y"))
		out.Boxes = append(out.Boxes, image.Rect(x, y, x+int(num("w")), y+int(num("h"))))
		out.Scores = append(out.Scores, score)
		out.ClassIDs = append(out.ClassIDs, classID)
	}
	return out, nil
}

// parseGRPCEndpoint parses and normalizes the gRPC endpoint URL
func parseGRPCEndpoint(endpoint string) (string, credentials.TransportCredentials, error) {
	// Add scheme if missing
	if !strings.Contains(endpoint, "://") {
		if strings.Contains(endpoint, ".") && !strings.Contains(endpoint, ":") {
			endpoint = "https://" + endpoint + ":443"
		} else if strings.Contains(endpoint, ":") {
			parts := strings.Split(endpoint, ":")
			if len(parts) == 2 {
				if port, err := strconv.Atoi(parts[1]); err == nil && (port == 443 || port == 8443 || port == 9443) {
					endpoint = "https://" + endpoint
				} else {
					endpoint = "http://" + endpoint
				}
			}
		} else {
			endpoint = "https://" + endpoint + ":443"
		}
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}

	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "https":
			host = u.Hostname() + ":443"
		case "http":
			host = u.Hostname() + ":80"
		default:
			return "", nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
		}
	}

	var creds credentials.TransportCredentials
	switch u.Scheme {
	case "https":
		creds = credentials.NewTLS(&tls.Config{ServerName: u.Hostname()})
	case "http":
		creds = insecure.NewCredentials()
	default:
		return "", nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}

	return host, creds, nil
}
