package detection

import (
	"context"
	"image"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"parking-monitor-go/internal/models"
)

func TestParseGRPCEndpoint(t *testing.T) {
	tests := []struct {
		in       string
		wantHost string
		wantTLS  bool
	}{
		{"localhost:50052", "localhost:50052", false},
		{"192.168.1.76:50052", "192.168.1.76:50052", false},
		{"inference.example.com", "inference.example.com:443", true},
		{"inference.example.com:8443", "inference.example.com:8443", true},
		{"http://detector:9000", "detector:9000", false},
		{"https://detector", "detector:443", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			host, creds, err := parseGRPCEndpoint(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantTLS, creds.Info().SecurityProtocol == "tls")
		})
	}

	_, _, err := parseGRPCEndpoint("ftp://detector:21")
	assert.Error(t, err)
}

func TestCandidatesFromStruct(t *testing.T) {
	resp, err := structpb.NewStruct(map[string]interface{}{
		"detections": []interface{}{
			map[string]interface{}{"x": 10, "y": 20, "w": 30, "h": 40, "class_id": 2, "confidence": 0.9},
			map[string]interface{}{"x": 0, "y": 0, "w": 5, "h": 5, "class_id": 2, "confidence": 0.1},
			map[string]interface{}{"x": 0, "y": 0, "w": 5, "h": 5, "class_id": 55, "confidence": 0.9},
		},
	})
	require.NoError(t, err)

	got, err := candidatesFromStruct(resp, Options{ConfThreshold: 0.25, NumClasses: 20})
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, image.Rect(10, 20, 40, 60), got.Boxes[0])

	bad, err := structpb.NewStruct(map[string]interface{}{"detections": "nope"})
	require.NoError(t, err)
	_, err = candidatesFromStruct(bad, Options{})
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func startDetectionServer(t *testing.T, reply map[string]interface{}) string {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, health.NewServer())
	srv.RegisterService(&grpc.ServiceDesc{
		ServiceName: "parking.v1.DetectionService",
		HandlerType: (*interface{})(nil),
		Methods: []grpc.MethodDesc{{
			MethodName: "Detect",
			Handler: func(_ interface{}, _ context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
				in := &wrapperspb.BytesValue{}
				if err := dec(in); err != nil {
					return nil, err
				}
				return structpb.NewStruct(reply)
			},
		}},
	}, struct{}{})

	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	return lis.Addr().String()
}

func TestRemoteDetectorRoundTrip(t *testing.T) {
	addr := startDetectionServer(t, map[string]interface{}{
		"detections": []interface{}{
			map[string]interface{}{"x": 4, "y": 4, "w": 8, "h": 8, "class_id": 2, "confidence": 0.8},
		},
	})

	rd, err := NewRemoteDetector(addr, 2*time.Second, Options{ConfThreshold: 0.25, NMSThreshold: 0.45, NumClasses: 20}, zerolog.Nop())
	require.NoError(t, err)
	defer rd.Close()

	frame := &models.Frame{Data: make([]byte, 32*32*3), Width: 32, Height: 32}
	dets, err := rd.Detect(context.Background(), frame)
	require.NoError(t, err)

	require.Len(t, dets, 1)
	assert.Equal(t, image.Rect(4, 4, 12, 12), dets[0].Box)
	assert.Equal(t, 2, dets[0].ClassID)
	assert.True(t, rd.IsConnected())
}

func TestNewRemoteDetectorUnreachable(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	lis.Close()

	_, err = NewRemoteDetector(addr, time.Second, Options{}, zerolog.Nop())
	assert.Error(t, err)
}
