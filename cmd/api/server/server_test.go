package server

import (
	"context"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	ginhandler "user-record-service/internal/adapter/gin/handler"
	"user-record-service/internal/adapter/storage/filestore"
	"user-record-service/internal/config"
	usecase "user-record-service/internal/usecase/user"
)

const bufSize = 1024 * 1024

func healthClient(t *testing.T, lis *bufconn.Listener) healthpb.HealthClient {
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func TestSetupGRPC_HealthStatus(t *testing.T) {
	lis := bufconn.Listen(bufSize)
	grpcServer, healthServer := SetupGRPC(nil)
	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(grpcServer.Stop)

	client := healthClient(t, lis)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	healthServer.Shutdown()

	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}

func newTestServer(t *testing.T) *Server {
	gin.SetMode(gin.TestMode)
	l := zaptest.NewLogger(t)

	cfg := &config.Config{App: config.AppConfig{HTTPPort: "0", GRPCPort: "0"}}
	rs := usecase.New(filestore.New(filepath.Join(t.TempDir(), "users.json"), l), l)
	return New(cfg, l,
		ginhandler.NewUserHandler(rs, l),
		ginhandler.NewHealthHandler("user-record-service", config.BackendFile, rs),
		nil,
	)
}

func TestServer_ServeAndShutdown(t *testing.T) {
	srv := newTestServer(t)

	grpcLis := bufconn.Listen(bufSize)
	httpLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(grpcLis, httpLis) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthClient(t, grpcLis).Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+httpLis.Addr().String()+"/health", nil)
	require.NoError(t, err)
	httpResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = httpResp.Body.Close()
	assert.Equal(t, http.StatusOK, httpResp.StatusCode)

	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("servers did not stop")
	}
}

func TestServer_ServeStopsSiblingOnFailure(t *testing.T) {
	t.Run("gRPC Fails", func(t *testing.T) {
		srv := newTestServer(t)

		grpcLis := bufconn.Listen(bufSize)
		require.NoError(t, grpcLis.Close())
		httpLis, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)

		done := make(chan error, 1)
		go func() { done <- srv.Serve(grpcLis, httpLis) }()

		select {
		case err := <-done:
			assert.ErrorContains(t, err, "gRPC server")
		case <-time.After(5 * time.Second):
			t.Fatal("Serve kept running after the gRPC server failed")
		}
	})

	t.Run("HTTP Fails", func(t *testing.T) {
		srv := newTestServer(t)

		grpcLis := bufconn.Listen(bufSize)
		httpLis, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		require.NoError(t, httpLis.Close())

		done := make(chan error, 1)
		go func() { done <- srv.Serve(grpcLis, httpLis) }()

		select {
		case err := <-done:
			assert.ErrorContains(t, err, "HTTP server")
		case <-time.After(5 * time.Second):
			t.Fatal("Serve kept running after the HTTP server failed")
		}
	})
}
