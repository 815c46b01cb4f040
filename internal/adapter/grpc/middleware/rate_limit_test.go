package middleware

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const healthCheck = "/grpc.health.v1.Health/Check"

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, mr
}

// mockHandler is a simple handler that returns a fixed response
func mockHandler(ctx context.Context, req any) (any, error) {
	return "success", nil
}

func peerContext(t *testing.T, hostport string) context.Context {
	addr, err := net.ResolveTCPAddr("tcp", hostport)
	require.NoError(t, err)
	return peer.NewContext(context.Background(), &peer.Peer{Addr: addr})
}

func TestRateLimiter_WithinLimit(t *testing.T) {
	client, _ := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 10, WindowSeconds: 1, Enabled: true}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()

	ctx := peerContext(t, "127.0.0.1:12345")
	info := &grpc.UnaryServerInfo{FullMethod: healthCheck}

	for i := 0; i < 5; i++ {
		resp, err := interceptor(ctx, nil, info, mockHandler)
		require.NoError(t, err)
		assert.Equal(t, "success", resp)
	}
}

func TestRateLimiter_ExceedLimit(t *testing.T) {
	client, _ := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 5, WindowSeconds: 1, Enabled: true}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()

	ctx := peerContext(t, "127.0.0.1:12345")
	info := &grpc.UnaryServerInfo{FullMethod: healthCheck}

	for i := 0; i < 5; i++ {
		resp, err := interceptor(ctx, nil, info, mockHandler)
		require.NoError(t, err)
		assert.Equal(t, "success", resp)
	}

	// Next request should be rate limited
	resp, err := interceptor(ctx, nil, info, mockHandler)
	require.Error(t, err)
	assert.Nil(t, resp)

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.ResourceExhausted, st.Code())
	assert.Contains(t, st.Message(), "rate limit exceeded")
}

func TestRateLimiter_Disabled(t *testing.T) {
	client, _ := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 1, WindowSeconds: 1, Enabled: false}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()

	ctx := peerContext(t, "127.0.0.1:12345")
	info := &grpc.UnaryServerInfo{FullMethod: healthCheck}

	for i := 0; i < 10; i++ {
		resp, err := interceptor(ctx, nil, info, mockHandler)
		require.NoError(t, err)
		assert.Equal(t, "success", resp)
	}
}

func TestRateLimiter_NilIsDisabled(t *testing.T) {
	var rl *RateLimiter

	assert.False(t, rl.Enabled())
	allowed, err := rl.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, allowed)

	resp, err := rl.UnaryInterceptor()(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: healthCheck}, mockHandler)
	require.NoError(t, err)
	assert.Equal(t, "success", resp)
}

func TestRateLimiter_DifferentIPs(t *testing.T) {
	client, _ := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 2, WindowSeconds: 1, Enabled: true}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: healthCheck}

	ctx1 := peerContext(t, "192.168.1.1:12345")
	for i := 0; i < 2; i++ {
		_, err := interceptor(ctx1, nil, info, mockHandler)
		require.NoError(t, err)
	}
	_, err := interceptor(ctx1, nil, info, mockHandler)
	require.Error(t, err)

	// IP 2 has its own window
	resp, err := interceptor(peerContext(t, "192.168.1.2:12345"), nil, info, mockHandler)
	require.NoError(t, err)
	assert.Equal(t, "success", resp)
}

func TestRateLimiter_XForwardedFor(t *testing.T) {
	client, mr := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 5, WindowSeconds: 1, Enabled: true}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-forwarded-for", "203.0.113.1"))
	info := &grpc.UnaryServerInfo{FullMethod: healthCheck}

	for i := 0; i < 3; i++ {
		_, err := interceptor(ctx, nil, info, mockHandler)
		require.NoError(t, err)
	}

	got, err := mr.Get(KeyPrefix + healthCheck + ":203.0.113.1")
	require.NoError(t, err)
	assert.Equal(t, "3", got)
}

func TestRateLimiter_WindowExpiry(t *testing.T) {
	client, mr := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 2, WindowSeconds: 2, Enabled: true}, zaptest.NewLogger(t))
	ctx := context.Background()

	// 2 req/s * 2s = 4 per window
	for i := 0; i < 4; i++ {
		allowed, err := rl.Allow(ctx, "client")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := rl.Allow(ctx, "client")
	require.NoError(t, err)
	assert.False(t, allowed)

	ttl := mr.TTL(KeyPrefix + "client")
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, 2*time.Second)

	mr.FastForward(3 * time.Second)

	allowed, err = rl.Allow(ctx, "client")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	client, mr := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 1, WindowSeconds: 1, Enabled: true}, zaptest.NewLogger(t))
	mr.Close()

	allowed, err := rl.Allow(context.Background(), "client")
	assert.Error(t, err)
	assert.True(t, allowed)

	resp, err := rl.UnaryInterceptor()(peerContext(t, "127.0.0.1:1"), nil, &grpc.UnaryServerInfo{FullMethod: healthCheck}, mockHandler)
	require.NoError(t, err)
	assert.Equal(t, "success", resp)
}

func TestRateLimiterConfig_MaxRequests(t *testing.T) {
	assert.Equal(t, int64(10), RateLimiterConfig{RequestsPerSecond: 10, WindowSeconds: 1}.MaxRequests())
	assert.Equal(t, int64(4), RateLimiterConfig{RequestsPerSecond: 2, WindowSeconds: 2}.MaxRequests())
	assert.Equal(t, int64(1), RateLimiterConfig{RequestsPerSecond: 0.1, WindowSeconds: 1}.MaxRequests())
}
