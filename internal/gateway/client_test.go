package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prameswara/medibook/config"
	"github.com/prameswara/medibook/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(baseURL string, maxAttempts int) *Client {
	return NewClient(config.GatewayConfig{
		BaseURL:           baseURL,
		APIKey:            "test-key",
		RequestTimeoutSec: 2,
		MaxAttempts:       maxAttempts,
	}, zap.NewNop())
}

func TestCreateSession(t *testing.T) {
	expiresAt := time.Now().Add(30 * time.Minute).UTC().Truncate(time.Second)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sessions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tok-1-1", req["order_id"])
		assert.Equal(t, float64(105000), req["amount"])
		assert.Equal(t, float64(86400), req["expiry_hint_seconds"])

		json.NewEncoder(w).Encode(Session{Handle: "pay/abc", ExpiresAt: expiresAt})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 1)
	session, err := client.CreateSession(context.Background(), "tok-1-1", 105000, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "pay/abc", session.Handle)
	assert.True(t, session.ExpiresAt.Equal(expiresAt))
}

func TestGetStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sessions/tok-1-1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"status": "PAID"})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 1)
	status, err := client.GetStatus(context.Background(), "tok-1-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, status)
}

func TestGetStatus_RetriesTransientFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "PENDING"})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 2)
	status, err := client.GetStatus(context.Background(), "tok-1-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetStatus_ExhaustedRetriesSurfaceUnavailable(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 2)
	_, err := client.GetStatus(context.Background(), "tok-1-1")
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestDoWithRetry_StopsOnCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(server.URL, 3)
	_, err := client.GetStatus(ctx, "tok-1-1")
	assert.ErrorIs(t, err, context.Canceled)
}
