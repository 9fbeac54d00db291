package server

import (
	"chat-presence/domain"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCORS_Preflight(t *testing.T) {
	req := require.New(t)
	_, handler := newTestServer(t, SecurityConfig{AllowedOrigins: []string{"http://localhost:3000"}})

	r := httptest.NewRequest(http.MethodOptions, "/messages", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	req.Equal(http.StatusNoContent, w.Code)
	req.Equal("http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	req.Contains(w.Header().Get("Access-Control-Allow-Headers"), "User")
	req.Contains(w.Header().Get("Access-Control-Allow-Methods"), "PUT")
}

func TestCORS_Unknown_Origin_Gets_No_Headers(t *testing.T) {
	req := require.New(t)
	chatService, handler := newTestServer(t, SecurityConfig{AllowedOrigins: []string{"http://localhost:3000"}})
	chatService.EXPECT().ListParticipants(gomock.Any()).Return([]domain.Participant{}, nil).Times(1)

	r := httptest.NewRequest(http.MethodGet, "/participants", nil)
	r.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	req.Equal(http.StatusOK, w.Code)
	req.Empty(w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Wildcard(t *testing.T) {
	req := require.New(t)
	req.True(originAllowed("http://anything", []string{"*"}))
	req.True(originAllowed("HTTP://LOCALHOST:3000", []string{"http://localhost:3000"}))
	req.False(originAllowed("http://localhost:3000", nil))
}

func TestRateLimit_Rejects_Burst_Overflow(t *testing.T) {
	req := require.New(t)
	chatService, handler := newTestServer(t, SecurityConfig{RPS: 0.001, Burst: 2})
	chatService.EXPECT().Heartbeat(gomock.Any(), "alice").Return(nil).Times(2)

	// Given two requests within the burst
	req.Equal(http.StatusOK, do(handler, http.MethodPost, "/status", "alice", nil).Code)
	req.Equal(http.StatusOK, do(handler, http.MethodPost, "/status", "alice", nil).Code)

	// When a third one arrives immediately
	w := do(handler, http.MethodPost, "/status", "alice", nil)

	// Then it is rejected before reaching the service
	req.Equal(http.StatusTooManyRequests, w.Code)
}

func TestRateLimit_Is_Per_Client(t *testing.T) {
	req := require.New(t)
	pool := newLimiterPool(0.001, 1)

	req.True(pool.Allow("10.0.0.1"))
	req.False(pool.Allow("10.0.0.1"))
	req.True(pool.Allow("10.0.0.2"))
}

func TestLimiterPool_Defaults(t *testing.T) {
	req := require.New(t)
	pool := newLimiterPool(0, 0)

	req.Equal(float64(defaultRPS), pool.rps)
	req.Equal(defaultBurst, pool.burst)
}

func TestLimiterPool_Prunes_Idle_Clients(t *testing.T) {
	req := require.New(t)
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	pool := newLimiterPool(1, 1)
	pool.now = func() time.Time { return at }
	pool.lastPrune = at

	// Given two clients, one of which keeps talking
	req.True(pool.Allow("10.0.0.1"))
	req.True(pool.Allow("10.0.0.2"))
	at = at.Add(pool.idleAfter / 2)
	pool.Allow("10.0.0.2")

	// When the idle period is over and a new client shows up
	at = at.Add(pool.idleAfter / 2)
	req.True(pool.Allow("10.0.0.3"))

	// Then only the silent client was dropped
	req.Equal(2, pool.size())
	_, kept := pool.m["10.0.0.2"]
	req.True(kept)
	_, dropped := pool.m["10.0.0.1"]
	req.False(dropped)
}
