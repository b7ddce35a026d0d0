package app

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleber123/nytt-sub001/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:        "test",
		HTTPPort:           0,
		RequestTimeout:     5 * time.Second,
		CORSOrigins:        []string{"*"},
		SessionBackend:     config.BackendMemory,
		DraftTTL:           time.Hour,
		SessionSweepPeriod: time.Minute,
		TokenSecret:        "0123456789abcdef0123456789abcdef",
		Locale:             "sv",
		SubmitCooldown:     10 * time.Second,
		SubmitTimeout:      5 * time.Second,
		SubmitInflightTTL:  time.Minute,
		EmailQueueBackend:  config.BackendMemory,
		PricingServiceURL:  "http://pricing.invalid",
		OrderServiceURL:    "http://orders.invalid",
		CBMaxRequests:      1,
		CBInterval:         60,
		CBTimeout:          30,
		CBFailureRatio:     0.5,
		CBMinRequests:      5,
		PublicBaseURL:      "https://shop.example.se",
		BusinessName:       "Legaliseringstjänst",
		BusinessEmail:      "info@example.se",
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewApp_MemoryBackends(t *testing.T) {
	a, err := NewApp(testConfig(), quietLogger())
	require.NoError(t, err)
	assert.NotNil(t, a.sessions)
	assert.Nil(t, a.redisClient)
	assert.Nil(t, a.pool)
	assert.Nil(t, a.producer)

	rec := httptest.NewRecorder()
	a.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	a.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/countries", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, a.Shutdown())
}

func TestNewApp_RedisSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.SessionBackend = config.BackendRedis
	cfg.RedisURL = "redis://" + mr.Addr()

	a, err := NewApp(cfg, quietLogger())
	require.NoError(t, err)
	assert.Nil(t, a.sessions)
	require.NotNil(t, a.redisClient)

	rec := httptest.NewRecorder()
	a.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Checks map[string]struct {
			Critical bool `json:"critical"`
		} `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Contains(t, resp.Checks, "redis")
	assert.True(t, resp.Checks["redis"].Critical)

	assert.NoError(t, a.Shutdown())
}
