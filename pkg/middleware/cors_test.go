package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serveCORS(cfg CORSConfig, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/v1/drafts", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rr := httptest.NewRecorder()
	CORS(cfg)(okHandler()).ServeHTTP(rr, req)
	return rr
}

func TestCORS_AllowOrigin(t *testing.T) {
	prod := CORSConfig{
		AllowedOrigins: []string{"https://www.example.se", "https://admin.example.se"},
		Environment:    "production",
	}

	tests := []struct {
		name   string
		cfg    CORSConfig
		origin string
		want   string
		vary   bool
	}{
		{"dev wildcard", CORSConfig{Environment: "development"}, "https://any.test", "*", false},
		{"dev wildcard without origin", CORSConfig{Environment: "development"}, "", "*", false},
		{"prod allowed", prod, "https://www.example.se", "https://www.example.se", true},
		{"prod second allowed", prod, "https://admin.example.se", "https://admin.example.se", true},
		{"prod rejected", prod, "https://evil.test", "", false},
		{"prod no origin", prod, "", "", false},
		{"explicit wildcard in prod", CORSConfig{AllowedOrigins: []string{"*"}, Environment: "production"}, "https://any.test", "*", false},
		{
			"credentials echo origin",
			CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true},
			"https://www.example.se", "https://www.example.se", true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serveCORS(tt.cfg, http.MethodGet, tt.origin)
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tt.want, rr.Header().Get("Access-Control-Allow-Origin"))
			if tt.vary {
				assert.Equal(t, "Origin", rr.Header().Get("Vary"))
			}
		})
	}
}

func TestCORS_PreflightReturns204(t *testing.T) {
	rr := serveCORS(DefaultCORSConfig(), http.MethodOptions, "https://www.example.se")
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestCORS_DefaultsIncludeDraftToken(t *testing.T) {
	rr := serveCORS(CORSConfig{Environment: "development"}, http.MethodGet, "")

	assert.Equal(t, "GET, POST, PUT, PATCH, DELETE, OPTIONS", rr.Header().Get("Access-Control-Allow-Methods"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), DraftTokenHeader)
	assert.Equal(t, "3600", rr.Header().Get("Access-Control-Max-Age"))
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_ExposedHeadersAndCredentials(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowCredentials = true
	cfg.MaxAge = 600

	rr := serveCORS(cfg, http.MethodGet, "https://www.example.se")
	assert.Equal(t, "X-Correlation-ID, Retry-After", rr.Header().Get("Access-Control-Expose-Headers"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "600", rr.Header().Get("Access-Control-Max-Age"))
}
