package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimitByIP(t *testing.T) {
	limited := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
		RateLimitByIP(RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}),
	)

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/authorize", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, do("10.0.0.1:1234"))
	require.Equal(t, http.StatusOK, do("10.0.0.1:1234"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/authorize", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	limited.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	// A different IP gets its own bucket.
	require.Equal(t, http.StatusOK, do("10.0.0.2:1234"))
}

func TestGetRemoteIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	require.Equal(t, "192.0.2.7", GetRemoteIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 192.0.2.7")
	require.Equal(t, "203.0.113.9", GetRemoteIP(req))
}

func TestExtractBearerToken(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Empty(t, ExtractBearerToken(req))

	req.Header.Set("Authorization", "Bearer abc123")
	require.Equal(t, "abc123", ExtractBearerToken(req))

	req.Header.Set("Authorization", "Basic abc123")
	require.Empty(t, ExtractBearerToken(req))
}
