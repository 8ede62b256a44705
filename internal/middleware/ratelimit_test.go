package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/aman-churiwal/redaction-gateway/internal/ratelimit"
)

func rateLimitTestRouter(limiter ratelimit.Limiter, tenantToken string) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if tenantToken != "" {
			c.Set(ContextTenantToken, tenantToken)
		}
	})
	router.Use(RateLimit(limiter))
	router.GET("/users/1", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestRateLimitRejectsWithMachineReadableBody(t *testing.T) {
	limiter := ratelimit.NewLocal(ratelimit.Policy{
		MaxRequests: 1,
		Window:      10 * time.Minute,
		MinInterval: 0,
	})
	router := rateLimitTestRouter(limiter, "tok-1")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/1", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotEmpty(t, w.Header().Get("Retry-After"))

	var body struct {
		Error                  string  `json:"error"`
		RetryAfter             int     `json:"retry_after"`
		Limit                  int     `json:"limit"`
		WindowSeconds          int     `json:"window_seconds"`
		MinimumIntervalSeconds float64 `json:"minimum_interval_seconds"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "too_many_requests", body.Error)
	require.GreaterOrEqual(t, body.RetryAfter, 1)
	require.Equal(t, 1, body.Limit)
	require.Equal(t, 600, body.WindowSeconds)
}

func TestRateLimitEnforcesMinimumSpacing(t *testing.T) {
	limiter := ratelimit.NewLocal(ratelimit.Policy{
		MaxRequests: 100,
		Window:      10 * time.Minute,
		MinInterval: time.Second,
	})
	router := rateLimitTestRouter(limiter, "tok-1")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/1", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimitSkipsAnonymousRequests(t *testing.T) {
	limiter := ratelimit.NewLocal(ratelimit.Policy{
		MaxRequests: 1,
		Window:      10 * time.Minute,
		MinInterval: time.Second,
	})
	router := rateLimitTestRouter(limiter, "")

	// No tenant identity means no admission control at all.
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/1", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimitIsolatesTenants(t *testing.T) {
	limiter := ratelimit.NewLocal(ratelimit.Policy{
		MaxRequests: 1,
		Window:      10 * time.Minute,
		MinInterval: 0,
	})

	first := rateLimitTestRouter(limiter, "tok-1")
	second := rateLimitTestRouter(limiter, "tok-2")

	w := httptest.NewRecorder()
	first.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	second.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/1", nil))
	require.Equal(t, http.StatusOK, w.Code, "another tenant's budget is untouched")
}
