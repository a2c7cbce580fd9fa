package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newLimitedRouter(limiter *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(limiter.Handler())
	router.GET("/clients/:clientId/plans", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterAllowsWithinBurst(t *testing.T) {
	router := newLimitedRouter(NewRateLimiter(1, 3))

	for i := 0; i < 3; i++ {
		rec := get(router, "/clients/client-1/plans")
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiterRejectsBeyondBurst(t *testing.T) {
	router := newLimitedRouter(NewRateLimiter(1, 2))

	assert.Equal(t, http.StatusOK, get(router, "/clients/client-1/plans").Code)
	assert.Equal(t, http.StatusOK, get(router, "/clients/client-1/plans").Code)

	rec := get(router, "/clients/client-1/plans")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "RATE_LIMIT_EXCEEDED")
}

func TestRateLimiterKeysPerClient(t *testing.T) {
	router := newLimitedRouter(NewRateLimiter(1, 1))

	assert.Equal(t, http.StatusOK, get(router, "/clients/client-1/plans").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(router, "/clients/client-1/plans").Code)

	// A different client has its own bucket.
	assert.Equal(t, http.StatusOK, get(router, "/clients/client-2/plans").Code)
}

func TestRateLimiterFallsBackToClientIP(t *testing.T) {
	router := newLimitedRouter(NewRateLimiter(1, 1))

	assert.Equal(t, http.StatusOK, get(router, "/health").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(router, "/health").Code)
}
