package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func limitedRouter(config RateLimitConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(NewRateLimiter(config))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func hit(router *gin.Engine, client string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if client != "" {
		req.Header.Set("X-Client-ID", client)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	router := limitedRouter(RateLimitConfig{
		Limit:  3,
		Window: time.Second,
		Now:    func() time.Time { return now },
	})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(router, "").Code, "Request %d should succeed", i+1)
	}

	w := hit(router, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code, "4th request should be rate limited")
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, hit(router, "").Code, "Request after window should succeed")
}

func TestRateLimiterDifferentClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	router := limitedRouter(RateLimitConfig{
		Limit:  2,
		Window: time.Second,
		KeyFunc: func(c *gin.Context) string {
			return c.GetHeader("X-Client-ID")
		},
		Now: func() time.Time { return now },
	})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, hit(router, "client-a").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(router, "client-a").Code, "Client A should be rate limited")
	assert.Equal(t, http.StatusOK, hit(router, "client-b").Code, "Client B should not be rate limited")
}

func TestDefaultConfigs(t *testing.T) {
	defaultConfig := DefaultRateLimitConfig()
	assert.Equal(t, 100, defaultConfig.Limit)
	assert.Equal(t, time.Minute, defaultConfig.Window)
	assert.NotNil(t, defaultConfig.KeyFunc)
	assert.NoError(t, ValidateRateLimit(defaultConfig))

	ingest := IngestRateLimitConfig()
	assert.Equal(t, 600, ingest.Limit)

	assert.Error(t, ValidateRateLimit(RateLimitConfig{Limit: 1}))
}
