package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	gin.SetMode(gin.TestMode)

	now := time.Now()
	limiter := NewRateLimiter(RateLimitConfig{Limit: 3, Window: 3 * time.Second})
	limiter.now = func() time.Time { return now }

	router := gin.New()
	router.Use(limiter.Middleware())
	router.POST("/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	do := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		return w
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do().Code, "request %d should pass", i+1)
	}

	w := do()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, do().Code)
	assert.Equal(t, http.StatusTooManyRequests, do().Code)
}

func TestRateLimiter_KeysByClient(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{Limit: 1, Window: time.Minute})

	ok, _ := limiter.Allow("ip:10.0.0.1")
	assert.True(t, ok)
	ok, retry := limiter.Allow("ip:10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, 60, retry)

	ok, _ = limiter.Allow("ip:10.0.0.2")
	assert.True(t, ok)
	ok, _ = limiter.Allow("user-1")
	assert.True(t, ok)
}
