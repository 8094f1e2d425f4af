package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestSlidingWindowLimiterAllowsWithinLimit(t *testing.T) {
	l := NewSlidingWindowLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("ip"))
	}
	assert.False(t, l.Allow("ip"))
	assert.True(t, l.Allow("other-ip"), "keys are independent")
}

func TestSlidingWindowLimiterRecoversAfterWindow(t *testing.T) {
	l := NewSlidingWindowLimiter(1, 20*time.Millisecond)
	assert.True(t, l.Allow("ip"))
	assert.False(t, l.Allow("ip"))
	time.Sleep(30 * time.Millisecond)
	assert.True(t, l.Allow("ip"))
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(NewSlidingWindowLimiter(1, time.Minute)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}
