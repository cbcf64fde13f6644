package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestAllow_EnforcesLimitPerWindow(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(3, time.Minute)
	l.now = func() time.Time { return now }

	require.True(t, l.Allow("a"))
	require.True(t, l.Allow("a"))
	require.True(t, l.Allow("a"))
	require.False(t, l.Allow("a"))

	// Another key has its own budget.
	require.True(t, l.Allow("b"))

	// Window rollover resets the counter.
	now = now.Add(61 * time.Second)
	require.True(t, l.Allow("a"))
}

func TestAllow_CleansExpiredBuckets(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(1, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < cleanupAtSize+10; i++ {
		l.Allow(string(rune('a'+i%26)) + string(rune('0'+i/26)))
	}
	now = now.Add(2 * time.Minute)
	for i := 0; i < cleanupEvery; i++ {
		l.Allow("fresh")
	}
	require.LessOrEqual(t, len(l.buckets), cleanupAtSize)
}

func TestMiddleware_Returns429OverLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := New(1, time.Minute)

	r := gin.New()
	r.Use(l.Middleware())
	r.POST("/hook", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func() int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/hook", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusOK, do())
	require.Equal(t, http.StatusTooManyRequests, do())
}
