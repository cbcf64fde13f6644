package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestPrometheusHandler_ServesMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", prometheusHandler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "go_goroutines")
}

func TestComputeApproximateRequestSize(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/stripe", strings.NewReader("0123456789"))
	req.Header.Set("Stripe-Signature", "t=1,v1=ab")

	size := computeApproximateRequestSize(req)
	// Path + method + proto + headers + host + content length.
	require.Greater(t, size, len("/api/v1/webhook/stripe")+10)
}

func TestMillisecondsSince(t *testing.T) {
	start := time.Now().Add(-50 * time.Millisecond)
	elapsed := MillisecondsSince(start)
	require.GreaterOrEqual(t, elapsed, 50.0)
	require.Less(t, elapsed, 10000.0)
}
