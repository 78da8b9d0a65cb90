package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/andydunstall/epto/pkg/log"
)

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.ReleaseMode)

	metrics := NewMetrics("test")
	metrics.Register(prometheus.NewRegistry())

	router := gin.New()
	router.Use(NewLogger(log.NewNopLogger()))
	router.Use(metrics.Handler())
	router.GET("/foo", func(c *gin.Context) {
		c.String(http.StatusOK, "foo")
	})

	for i := 0; i != 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/foo", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bar", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 2.0, testutil.ToFloat64(
		metrics.RequestsTotal.With(prometheus.Labels{"status": "200", "method": "GET"}),
	))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		metrics.RequestsTotal.With(prometheus.Labels{"status": "404", "method": "GET"}),
	))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.RequestsInFlight))
}
