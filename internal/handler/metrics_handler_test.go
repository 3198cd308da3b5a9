package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-scheduler/internal/service"
)

type pingStub struct{ err error }

func (p pingStub) PingContext(ctx context.Context) error { return p.err }

func newMetricsRouter(h *MetricsHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/metrics", h.Prometheus)
	router.GET("/metrics/summary", h.Summary)
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	return router
}

func TestMetricsHandlerExposesSchedulerCounters(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.ObserveGeneration("completed", 5, 2, time.Second)
	router := newMetricsRouter(NewMetricsHandler(metrics, nil))

	prom := send(router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, prom.Code)
	assert.Contains(t, prom.Body.String(), "scheduler_lessons_created_total 5")

	summary := send(router, http.MethodGet, "/metrics/summary")
	require.Equal(t, http.StatusOK, summary.Code)
	assert.Contains(t, summary.Body.String(), `"lessons_generated":5`)
}

func TestMetricsHandlerReadiness(t *testing.T) {
	healthy := newMetricsRouter(NewMetricsHandler(nil, map[string]Pinger{"postgres": pingStub{}}))
	assert.Equal(t, http.StatusOK, send(healthy, http.MethodGet, "/ready").Code)
	assert.Equal(t, http.StatusOK, send(healthy, http.MethodGet, "/health").Code)

	degraded := newMetricsRouter(NewMetricsHandler(nil, map[string]Pinger{
		"postgres": pingStub{},
		"redis":    pingStub{err: errors.New("connection refused")},
	}))
	w := send(degraded, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
	assert.Equal(t, http.StatusServiceUnavailable, send(degraded, http.MethodGet, "/metrics").Code)
}
