package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/concept-review-api/internal/service"
)

type pingerStub struct {
	err error
}

func (p pingerStub) PingContext(context.Context) error { return p.err }

func TestMetricsHandlerReady(t *testing.T) {
	handler := NewMetricsHandler(nil, pingerStub{})
	c, w := newJSONContext(http.MethodGet, "/ready", "", nil)
	handler.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	handler = NewMetricsHandler(nil, pingerStub{err: errors.New("connection refused")})
	c, w = newJSONContext(http.MethodGet, "/ready", "", nil)
	handler.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordReviewSubmission("single", nil)

	handler := NewMetricsHandler(metrics, nil)
	c, w := newJSONContext(http.MethodGet, "/metrics", "", nil)
	handler.Prometheus(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "review_submissions_total")
}

func TestMetricsHandlerWithoutRegistry(t *testing.T) {
	handler := NewMetricsHandler(nil, nil)
	c, w := newJSONContext(http.MethodGet, "/metrics", "", nil)
	handler.Prometheus(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
