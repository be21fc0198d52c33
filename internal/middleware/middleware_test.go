package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lildude/trailcoach/internal/logger"
	"github.com/lildude/trailcoach/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type panicRecTestHandler struct {
	panic  bool
	called bool
}

func (p *panicRecTestHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	p.called = true
	if p.panic {
		panic("YOLO")
	}
	w.WriteHeader(http.StatusTeapot)
}

func TestPanicRecoveryNonPanic(t *testing.T) {
	m := metrics.NewTestManager()
	next := &panicRecTestHandler{}

	rr := httptest.NewRecorder()
	PanicRecovery(m, logger.Discard())(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, next.called)
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.CounterHandleRequestPanic))
}

func TestPanicRecoveryPanic(t *testing.T) {
	m := metrics.NewTestManager()
	next := &panicRecTestHandler{panic: true}

	rr := httptest.NewRecorder()
	PanicRecovery(m, logger.Discard())(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, next.called)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CounterHandleRequestPanic))
}

func TestRequestMetrics(t *testing.T) {
	m := metrics.NewTestManager()
	h := LogRequest(logger.Discard())(RequestMetrics(m)(&panicRecTestHandler{}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CounterRequests.WithLabelValues("GET", "418")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.GaugeRequests))
}
