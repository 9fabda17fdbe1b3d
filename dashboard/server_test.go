package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	breaker "github.com/xraph/breaker"
	"github.com/xraph/breaker/logger"
)

func TestServerStreamEmitsSSEFrame(t *testing.T) {
	b := breaker.New(nil,
		breaker.WithName("stream-test-breaker"),
		breaker.WithBucketSpan(time.Hour),
		breaker.WithBucketNum(2),
		breaker.WithStatInterval(10*time.Millisecond),
	)
	defer b.Destroy()

	srv := NewServer(breaker.GlobalRegistry, logger.Noop())

	req := httptest.NewRequest(http.MethodGet, "/hystrix.stream", nil)
	ctx, cancel := context.WithTimeout(req.Context(), 300*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	srv.handleStream(rec, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "data: ")
	assert.Contains(t, rec.Body.String(), `"name":"stream-test-breaker"`)
}

func TestServerInstancesReturnsJSON(t *testing.T) {
	srv := NewServer(breaker.GlobalRegistry, logger.Noop())
	req := httptest.NewRequest(http.MethodGet, "/instances", nil)
	rec := httptest.NewRecorder()

	srv.handleInstances(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(rec.Body.String(), `"count"`))
}
