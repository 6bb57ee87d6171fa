package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SubmissionsTotal.WithLabelValues("Instagram", OutcomeAdded).Inc()
	m.HandlerInvocationsTotal.WithLabelValues("mention").Inc()

	count, err := testutil.GatherAndCount(reg, "scrapebot_submissions_total", "scrapebot_handler_invocations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)

	assert.Panics(t, func() { NewMetrics(reg) })
}

func TestRecordSubmission(t *testing.T) {
	counter := Default().SubmissionsTotal.WithLabelValues("TikTok", OutcomeDuplicate)
	before := testutil.ToFloat64(counter)

	RecordSubmission("TikTok", OutcomeDuplicate)
	RecordSubmission("TikTok", OutcomeDuplicate)

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestRecordSubmission_UnknownPlatform(t *testing.T) {
	counter := Default().SubmissionsTotal.WithLabelValues("unknown", OutcomeInvalid)
	before := testutil.ToFloat64(counter)

	RecordSubmission("", OutcomeInvalid)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestRecordHandlerInvocationAndFailure(t *testing.T) {
	invocations := Default().HandlerInvocationsTotal.WithLabelValues("command")
	failures := Default().HandlerFailuresTotal.WithLabelValues("command")
	beforeInv := testutil.ToFloat64(invocations)
	beforeFail := testutil.ToFloat64(failures)

	RecordHandlerInvocation("command", 120*time.Millisecond)
	RecordHandlerFailure("command")

	assert.Equal(t, beforeInv+1, testutil.ToFloat64(invocations))
	assert.Equal(t, beforeFail+1, testutil.ToFloat64(failures))
}

func TestObserveBackendOperation(t *testing.T) {
	errorsCounter := Default().BackendErrorsTotal.WithLabelValues("sheets", "get")
	before := testutil.ToFloat64(errorsCounter)

	ObserveBackendOperation("sheets", "get", 10*time.Millisecond, nil)
	assert.Equal(t, before, testutil.ToFloat64(errorsCounter))

	ObserveBackendOperation("sheets", "get", 10*time.Millisecond, errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(errorsCounter))
}

func TestRecordReply(t *testing.T) {
	sent := Default().RepliesTotal.WithLabelValues("mention", "sent")
	failed := Default().RepliesTotal.WithLabelValues("mention", "failed")
	beforeSent := testutil.ToFloat64(sent)
	beforeFailed := testutil.ToFloat64(failed)

	RecordReply("mention", nil)
	RecordReply("mention", errors.New("channel_not_found"))

	assert.Equal(t, beforeSent+1, testutil.ToFloat64(sent))
	assert.Equal(t, beforeFailed+1, testutil.ToFloat64(failed))
}

func TestGauges(t *testing.T) {
	SetWorkerPoolSize(12)
	assert.Equal(t, float64(12), testutil.ToFloat64(Default().WorkerPoolSize))

	SetCircuitBreakerState("sheets", 2)
	assert.Equal(t, float64(2), testutil.ToFloat64(Default().CircuitBreakerState.WithLabelValues("sheets")))
}

func TestHandler_ServesPrometheusText(t *testing.T) {
	RecordSubmission("YouTube", OutcomeAdded)
	ObserveHTTPRequest("/health", http.MethodGet, "200", time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `scrapebot_submissions_total{outcome="added",platform="YouTube"}`)
	assert.Contains(t, body, `scrapebot_http_requests_total{method="GET",route="/health",status="200"}`)
	assert.Contains(t, body, "go_goroutines")
}
