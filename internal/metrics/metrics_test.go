package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	return rec.Body.String()
}

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordRun("start", true, 3*time.Second)
	RecordRun("stop", false, time.Second)
	RecordTransition("postgres", "running")
	RecordStartAttempt("postgres")
	RecordComposeCall("up", nil, 200*time.Millisecond)
	RecordComposeCall("up", errors.New("boom"), 50*time.Millisecond)
	RecordHealthCheck("tcp", false)
	RecordNetworkProvision("created")
	RecordHTTPRequest("GET", "/status", 200, 12*time.Millisecond)

	body := scrape(t)
	assert.Contains(t, body, `stevedore_orchestrator_runs_total{action="start",outcome="success"}`)
	assert.Contains(t, body, `stevedore_compose_calls_total{operation="up",outcome="error"}`)
	assert.Contains(t, body, `stevedore_health_checks_total{healthy="false",kind="tcp"}`)
	assert.Contains(t, body, `stevedore_http_requests_total{method="GET",path="/status",status="200"}`)
}

func TestRecordDroppedEvent(t *testing.T) {
	RecordDroppedEvent()
	assert.Regexp(t, `stevedore_orchestrator_dropped_events_total [1-9]`, scrape(t))
}

func TestSetServiceRunning(t *testing.T) {
	SetServiceRunning("metrics-test-svc", true)
	assert.Contains(t, scrape(t), `stevedore_service_running{service="metrics-test-svc"} 1`)

	SetServiceRunning("metrics-test-svc", false)
	assert.Contains(t, scrape(t), `stevedore_service_running{service="metrics-test-svc"} 0`)
}
