package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("pandoc", 150*time.Millisecond)
	pr.IncStageResult("pandoc", ResultSuccess)
	pr.IncStageResult("xelatex_first_pass", ResultFailed)
	pr.ObserveJobDuration(2 * time.Second)
	pr.IncJobOutcome("SUCCESS")
	pr.IncDocumentResult(ResultSuccess)
	pr.IncDocumentResult(ResultFailed)
	pr.IncDocumentResult(ResultFailed)
	pr.ObserveTemplateCloneDuration(time.Second, true)
	pr.SetWorkers(3)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)

	assert.InDelta(t, 2, testutil.ToFloat64(pr.documentResults.WithLabelValues("failed")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.jobOutcome.WithLabelValues("SUCCESS")), 0.001)
	assert.InDelta(t, 3, testutil.ToFloat64(pr.workers), 0.001)
}

func TestPrometheusRecorder_NilReceiver(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.IncJobOutcome("ERROR")
		pr.ObserveStageDuration("pandoc", time.Second)
	})
}

func TestHTTPHandler_ServesRegistry(t *testing.T) {
	reg := NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncJobOutcome("SUCCESS")

	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "texsync_job_outcomes_total")
	assert.Contains(t, string(body), "go_goroutines")
}
