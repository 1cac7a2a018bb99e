package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsServiceExposesGradingSeries(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveHTTPRequest("GET", "/api/v1/classes/:classId/gradebook", 200, 20*time.Millisecond)
	metrics.RecordActivation("transactional", "success")
	metrics.RecordResolution("fallback_to_first")
	metrics.RecordScore()
	metrics.RecordCacheOperation(true, time.Millisecond)
	metrics.RecordCacheOperation(false, time.Millisecond)

	body := scrape(t, metrics)
	assert.Contains(t, body, `grading_structure_activations_total{mode="transactional",outcome="success"} 1`)
	assert.Contains(t, body, `grading_category_resolutions_total{decision="fallback_to_first"} 1`)
	assert.Contains(t, body, "grading_scores_recorded_total 1")
	assert.Contains(t, body, "cache_hit_ratio 0.5")
	assert.Contains(t, body, `http_requests_total{method="GET",path="/api/v1/classes/:classId/gradebook",status="200"} 1`)
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var metrics *MetricsService
	assert.NotPanics(t, func() {
		metrics.RecordActivation("direct", "error")
		metrics.RecordScore()
		metrics.ObserveSummary("student", time.Second)
		metrics.RecordEvent("x", "dropped")
		metrics.ObserveDBQuery("q", time.Second)
	})
}
