package testsupport

import (
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/petlife/internal/events"
)

// Metric names asserted across packages.
const (
	MetricHTTPRequests      = "petlife_api_http_requests_total"
	MetricIdempotencyHits   = "petlife_api_idempotency_hits_total"
	MetricIdempotencyMisses = "petlife_api_idempotency_misses_total"
	MetricIdempotencyItems  = "petlife_api_idempotency_items_count"
	MetricPetsDecayed       = "petlife_lifetime_pets_decayed_total"
	MetricTickDuration      = "petlife_lifetime_tick_duration_seconds"
	MetricEventsPublished   = "petlife_events_published_total"
)

// Metrics reads samples from one gatherer. The zero value reads the default
// registry that promauto registers into.
type Metrics struct {
	Gatherer prometheus.Gatherer
}

// Value sums the counter, gauge or histogram sample count of every series of
// name whose labels include filter. Absent series count as zero.
func (m Metrics) Value(t *testing.T, name string, filter map[string]string) float64 {
	t.Helper()

	g := m.Gatherer
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	mfs, err := g.Gather()
	require.NoError(t, err, "failed to gather metrics")

	// Gather returns families sorted by name.
	idx, found := slices.BinarySearchFunc(mfs, name, func(mf *io_prometheus_client.MetricFamily, n string) int {
		return strings.Compare(mf.GetName(), n)
	})
	if !found {
		return 0
	}

	var total float64
	for _, metric := range mfs[idx].GetMetric() {
		if !hasLabels(metric, filter) {
			continue
		}
		switch {
		case metric.GetCounter() != nil:
			total += metric.GetCounter().GetValue()
		case metric.GetGauge() != nil:
			total += metric.GetGauge().GetValue()
		case metric.GetHistogram() != nil:
			total += float64(metric.GetHistogram().GetSampleCount())
		}
	}
	return total
}

// Delta asserts that name moved by exactly want while fn ran.
func (m Metrics) Delta(t *testing.T, name string, labels map[string]string, want float64, fn func()) {
	t.Helper()

	before := m.Value(t, name, labels)
	fn()
	after := m.Value(t, name, labels)

	assert.Equal(t, want, after-before, "metric %s%v delta mismatch", name, labels)
}

// DeltaEventually is Delta for effects that land after fn returns, such as
// asynchronous event delivery.
func (m Metrics) DeltaEventually(t *testing.T, name string, labels map[string]string, want float64, fn func()) {
	t.Helper()

	before := m.Value(t, name, labels)
	fn()

	require.Eventually(t, func() bool {
		return m.Value(t, name, labels) == before+want
	}, 2*time.Second, 20*time.Millisecond, "metric %s%v never moved by %.0f", name, labels, want)
}

func hasLabels(m *io_prometheus_client.Metric, filter map[string]string) bool {
	for k, v := range filter {
		if !slices.ContainsFunc(m.GetLabel(), func(p *io_prometheus_client.LabelPair) bool {
			return p.GetName() == k && p.GetValue() == v
		}) {
			return false
		}
	}
	return true
}

var defaultMetrics Metrics

// GetMetricValue reads name from the default registry.
func GetMetricValue(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	return defaultMetrics.Value(t, name, labels)
}

// AssertMetricDelta asserts a delta on the default registry.
func AssertMetricDelta(t *testing.T, name string, labels map[string]string, want float64, fn func()) {
	t.Helper()
	defaultMetrics.Delta(t, name, labels, want, fn)
}

// AssertHistogramRecorded asserts that a histogram holds at least one sample.
func AssertHistogramRecorded(t *testing.T, name string, labels map[string]string) {
	t.Helper()
	assert.Positive(t, GetMetricValue(t, name, labels), "histogram %s%v should have recorded samples", name, labels)
}

// AssertDecayed asserts how many pets the lifetime worker counted with status
// ("success" or "failure") while fn ran.
func AssertDecayed(t *testing.T, status string, want float64, fn func()) {
	t.Helper()
	AssertMetricDelta(t, MetricPetsDecayed, map[string]string{"status": status}, want, fn)
}

// AssertPublished asserts how many events of type typ ended with status
// ("success", "failure" or "dropped") while fn ran.
func AssertPublished(t *testing.T, typ events.Type, status string, want float64, fn func()) {
	t.Helper()
	AssertMetricDelta(t, MetricEventsPublished, map[string]string{"type": string(typ), "status": status}, want, fn)
}

// AssertRequests asserts how many API requests were counted for one route
// pattern and status code while fn ran.
func AssertRequests(t *testing.T, method, route string, code int, want float64, fn func()) {
	t.Helper()
	labels := map[string]string{"method": method, "route": route, "code": strconv.Itoa(code)}
	AssertMetricDelta(t, MetricHTTPRequests, labels, want, fn)
}
