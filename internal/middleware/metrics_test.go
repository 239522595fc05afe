package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"

	"github.com/connected-registry/connected-registry/internal/telemetry"
)

// connectedTemplate has the shape of the connected route; the api package
// cannot be imported here without a cycle.
const connectedTemplate = "/connected/realtime/:firstDeveloperHandle/:secondDeveloperHandle"

func newConnectedMetricsRouter(status int) *gin.Engine {
	r := gin.New()
	r.Use(MetricsMiddleware())
	r.GET(connectedTemplate, func(c *gin.Context) {
		c.Status(status)
	})
	return r
}

func serve(r *gin.Engine, path string) {
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
}

// pathLabels returns every distinct path label value recorded by http_requests_total.
func pathLabels() map[string]bool {
	seen := map[string]bool{}
	ch := make(chan prometheus.Metric, 64)
	telemetry.HTTPRequestsTotal.Collect(ch)
	close(ch)
	for m := range ch {
		var dm dto.Metric
		if err := m.Write(&dm); err != nil {
			continue
		}
		for _, lp := range dm.GetLabel() {
			if lp.GetName() == "path" {
				seen[lp.GetValue()] = true
			}
		}
	}
	return seen
}

func counter(labels prometheus.Labels) float64 {
	c, err := telemetry.HTTPRequestsTotal.GetMetricWith(labels)
	if err != nil {
		return 0
	}
	var dm dto.Metric
	if err := c.Write(&dm); err != nil {
		return 0
	}
	return dm.GetCounter().GetValue()
}

func TestMetricsMiddleware_LabelsConnectedQueriesByTemplate(t *testing.T) {
	labels := prometheus.Labels{"method": "GET", "path": connectedTemplate, "status": "200"}
	before := counter(labels)

	r := newConnectedMetricsRouter(http.StatusOK)
	serve(r, "/connected/realtime/alice-metrics/bob-metrics")
	serve(r, "/connected/realtime/carol-metrics/dave-metrics")

	assert.Equal(t, before+2, counter(labels))

	paths := pathLabels()
	for p := range paths {
		assert.NotContains(t, p, "alice-metrics")
		assert.NotContains(t, p, "carol-metrics")
	}
	assert.True(t, paths[connectedTemplate])
}

func TestMetricsMiddleware_ObservesDurationPerTemplate(t *testing.T) {
	labels := prometheus.Labels{"method": "GET", "path": connectedTemplate}
	sampleCount := func() uint64 {
		o, err := telemetry.HTTPRequestDuration.GetMetricWith(labels)
		if err != nil {
			return 0
		}
		var dm dto.Metric
		if err := o.(prometheus.Metric).Write(&dm); err != nil {
			return 0
		}
		return dm.GetHistogram().GetSampleCount()
	}
	before := sampleCount()

	serve(newConnectedMetricsRouter(http.StatusOK), "/connected/realtime/dev1/dev2")

	assert.Equal(t, before+1, sampleCount())
}

func TestMetricsMiddleware_RecordsFaultStatus(t *testing.T) {
	labels := prometheus.Labels{"method": "GET", "path": connectedTemplate, "status": "500"}
	before := counter(labels)

	serve(newConnectedMetricsRouter(http.StatusInternalServerError), "/connected/realtime/dev1/dev2")

	assert.Equal(t, before+1, counter(labels))
}

func TestMetricsMiddleware_MissingSegmentUsesNoRouteLabel(t *testing.T) {
	labels := prometheus.Labels{"method": "GET", "path": NoRouteLabel, "status": "404"}
	before := counter(labels)

	serve(newConnectedMetricsRouter(http.StatusOK), "/connected/realtime/only-one-metrics")

	assert.Equal(t, before+1, counter(labels))
	assert.False(t, pathLabels()["/connected/realtime/only-one-metrics"])
}
