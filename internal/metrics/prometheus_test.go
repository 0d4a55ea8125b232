package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRegistered(t *testing.T) {
	// promauto registers metrics automatically, so this test verifies
	// the package initializes without panics or duplicate registration.
	tests := []struct {
		name   string
		metric prometheus.Collector
	}{
		{"APIRequestsTotal", APIRequestsTotal},
		{"APIRequestDuration", APIRequestDuration},
		{"APIAuthFailuresTotal", APIAuthFailuresTotal},
		{"NewsletterPublishTotal", NewsletterPublishTotal},
		{"SubscriptionsTotal", SubscriptionsTotal},
		{"DBConnectionsActive", DBConnectionsActive},
		{"DBConnectionsIdle", DBConnectionsIdle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s is nil", tt.name)
			}
		})
	}
}

func TestNewsletterPublishTotal_CountsByResult(t *testing.T) {
	before := testutil.ToFloat64(NewsletterPublishTotal.WithLabelValues("replayed"))
	NewsletterPublishTotal.WithLabelValues("replayed").Inc()

	if got := testutil.ToFloat64(NewsletterPublishTotal.WithLabelValues("replayed")); got != before+1 {
		t.Errorf("replayed counter = %v, want %v", got, before+1)
	}
}
