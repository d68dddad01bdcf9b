/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// RequireSamplesCountInHistogram requires the histogram to have exactly wantSamplesCount observations.
func RequireSamplesCountInHistogram(t require.TestingT, hist prometheus.Histogram, wantSamplesCount int) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	var m dto.Metric
	require.NoError(t, hist.Write(&m))
	require.Equal(t, wantSamplesCount, int(m.GetHistogram().GetSampleCount()))
}

// RequireMetricValue gathers metrics and requires the single-series counter or gauge
// with the given fully qualified name to have the wanted value.
func RequireMetricValue(t require.TestingT, gatherer prometheus.Gatherer, name string, want float64) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	families, err := gatherer.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		require.Len(t, family.GetMetric(), 1, "metric %s has more than one series", name)
		m := family.GetMetric()[0]
		switch family.GetType() {
		case dto.MetricType_COUNTER:
			require.Equal(t, want, m.GetCounter().GetValue(), "metric %s", name)
		case dto.MetricType_GAUGE:
			require.Equal(t, want, m.GetGauge().GetValue(), "metric %s", name)
		default:
			require.Fail(t, "unsupported metric type", "metric %s has type %s", name, family.GetType())
		}
		return
	}
	require.Fail(t, "metric not found", "metric %s is not gathered", name)
}
