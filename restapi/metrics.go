/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsSubsystem = "restapi"

	metricsLabelResponseErrorDomain = "domain"
	metricsLabelResponseErrorCode   = "code"
)

var metricsResponseErrors atomic.Pointer[prometheus.CounterVec]

func loadResponseErrorsMetric() *prometheus.CounterVec {
	return metricsResponseErrors.Load()
}

// MustInitAndRegisterMetrics initializes the counter of responded errors and registers it in reg.
// It panics if registration fails.
func MustInitAndRegisterMetrics(namespace string, reg prometheus.Registerer) {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: metricsSubsystem,
		Name:      "response_errors_total",
		Help:      "The total number of REST API errors that were responded.",
	}, []string{metricsLabelResponseErrorDomain, metricsLabelResponseErrorCode})
	reg.MustRegister(vec)
	metricsResponseErrors.Store(vec)
}

// UnregisterMetrics unregisters the counter of responded errors from reg and stops collecting it.
func UnregisterMetrics(reg prometheus.Registerer) {
	if vec := metricsResponseErrors.Swap(nil); vec != nil {
		reg.Unregister(vec)
	}
}
