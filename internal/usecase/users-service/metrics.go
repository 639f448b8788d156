package usersservice

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "user_wallet_service"
	subsystem = "service"
)

type metrics struct {
	createCompleted prometheus.Counter
	createFailed    prometheus.Counter
	deleteCompleted prometheus.Counter
	deleteFailed    prometheus.Counter
	deleteDuration  prometheus.Histogram
}

// Registration happens once, the service may be constructed repeatedly.
//
//nolint:gochecknoglobals
var (
	metricsOnce   sync.Once
	sharedMetrics *metrics
)

func newMetrics() *metrics {
	metricsOnce.Do(func() {
		sharedMetrics = registerMetrics()
	})

	return sharedMetrics
}

func registerMetrics() *metrics {
	return &metrics{
		createCompleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "create_completed_total",
				Help:      "Number of completed composite user creations",
			}),
		createFailed: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "create_failed_total",
				Help:      "Number of failed composite user creations",
			}),
		deleteCompleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "delete_completed_total",
				Help:      "Number of completed user deletions",
			}),
		deleteFailed: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "delete_failed_total",
				Help:      "Number of aborted user deletions",
			}),
		deleteDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "delete_duration_seconds",
				Help:      "Time spent in the user deletion workflow",
			}),
	}
}
