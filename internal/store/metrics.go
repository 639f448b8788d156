package store

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "user_wallet_service"
	subsystem = "store"
)

type metrics struct {
	txDuration *prometheus.HistogramVec
}

// Registration happens once, the store may be constructed repeatedly.
//
//nolint:gochecknoglobals
var (
	metricsOnce   sync.Once
	sharedMetrics *metrics
)

func newMetrics() *metrics {
	metricsOnce.Do(func() {
		sharedMetrics = &metrics{
			txDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Subsystem: subsystem,
					Name:      "tx_duration_seconds",
					Help:      "Time spent inside a database transaction",
				},
				[]string{"tx"}),
		}
	})

	return sharedMetrics
}
