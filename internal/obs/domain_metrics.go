package obs

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartVerificationsTotal counts cart verification outcomes.
	CartVerificationsTotal *prometheus.CounterVec
	// CartVerificationDuration records verification latency in milliseconds.
	CartVerificationDuration *prometheus.HistogramVec
	// OrdersCreatedTotal counts order creation outcomes.
	OrdersCreatedTotal *prometheus.CounterVec
	// OrderEventsProcessed counts worker outcomes for order events.
	OrderEventsProcessed *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartVerificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_verifications_total",
			Help:      "Count of cart verification outcomes.",
		}, []string{"result"})
		CartVerificationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cart_verification_duration_ms",
			Help:      "Cart verification latency in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"result"})
		OrdersCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Count of order creation outcomes.",
		}, []string{"result"})
		OrderEventsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_events_processed_total",
			Help:      "Count of order events handled by the worker.",
		}, []string{"result"})

		mustRegisterCollector(reg, CartVerificationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartVerificationsTotal = v
			}
		})
		mustRegisterCollector(reg, CartVerificationDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				CartVerificationDuration = v
			}
		})
		mustRegisterCollector(reg, OrdersCreatedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrdersCreatedTotal = v
			}
		})
		mustRegisterCollector(reg, OrderEventsProcessed, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrderEventsProcessed = v
			}
		})
	})
}

// ObserveCartVerification records one verification. It is a no-op until the
// domain metrics are registered.
func ObserveCartVerification(result string, d time.Duration) {
	if CartVerificationsTotal != nil {
		CartVerificationsTotal.WithLabelValues(result).Inc()
	}
	if CartVerificationDuration != nil {
		CartVerificationDuration.WithLabelValues(result).Observe(DurationMillis(d))
	}
}

// IncOrderCreated records an order creation outcome.
func IncOrderCreated(result string) {
	if OrdersCreatedTotal != nil {
		OrdersCreatedTotal.WithLabelValues(result).Inc()
	}
}

// IncOrderEvent records a worker outcome.
func IncOrderEvent(result string) {
	if OrderEventsProcessed != nil {
		OrderEventsProcessed.WithLabelValues(result).Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
