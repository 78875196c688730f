package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics структура для метрик Prometheus
type Metrics struct {
	MessagesProcessed    prometheus.Counter
	BookingsCreated      prometheus.Counter
	BookingConflicts     prometheus.Counter
	ManagerDecisions     *prometheus.CounterVec
	ErrorsTotal          prometheus.Counter
	UpdateProcessingTime prometheus.Histogram
}

// NewMetrics создает новые метрики
func NewMetrics() *Metrics {
	return &Metrics{
		MessagesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "peregovorka_bot_messages_processed_total",
			Help: "Total number of processed updates",
		}),

		BookingsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "peregovorka_bot_bookings_created_total",
			Help: "Total number of bookings submitted",
		}),

		BookingConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "peregovorka_bot_booking_conflicts_total",
			Help: "Total number of submissions rejected due to slot conflicts",
		}),

		ManagerDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "peregovorka_bot_manager_decisions_total",
			Help: "Count of manager decisions over bookings",
		}, []string{"decision"}),

		ErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "peregovorka_bot_errors_total",
			Help: "Total number of errors",
		}),

		UpdateProcessingTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "peregovorka_bot_update_processing_time_seconds",
			Help:    "Time spent processing updates",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
