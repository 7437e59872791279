package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the client registry.
// Tracks mutation counts, duplicate-email rejections and operation durations.
type Metrics struct {
	ClientsCreated      prometheus.Counter
	ClientsUpdated      prometheus.Counter
	ClientsDeleted      prometheus.Counter
	DuplicateRejections *prometheus.CounterVec
	OperationDuration   *prometheus.HistogramVec
}

// New registers the registry metrics with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ClientsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "clientdesk_clients_created_total",
			Help: "Total number of clients created",
		}),
		ClientsUpdated: factory.NewCounter(prometheus.CounterOpts{
			Name: "clientdesk_clients_updated_total",
			Help: "Total number of clients updated",
		}),
		ClientsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "clientdesk_clients_deleted_total",
			Help: "Total number of clients deleted",
		}),
		DuplicateRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clientdesk_duplicate_email_rejections_total",
			Help: "Create or update attempts rejected because the email is in use",
		}, []string{"operation"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clientdesk_registry_operation_duration_seconds",
			Help:    "Duration of client registry operations",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementCreated() {
	m.ClientsCreated.Inc()
}

func (m *Metrics) IncrementUpdated() {
	m.ClientsUpdated.Inc()
}

func (m *Metrics) IncrementDeleted() {
	m.ClientsDeleted.Inc()
}

// IncrementDuplicate records a rejected create or update.
func (m *Metrics) IncrementDuplicate(operation string) {
	m.DuplicateRejections.WithLabelValues(operation).Inc()
}

// ObserveOperation records the duration of a registry operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
