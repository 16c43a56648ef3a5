package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	setsLoggedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "workoutlog",
		Subsystem: "records",
		Name:      "sets_logged_total",
		Help:      "Number of sets persisted since process start.",
	})
	setPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "workoutlog",
		Subsystem: "records",
		Name:      "last_set_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent set persisted to the store.",
	})
	cascadeDeleteCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workoutlog",
		Subsystem: "records",
		Name:      "cascade_deletes_total",
		Help:      "Number of cascading deletes performed, by parent entity.",
	}, []string{"entity"})
)

func init() {
	prometheus.MustRegister(setsLoggedCounter, setPersistGauge, cascadeDeleteCounter)
}

// RecordSetLogged updates the persistence counter and watermark gauge.
func RecordSetLogged(ts time.Time) {
	setsLoggedCounter.Inc()
	if ts.IsZero() {
		return
	}
	setPersistGauge.Set(float64(ts.Unix()))
}

// RecordCascadeDelete counts a cascading delete of the named parent entity.
func RecordCascadeDelete(entity string) {
	cascadeDeleteCounter.WithLabelValues(entity).Inc()
}
