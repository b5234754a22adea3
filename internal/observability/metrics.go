package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	usersRegisteredCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fittrack",
		Subsystem: "users",
		Name:      "registered_total",
		Help:      "Number of new users registered.",
	})
	exercisesLoggedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fittrack",
		Subsystem: "exercises",
		Name:      "logged_total",
		Help:      "Number of exercises logged.",
	})
	exerciseLoggedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fittrack",
		Subsystem: "exercises",
		Name:      "last_logged_timestamp_seconds",
		Help:      "Unix timestamp of the most recent logged exercise.",
	})
	logQueriesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fittrack",
		Subsystem: "logs",
		Name:      "queries_total",
		Help:      "Number of log queries served, by filter branch.",
	}, []string{"branch"})
)

func init() {
	prometheus.MustRegister(
		usersRegisteredCounter,
		exercisesLoggedCounter,
		exerciseLoggedGauge,
		logQueriesCounter,
	)
}

// RecordUserRegistered counts a successful new registration.
func RecordUserRegistered() {
	usersRegisteredCounter.Inc()
}

// RecordExerciseLogged counts a logged exercise and updates the
// watermark gauge.
func RecordExerciseLogged(ts time.Time) {
	exercisesLoggedCounter.Inc()
	if ts.IsZero() {
		return
	}
	exerciseLoggedGauge.Set(float64(ts.Unix()))
}

// RecordLogQuery counts a log query by filter branch: range, limit or
// full.
func RecordLogQuery(branch string) {
	logQueriesCounter.WithLabelValues(branch).Inc()
}
