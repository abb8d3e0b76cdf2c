package sweep

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "absensi_sweep_runs_total",
		Help: "Completed sweep runs.",
	})
	runFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "absensi_sweep_run_failures_total",
		Help: "Sweep runs aborted before evaluating sessions.",
	})
	sessionsFinalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "absensi_sweep_sessions_finalized_total",
		Help: "Sessions marked processed by the sweep.",
	})
	sessionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "absensi_sweep_session_failures_total",
		Help: "Sessions whose finalization failed and will be retried.",
	})
	studentsMarked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "absensi_sweep_students_marked_total",
		Help: "Absence records written by the sweep.",
	})
)
