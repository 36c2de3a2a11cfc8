package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation counters and gauges for the loan/ledger core. Registered on the
// default registry and exposed on /metrics.
var (
	CheckoutsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "packloop_checkouts_opened_total",
		Help: "Checkouts successfully opened.",
	})

	ReturnsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "packloop_returns_recorded_total",
		Help: "Returns recorded, by matched/unmatched.",
	}, []string{"matched"})

	LedgerEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "packloop_ledger_entries_total",
		Help: "Deposit ledger entries appended, by reason.",
	}, []string{"reason"})

	StateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "packloop_state_transitions_total",
		Help: "Instance state transitions, by target state.",
	}, []string{"to"})

	RejectedOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "packloop_rejected_operations_total",
		Help: "Operations rejected by domain checks, by error kind.",
	}, []string{"kind"})

	MovementFromMismatch = promauto.NewCounter(prometheus.CounterOpts{
		Name: "packloop_movement_from_mismatch_total",
		Help: "Movements whose from location disagreed with the last recorded to location.",
	})

	SensorReadingsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "packloop_sensor_readings_ingested_total",
		Help: "Sensor readings ingested, by source.",
	}, []string{"source"})

	OverdueCheckouts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "packloop_overdue_checkouts",
		Help: "Open checkouts past due at the last scan.",
	})

	LedgerDriftAccounts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "packloop_ledger_drift_accounts",
		Help: "Accounts whose stored balance diverged from the ledger sum at the last sweep.",
	})
)
