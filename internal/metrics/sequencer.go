package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sequencer states exported by the state gauge.
var sequencerStates = []string{"stopped", "paused", "running"}

var (
	sequencerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "lcrnode",
		Subsystem: "sequencer",
		Name:      "state",
		Help:      "Current sequencer state (1 for the active state)",
	}, []string{"state"})

	patternTableEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lcrnode",
		Subsystem: "sequencer",
		Name:      "pattern_table_entries",
		Help:      "Number of entries staged in the pattern table",
	})

	validations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lcrnode",
		Subsystem: "sequencer",
		Name:      "validations_total",
		Help:      "Device validations, by diagnostic",
	}, []string{"diagnostic"})

	tablesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lcrnode",
		Subsystem: "sequencer",
		Name:      "tables_sent_total",
		Help:      "Pattern tables written to the device",
	})

	sequencerCacheMu    sync.RWMutex
	sequencerStateCache = "stopped"
	validationCount     uint64
)

// SetSequencerState marks state as the active sequencer state.
func SetSequencerState(state string) {
	for _, s := range sequencerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		sequencerState.WithLabelValues(s).Set(v)
	}

	sequencerCacheMu.Lock()
	sequencerStateCache = state
	sequencerCacheMu.Unlock()
}

// SetPatternTableEntries records the staged table size.
func SetPatternTableEntries(n int) {
	patternTableEntries.Set(float64(n))
}

// RecordValidation counts a validation result.
func RecordValidation(diagnostic string) {
	validations.WithLabelValues(diagnostic).Inc()

	sequencerCacheMu.Lock()
	validationCount++
	sequencerCacheMu.Unlock()
}

// RecordTableSent counts a pattern table upload.
func RecordTableSent() {
	tablesSent.Inc()
}

// SequencerMetrics holds current sequencer metric values.
type SequencerMetrics struct {
	State       string
	Validations uint64
}

// GetSequencerMetrics returns current sequencer metric values.
func GetSequencerMetrics() SequencerMetrics {
	sequencerCacheMu.RLock()
	defer sequencerCacheMu.RUnlock()
	return SequencerMetrics{
		State:       sequencerStateCache,
		Validations: validationCount,
	}
}
