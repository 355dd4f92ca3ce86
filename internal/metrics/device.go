// Package metrics provides Prometheus metrics for the device link and the
// pattern sequencer.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deviceCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lcrnode",
		Subsystem: "device",
		Name:      "commands_total",
		Help:      "Device commands issued, by command and result",
	}, []string{"command", "result"})

	deviceCommandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lcrnode",
		Subsystem: "device",
		Name:      "command_duration_seconds",
		Help:      "Round trip time of device commands",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
	}, []string{"command"})

	deviceConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lcrnode",
		Subsystem: "device",
		Name:      "connected",
		Help:      "Whether the device session is connected",
	})

	// Local cache for SSE exporter access.
	deviceCache   DeviceMetrics
	deviceCacheMu sync.RWMutex
)

// DeviceMetrics holds current device counter values.
type DeviceMetrics struct {
	Connected      bool
	CommandsOK     uint64
	CommandsFailed uint64
}

// RecordDeviceCommand counts a command and observes its latency. Commands
// that never reached the link are counted but not timed.
func RecordDeviceCommand(command, result string, elapsed time.Duration) {
	deviceCommands.WithLabelValues(command, result).Inc()
	if elapsed > 0 {
		deviceCommandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
	}

	deviceCacheMu.Lock()
	if result == "ok" {
		deviceCache.CommandsOK++
	} else {
		deviceCache.CommandsFailed++
	}
	deviceCacheMu.Unlock()
}

// SetDeviceConnected records the session connection state.
func SetDeviceConnected(connected bool) {
	if connected {
		deviceConnected.Set(1)
	} else {
		deviceConnected.Set(0)
	}

	deviceCacheMu.Lock()
	deviceCache.Connected = connected
	deviceCacheMu.Unlock()
}

// GetDeviceMetrics returns current device metric values.
func GetDeviceMetrics() DeviceMetrics {
	deviceCacheMu.RLock()
	defer deviceCacheMu.RUnlock()
	return deviceCache
}
