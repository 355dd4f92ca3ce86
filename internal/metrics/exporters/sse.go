package exporters

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/smazurov/lcrnode/internal/events"
	"github.com/smazurov/lcrnode/internal/metrics"
)

// EventPublisher interface for publishing events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// SSEExporter periodically publishes device and sequencer counters for
// Server-Sent Events clients.
type SSEExporter struct {
	eventBus EventPublisher
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewSSEExporter creates a new SSE exporter.
func NewSSEExporter(eventBus EventPublisher) *SSEExporter {
	return &SSEExporter{
		eventBus: eventBus,
		interval: 1 * time.Second,
	}
}

// Start begins the SSE export loop.
func (s *SSEExporter) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run()
}

// Stop stops the SSE exporter and waits for the goroutine to finish.
func (s *SSEExporter) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *SSEExporter) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.publishMetrics()
		}
	}
}

func (s *SSEExporter) publishMetrics() {
	dev := metrics.GetDeviceMetrics()
	seq := metrics.GetSequencerMetrics()
	s.eventBus.Publish(events.DeviceMetricsEvent{
		EventType:      "device_metrics",
		Connected:      dev.Connected,
		CommandsOK:     strconv.FormatUint(dev.CommandsOK, 10),
		CommandsFailed: strconv.FormatUint(dev.CommandsFailed, 10),
		Validations:    strconv.FormatUint(seq.Validations, 10),
		State:          seq.State,
	})
}

// GetEventTypes returns event types for SSE endpoint registration.
func GetEventTypes() map[string]any {
	return map[string]any{
		"device-metrics": events.DeviceMetricsEvent{},
	}
}
