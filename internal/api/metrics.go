package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/lcrnode/internal/events"
	"github.com/smazurov/lcrnode/internal/metrics/exporters"
)

func nowRFC3339() string {
	return time.Now().Format(time.RFC3339)
}

// registerMetricsRoutes registers the metrics SSE endpoint
func (s *Server) registerMetricsRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "metrics-stream",
		Method:      http.MethodGet,
		Path:        "/api/metrics",
		Summary:     "Metrics Server-Sent Events Stream",
		Description: "Periodic device command counters and sequencer state",
		Tags:        []string{"metrics"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, exporters.GetEventTypes(), func(ctx context.Context, input *struct{}, send sse.Sender) {
		fwd := events.NewForwarder(s.eventBus, 10)
		events.Forward[events.DeviceMetricsEvent](fwd)
		defer fwd.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-fwd.Events():
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
