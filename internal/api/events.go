package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/lcrnode/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of sequencer state changes, table sends, validations, failures, program applies and LED changes",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"sequencer-state":      events.SequencerStateChangedEvent{},
		"table-sent":           events.TableSentEvent{},
		"validation-completed": events.ValidationCompletedEvent{},
		"command-failed":       events.CommandFailedEvent{},
		"program-applied":      events.ProgramAppliedEvent{},
		"led-changed":          events.LEDChangedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		fwd := events.NewForwarder(s.eventBus, 32)
		events.Forward[events.SequencerStateChangedEvent](fwd)
		events.Forward[events.TableSentEvent](fwd)
		events.Forward[events.ValidationCompletedEvent](fwd)
		events.Forward[events.CommandFailedEvent](fwd)
		events.Forward[events.ProgramAppliedEvent](fwd)
		events.Forward[events.LEDChangedEvent](fwd)
		defer func() {
			fwd.Close()
			if n := fwd.Dropped(); n > 0 {
				s.logger.Warn("Event stream client fell behind", "dropped", n)
			}
		}()

		// Clients get the current state first so they need not poll.
		if s.controller != nil {
			state := s.controller.State().String()
			if err := send.Data(events.SequencerStateChangedEvent{
				From:      state,
				To:        state,
				Timestamp: nowRFC3339(),
			}); err != nil {
				return
			}
		}

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
