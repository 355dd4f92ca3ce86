package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/lcrnode/internal/api/models"
	"github.com/smazurov/lcrnode/internal/device"
	"github.com/smazurov/lcrnode/internal/sequencer"
)

func (s *Server) snapshot() *models.SequencerResponse {
	return &models.SequencerResponse{Body: models.SequencerDataFrom(s.controller.Snapshot())}
}

func validationData(status sequencer.ValidationStatus) models.ValidationData {
	d := status.Decode()
	diags := status.Diagnostics()
	names := make([]string, len(diags))
	for i, dg := range diags {
		names[i] = dg.String()
	}
	return models.ValidationData{
		OK:          status.OK(),
		Status:      uint32(status),
		Diagnostic:  d.String(),
		Message:     d.Message(),
		Advisory:    d.Advisory(),
		Diagnostics: names,
	}
}

// registerSequencerRoutes registers playback and sequence setting endpoints.
func (s *Server) registerSequencerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-sequencer",
		Method:      http.MethodGet,
		Path:        "/api/sequencer",
		Summary:     "Get Sequencer",
		Description: "Current state, staged settings and validation status",
		Tags:        []string{"sequencer"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.SequencerResponse, error) {
		return s.snapshot(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "read-back-sequencer",
		Method:      http.MethodGet,
		Path:        "/api/sequencer/device",
		Summary:     "Read Device Settings",
		Description: "Read the sequence settings back from the device",
		Tags:        []string{"sequencer"},
		Errors:      []int{401, 502, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.DeviceSettingsResponse, error) {
		settings, err := s.controller.ReadBack(ctx)
		if err != nil {
			return nil, mapError("Failed to read device settings", err)
		}
		return &models.DeviceSettingsResponse{Body: models.DeviceSettingsDataFrom(settings)}, nil
	})

	playback := []struct {
		id, action, summary, description string
		run                              func(context.Context) error
	}{
		{"start-sequencer", "start", "Start", "Start or resume the pattern sequence. Requires a successful validation when starting from stopped.", s.controller.Start},
		{"pause-sequencer", "pause", "Pause", "Pause the running sequence at the current pattern", s.controller.Pause},
		{"stop-sequencer", "stop", "Stop", "Stop the sequence and rewind to the first entry", s.controller.Stop},
	}
	for _, p := range playback {
		huma.Register(s.api, huma.Operation{
			OperationID: p.id,
			Method:      http.MethodPost,
			Path:        "/api/sequencer/" + p.action,
			Summary:     p.summary,
			Description: p.description,
			Tags:        []string{"sequencer"},
			Errors:      []int{401, 409, 502, 503},
			Security:    withAuth(),
		}, func(ctx context.Context, input *struct{}) (*models.SequencerResponse, error) {
			if err := p.run(ctx); err != nil {
				return nil, mapError("Failed to "+p.action+" sequencer", err)
			}
			return s.snapshot(), nil
		})
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "validate-sequence",
		Method:      http.MethodPost,
		Path:        "/api/sequencer/validate",
		Summary:     "Validate",
		Description: "Ask the device to validate the sent sequence. Diagnostics are reported in the body, not as errors.",
		Tags:        []string{"sequencer"},
		Errors:      []int{401, 409, 502, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.ValidationResponse, error) {
		status, err := s.controller.Validate(ctx)
		if err != nil && sequencer.KindOf(err) != sequencer.KindValidationFailed {
			return nil, mapError("Failed to validate sequence", err)
		}
		return &models.ValidationResponse{Body: validationData(status)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-display-mode",
		Method:      http.MethodPut,
		Path:        "/api/sequencer/display-mode",
		Summary:     "Set Display Mode",
		Description: "Switch between video and pattern mode. Stops the sequence.",
		Tags:        []string{"sequencer"},
		Errors:      []int{401, 422, 502, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.DisplayModeRequest) (*models.SequencerResponse, error) {
		mode, err := device.ParseDisplayMode(input.Body.Mode)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		if err := s.controller.SetDisplayMode(ctx, mode); err != nil {
			return nil, mapError("Failed to set display mode", err)
		}
		return s.snapshot(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-pattern-source",
		Method:      http.MethodPut,
		Path:        "/api/sequencer/source",
		Summary:     "Set Pattern Source",
		Description: "Select whether patterns come from flash or the video port",
		Tags:        []string{"sequencer"},
		Errors:      []int{401, 409, 422, 502, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.PatternSourceRequest) (*models.SequencerResponse, error) {
		src, err := device.ParsePatternSource(input.Body.Source)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		if err := s.controller.SetPatternSource(ctx, src); err != nil {
			return nil, mapError("Failed to set pattern source", err)
		}
		return s.snapshot(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-trigger-mode",
		Method:      http.MethodPut,
		Path:        "/api/sequencer/trigger",
		Summary:     "Set Trigger Mode",
		Description: "Select VSYNC or internal/external triggering",
		Tags:        []string{"sequencer"},
		Errors:      []int{401, 409, 422, 502, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.TriggerModeRequest) (*models.SequencerResponse, error) {
		mode, err := sequencer.ParseTriggerMode(input.Body.Mode)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		if err := s.controller.SetTriggerMode(ctx, mode); err != nil {
			return nil, mapError("Failed to set trigger mode", err)
		}
		return s.snapshot(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-sequence-config",
		Method:      http.MethodPut,
		Path:        "/api/sequencer/config",
		Summary:     "Set Sequence Config",
		Description: "Set entry count, repeat and trigger-out settings. Omitted num_entries plays the whole staged table.",
		Tags:        []string{"sequencer"},
		Errors:      []int{401, 409, 422, 502, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.SequenceConfigRequest) (*models.SequencerResponse, error) {
		if err := s.controller.SetConfig(ctx, input.Body.Config(s.controller.EntryCount())); err != nil {
			return nil, mapError("Failed to set sequence config", err)
		}
		return s.snapshot(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-timing",
		Method:      http.MethodPut,
		Path:        "/api/sequencer/timing",
		Summary:     "Set Timing",
		Description: "Set pattern exposure and frame periods in microseconds",
		Tags:        []string{"sequencer"},
		Errors:      []int{401, 409, 422, 502, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.TimingRequest) (*models.SequencerResponse, error) {
		if err := s.controller.SetTiming(ctx, input.Body.Timing()); err != nil {
			return nil, mapError("Failed to set timing", err)
		}
		return s.snapshot(), nil
	})
}
