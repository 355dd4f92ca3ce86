package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/lcrnode/internal/api/models"
	"github.com/smazurov/lcrnode/internal/led"
)

func (s *Server) ledResponse(st led.State) *models.LEDResponse {
	return &models.LEDResponse{
		Body: models.LEDData{
			Enables:   st.Enables,
			Currents:  st.Currents,
			Available: s.leds.GetController().Available(),
		},
	}
}

// registerLEDRoutes registers illumination LED endpoints
func (s *Server) registerLEDRoutes() {
	if s.leds == nil {
		s.logger.Debug("LED manager not available, skipping LED routes")
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-leds",
		Method:      http.MethodGet,
		Path:        "/api/leds",
		Summary:     "Get LEDs",
		Description: "Read LED enables and drive levels from the device",
		Tags:        []string{"leds"},
		Errors:      []int{401, 502, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.LEDResponse, error) {
		st, err := s.leds.Refresh(ctx)
		if err != nil {
			return nil, mapError("Failed to read LEDs", err)
		}
		return s.ledResponse(st), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-led-enables",
		Method:      http.MethodPut,
		Path:        "/api/leds/enables",
		Summary:     "Set LED Enables",
		Description: "Choose which LEDs are lit, or hand them to the pattern sequencer",
		Tags:        []string{"leds"},
		Errors:      []int{401, 502, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.LEDEnablesRequest) (*models.LEDResponse, error) {
		if err := s.leds.SetEnables(ctx, input.Body); err != nil {
			return nil, mapError("Failed to set LED enables", err)
		}
		return s.ledResponse(s.leds.Last()), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-led-currents",
		Method:      http.MethodPut,
		Path:        "/api/leds/currents",
		Summary:     "Set LED Currents",
		Description: "Set drive levels from 0.0 to 1.0",
		Tags:        []string{"leds"},
		Errors:      []int{401, 422, 502, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.LEDCurrentsRequest) (*models.LEDResponse, error) {
		if err := s.leds.SetCurrents(ctx, input.Body); err != nil {
			return nil, mapError("Failed to set LED currents", err)
		}
		return s.ledResponse(s.leds.Last()), nil
	})

	s.logger.Debug("LED routes registered")
}
