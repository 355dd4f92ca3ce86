package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/lcrnode/internal/api/models"
	"github.com/smazurov/lcrnode/internal/device"
)

func firmwareData(v device.VersionInfo) models.FirmwareData {
	return models.FirmwareData{
		Application:    v.Application.String(),
		API:            v.API.String(),
		SoftwareConfig: v.SoftwareConfig.String(),
		SequenceConfig: v.SequenceConfig.String(),
	}
}

func (s *Server) readOrientation(ctx context.Context) (*models.ImageOrientationResponse, error) {
	session := s.controller.Session()
	long, err := session.LongAxisFlip(ctx)
	if err != nil {
		return nil, mapError("Failed to read image orientation", err)
	}
	short, err := session.ShortAxisFlip(ctx)
	if err != nil {
		return nil, mapError("Failed to read image orientation", err)
	}
	return &models.ImageOrientationResponse{
		Body: models.ImageOrientationData{LongAxisFlip: long, ShortAxisFlip: short},
	}, nil
}

func (s *Server) readInputSource(ctx context.Context) (*models.InputSourceResponse, error) {
	src, width, err := s.controller.Session().InputSource(ctx)
	if err != nil {
		return nil, mapError("Failed to read input source", err)
	}
	data := models.InputSourceData{Source: src.String()}
	if src == device.InputParallel {
		data.PortWidth = width.Bits()
	}
	return &models.InputSourceResponse{Body: data}, nil
}

// registerDeviceRoutes registers controller-level endpoints that sit outside
// the pattern sequence: identity, power, orientation and video input.
func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-device",
		Method:      http.MethodGet,
		Path:        "/api/device",
		Summary:     "Get Device",
		Description: "Firmware revisions, status registers and power state of the controller",
		Tags:        []string{"device"},
		Errors:      []int{401, 502, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.DeviceResponse, error) {
		session := s.controller.Session()
		out := models.DeviceData{
			Connected: session.Connected(),
			Driver:    s.options.Driver,
		}

		v, err := session.Version(ctx)
		if err != nil {
			return nil, mapError("Failed to read firmware version", err)
		}
		out.Firmware = firmwareData(v)

		st, err := session.Status(ctx)
		if err != nil {
			return nil, mapError("Failed to read device status", err)
		}
		out.Status = models.DeviceStatusData{
			Hardware:        st.Hardware,
			System:          st.System,
			Main:            st.Main,
			SequencerActive: st.SequencerActive(),
		}

		if out.Standby, err = session.Standby(ctx); err != nil {
			return nil, mapError("Failed to read power state", err)
		}
		return &models.DeviceResponse{Body: out}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-standby",
		Method:      http.MethodPut,
		Path:        "/api/device/standby",
		Summary:     "Set Standby",
		Description: "Enter or leave standby",
		Tags:        []string{"device"},
		Errors:      []int{401, 502, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.StandbyRequest) (*struct{}, error) {
		if err := s.controller.Session().SetStandby(ctx, input.Body.Standby); err != nil {
			return nil, mapError("Failed to set standby", err)
		}
		s.logger.Info("Power state changed", "standby", input.Body.Standby)
		return &struct{}{}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "reset-device",
		Method:      http.MethodPost,
		Path:        "/api/device/reset",
		Summary:     "Reset Device",
		Description: "Software reset. The device returns to video mode and the staged table must be sent again.",
		Tags:        []string{"device"},
		Errors:      []int{401, 502, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.SequencerResponse, error) {
		if err := s.controller.Reset(ctx); err != nil {
			return nil, mapError("Failed to reset device", err)
		}
		return s.snapshot(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-image-orientation",
		Method:      http.MethodGet,
		Path:        "/api/device/orientation",
		Summary:     "Get Image Orientation",
		Tags:        []string{"device"},
		Errors:      []int{401, 502, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.ImageOrientationResponse, error) {
		return s.readOrientation(ctx)
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-image-orientation",
		Method:      http.MethodPut,
		Path:        "/api/device/orientation",
		Summary:     "Set Image Orientation",
		Description: "Flip the projected image along either axis",
		Tags:        []string{"device"},
		Errors:      []int{401, 502, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.ImageOrientationRequest) (*models.ImageOrientationResponse, error) {
		session := s.controller.Session()
		if err := session.SetLongAxisFlip(ctx, input.Body.LongAxisFlip); err != nil {
			return nil, mapError("Failed to set long axis flip", err)
		}
		if err := session.SetShortAxisFlip(ctx, input.Body.ShortAxisFlip); err != nil {
			return nil, mapError("Failed to set short axis flip", err)
		}
		return s.readOrientation(ctx)
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-input-source",
		Method:      http.MethodGet,
		Path:        "/api/device/input",
		Summary:     "Get Input Source",
		Tags:        []string{"device"},
		Errors:      []int{401, 502, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.InputSourceResponse, error) {
		return s.readInputSource(ctx)
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-input-source",
		Method:      http.MethodPut,
		Path:        "/api/device/input",
		Summary:     "Set Input Source",
		Description: "Select the video input. Port width only applies to the parallel interface.",
		Tags:        []string{"device"},
		Errors:      []int{401, 422, 502, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.InputSourceRequest) (*models.InputSourceResponse, error) {
		src, err := device.ParseInputSource(input.Body.Source)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		var width device.PortWidth
		if src == device.InputParallel {
			bits := input.Body.PortWidth
			if bits == 0 {
				bits = 24
			}
			if width, err = device.PortWidthFromBits(bits); err != nil {
				return nil, huma.Error422UnprocessableEntity(err.Error())
			}
		}
		if err := s.controller.Session().SetInputSource(ctx, src, width); err != nil {
			return nil, mapError("Failed to set input source", err)
		}
		return s.readInputSource(ctx)
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-test-pattern",
		Method:      http.MethodGet,
		Path:        "/api/device/test-pattern",
		Summary:     "Get Test Pattern",
		Tags:        []string{"device"},
		Errors:      []int{401, 502, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.TestPatternResponse, error) {
		tp, err := s.controller.Session().TestPattern(ctx)
		if err != nil {
			return nil, mapError("Failed to read test pattern", err)
		}
		return &models.TestPatternResponse{Body: models.TestPatternData{Pattern: tp.String()}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-test-pattern",
		Method:      http.MethodPut,
		Path:        "/api/device/test-pattern",
		Summary:     "Set Test Pattern",
		Description: "Select the internal test pattern. Shown when the input source is test_pattern.",
		Tags:        []string{"device"},
		Errors:      []int{401, 422, 502, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.TestPatternRequest) (*models.TestPatternResponse, error) {
		tp, err := device.ParseTestPattern(input.Body.Pattern)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		if err := s.controller.Session().SetTestPattern(ctx, tp); err != nil {
			return nil, mapError("Failed to set test pattern", err)
		}
		return &models.TestPatternResponse{Body: models.TestPatternData{Pattern: tp.String()}}, nil
	})
}
