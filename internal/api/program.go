package api

import (
	"context"
	"errors"
	"io/fs"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/lcrnode/internal/api/models"
	"github.com/smazurov/lcrnode/internal/program"
)

// currentProgram describes the staged controller state as a program.
func (s *Server) currentProgram() *program.Program {
	snap := s.controller.Snapshot()
	p := &program.Program{
		Version:       program.CurrentVersion,
		DisplayMode:   snap.DisplayMode,
		PatternSource: snap.PatternSource,
		TriggerMode:   snap.TriggerMode,
		Config: program.Config{
			NumEntries:             snap.Config.NumEntries,
			Repeat:                 snap.Config.Repeat,
			NumPatternsForTrigOut2: snap.Config.NumPatternsForTrigOut2,
			NumSplashEntries:       snap.Config.NumSplashEntries,
		},
		Timing:  snap.Timing,
		Entries: program.FromEntries(s.controller.Entries()),
	}
	if s.leds != nil {
		st := s.leds.Last()
		p.LEDs = &program.LEDs{
			SequencerControlled: st.Enables.SequencerControlled,
			Red:                 st.Enables.Red,
			Green:               st.Enables.Green,
			Blue:                st.Enables.Blue,
			Currents:            st.Currents,
		}
	}
	return p
}

// registerProgramRoutes registers endpoints that apply whole sequence
// programs.
func (s *Server) registerProgramRoutes() {
	if s.options.Applier == nil {
		s.logger.Debug("No program applier, skipping program routes")
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-program",
		Method:      http.MethodGet,
		Path:        "/api/program",
		Summary:     "Get Program",
		Description: "The staged sequence expressed as a program, suitable for saving to a file",
		Tags:        []string{"program"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.ProgramResponse, error) {
		return &models.ProgramResponse{Body: *s.currentProgram()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "apply-program",
		Method:      http.MethodPost,
		Path:        "/api/program",
		Summary:     "Apply Program",
		Description: "Stop, stage, send and validate a complete sequence, then start it if requested",
		Tags:        []string{"program"},
		Errors:      []int{401, 409, 422, 502, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.ProgramRequest) (*models.ProgramResultResponse, error) {
		p := input.Body
		if p.Version == 0 {
			p.Version = program.CurrentVersion
		}
		res, err := s.options.Applier.Apply(ctx, &p, "")
		if err != nil {
			return nil, mapError("Failed to apply program", err)
		}
		return &models.ProgramResultResponse{Body: res}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "reload-program",
		Method:      http.MethodPost,
		Path:        "/api/program/reload",
		Summary:     "Reload Program",
		Description: "Load the configured program file and apply it",
		Tags:        []string{"program"},
		Errors:      []int{401, 404, 409, 422, 502, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.ProgramResultResponse, error) {
		path := s.options.ProgramPath
		if path == "" {
			return nil, huma.Error404NotFound("No program file configured")
		}
		p, err := program.Load(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, huma.Error404NotFound("Program file not found", err)
		}
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("Failed to load program", err)
		}
		res, err := s.options.Applier.Apply(ctx, p, path)
		if err != nil {
			return nil, mapError("Failed to apply program", err)
		}
		return &models.ProgramResultResponse{Body: res}, nil
	})
}
