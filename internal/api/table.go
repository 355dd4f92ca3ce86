package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/lcrnode/internal/api/models"
	"github.com/smazurov/lcrnode/internal/pattern"
)

func entryFromRequest(r models.EntryRequestData) (pattern.Entry, error) {
	if r.TriggerType == "" {
		r.TriggerType = pattern.TriggerInternal.String()
	}
	if r.LEDs == "" {
		r.LEDs = pattern.LEDNone.String()
	}
	trigger, err := pattern.ParseTriggerType(r.TriggerType)
	if err != nil {
		return pattern.Entry{}, err
	}
	leds, err := pattern.ParseLEDSelect(r.LEDs)
	if err != nil {
		return pattern.Entry{}, err
	}
	return pattern.Entry{
		TriggerType:  trigger,
		PatternIndex: r.PatternIndex,
		BitDepth:     r.BitDepth,
		LEDs:         leds,
		Invert:       r.Invert,
		InsertBlack:  r.InsertBlack,
		BufferSwap:   r.BufferSwap,
		TriggerOut:   r.TriggerOut,
	}, nil
}

func tableData(entries []pattern.Entry, capacity int, sent bool) models.TableData {
	out := models.TableData{
		Entries:  make([]models.EntryData, len(entries)),
		Count:    len(entries),
		Capacity: capacity,
		Sent:     sent,
	}
	for i, e := range entries {
		out.Entries[i] = models.EntryDataFrom(i, e)
	}
	return out
}

func (s *Server) stagedTable() *models.TableResponse {
	return &models.TableResponse{
		Body: tableData(s.controller.Entries(), s.controller.Capacity(), s.controller.TableSent()),
	}
}

// registerTableRoutes registers pattern table staging and commit endpoints.
func (s *Server) registerTableRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-table",
		Method:      http.MethodGet,
		Path:        "/api/table",
		Summary:     "Get Table",
		Description: "List the staged pattern table",
		Tags:        []string{"table"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.TableResponse, error) {
		return s.stagedTable(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "add-table-entry",
		Method:        http.MethodPost,
		Path:          "/api/table/entries",
		Summary:       "Add Entry",
		Description:   "Append an entry to the staged table",
		Tags:          []string{"table"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{401, 409, 422},
		Security:      withAuth(),
	}, func(ctx context.Context, input *models.EntryRequest) (*models.EntryResponse, error) {
		entry, err := entryFromRequest(input.Body)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		index, err := s.controller.AddEntry(entry)
		if err != nil {
			return nil, mapError("Failed to add entry", err)
		}
		return &models.EntryResponse{Body: models.EntryDataFrom(index, entry)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-table-entry",
		Method:      http.MethodGet,
		Path:        "/api/table/entries/{index}",
		Summary:     "Get Entry",
		Description: "Get one staged table entry",
		Tags:        []string{"table"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.EntryIndexInput) (*models.EntryResponse, error) {
		entry, err := s.controller.Entry(input.Index)
		if err != nil {
			return nil, mapError("Entry not found", err)
		}
		return &models.EntryResponse{Body: models.EntryDataFrom(input.Index, entry)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "clear-table",
		Method:      http.MethodDelete,
		Path:        "/api/table",
		Summary:     "Clear Table",
		Description: "Discard all staged entries. The device keeps its table until the next send.",
		Tags:        []string{"table"},
		Errors:      []int{401, 409},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.TableResponse, error) {
		if err := s.controller.ClearTable(); err != nil {
			return nil, mapError("Failed to clear table", err)
		}
		return s.stagedTable(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "send-table",
		Method:      http.MethodPost,
		Path:        "/api/table/send",
		Summary:     "Send Table",
		Description: "Write the staged table to the device",
		Tags:        []string{"table"},
		Errors:      []int{401, 409, 422, 502, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.TableResponse, error) {
		if err := s.controller.SendTable(ctx); err != nil {
			return nil, mapError("Failed to send table", err)
		}
		return s.stagedTable(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "read-device-table",
		Method:      http.MethodGet,
		Path:        "/api/table/device",
		Summary:     "Read Device Table",
		Description: "Read back the table last sent to the device",
		Tags:        []string{"table"},
		Errors:      []int{401, 502, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.TableResponse, error) {
		entries, err := s.controller.ReadTable(ctx)
		if err != nil {
			return nil, mapError("Failed to read device table", err)
		}
		return &models.TableResponse{Body: tableData(entries, s.controller.Capacity(), true)}, nil
	})
}
