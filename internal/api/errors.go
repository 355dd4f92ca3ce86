package api

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/lcrnode/internal/device"
	"github.com/smazurov/lcrnode/internal/led"
	"github.com/smazurov/lcrnode/internal/program"
	"github.com/smazurov/lcrnode/internal/sequencer"
)

// mapError converts controller errors to HTTP errors. Link failures are
// 503, commands the device refused are 502, state conflicts are 409 and
// bad parameters are 422.
func mapError(msg string, err error) error {
	if err == nil {
		return nil
	}

	switch sequencer.KindOf(err) {
	case sequencer.KindConnection:
		return huma.Error503ServiceUnavailable(msg, err)
	case sequencer.KindDeviceRejected:
		return huma.Error502BadGateway(msg, err)
	case sequencer.KindInvalidState, sequencer.KindNotValidated, sequencer.KindValidationFailed:
		return huma.Error409Conflict(msg, err)
	case sequencer.KindIndexOutOfRange:
		return huma.Error404NotFound(msg, err)
	case sequencer.KindInvalidEntry, sequencer.KindInvalidConfig,
		sequencer.KindInvalidTiming, sequencer.KindCapacityExceeded:
		return huma.Error422UnprocessableEntity(msg, err)
	}

	if errors.Is(err, led.ErrInvalidCurrent) || errors.Is(err, program.ErrInvalidProgram) {
		return huma.Error422UnprocessableEntity(msg, err)
	}

	var devErr *device.Error
	if errors.As(err, &devErr) {
		if devErr.IsConnection() {
			return huma.Error503ServiceUnavailable(msg, err)
		}
		return huma.Error502BadGateway(msg, err)
	}

	return huma.Error500InternalServerError(msg, err)
}
