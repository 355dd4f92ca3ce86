package led

import (
	"github.com/smazurov/lcrnode/internal/device"
	"github.com/smazurov/lcrnode/internal/logging"
)

// New creates an LED controller for session.
// Falls back to no-op controller when there is no session.
func New(session *device.Session, logger logging.Logger) Controller {
	if logger == nil {
		logger = logging.GetLogger("led")
	}

	if session == nil {
		logger.Info("No device session, using no-op LED controller")
		return newNoop(logger)
	}

	logger.Info("Using device LED controller")
	return newSessionController(session)
}
