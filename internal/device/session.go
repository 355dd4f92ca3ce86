package device

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/smazurov/lcrnode/internal/logging"
	"github.com/smazurov/lcrnode/internal/metrics"
)

// Session is an open connection to one controller. Only one command is
// outstanding at a time; callers from several goroutines are serialized.
type Session struct {
	link   Link
	logger logging.Logger

	mu        sync.Mutex
	connected bool
}

// NewSession wraps link. Call Connect before issuing commands.
func NewSession(link Link, logger logging.Logger) *Session {
	if logger == nil {
		logger = logging.GetLogger("device")
	}
	return &Session{
		link:   link,
		logger: logger,
	}
}

// Connect opens the link. Connecting an already connected session is a no-op.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return nil
	}
	if err := s.link.Open(ctx); err != nil {
		metrics.SetDeviceConnected(false)
		return newError(ErrCodeDeviceNotFound, 0, "failed to open link", err)
	}
	s.connected = true
	metrics.SetDeviceConnected(true)
	s.logger.Info("Connected to controller")
	return nil
}

// Close closes the link.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}
	s.connected = false
	metrics.SetDeviceConnected(false)
	if err := s.link.Close(); err != nil {
		return newError(ErrCodeTransport, 0, "failed to close link", err)
	}
	s.logger.Info("Disconnected from controller")
	return nil
}

// Connected reports whether the session believes the link is usable.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Session) exchange(ctx context.Context, req Request) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		metrics.RecordDeviceCommand(req.Command.String(), "not_connected", 0)
		return Reply{}, newError(ErrCodeNotConnected, req.Command, "session is not connected", nil)
	}

	start := time.Now()
	reply, err := s.link.Exchange(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		code := ErrCodeTransport
		if errors.Is(err, ErrLinkClosed) {
			code = ErrCodeLinkClosed
			s.connected = false
			metrics.SetDeviceConnected(false)
		}
		metrics.RecordDeviceCommand(req.Command.String(), "error", elapsed)
		s.logger.Warn("Command failed", "command", req.Command.String(), "error", err)
		return Reply{}, newError(code, req.Command, "exchange failed", err)
	}

	if reply.Status < 0 {
		metrics.RecordDeviceCommand(req.Command.String(), "rejected", elapsed)
		s.logger.Debug("Command rejected", "command", req.Command.String(), "status", reply.Status)
		e := newError(ErrCodeRejected, req.Command, "controller rejected command", nil)
		e.Status = reply.Status
		return Reply{}, e
	}

	metrics.RecordDeviceCommand(req.Command.String(), "ok", elapsed)
	return reply, nil
}

func (s *Session) write(ctx context.Context, cmd Command, args ...uint32) error {
	_, err := s.exchange(ctx, Request{Command: cmd, Args: args})
	return err
}

func (s *Session) read(ctx context.Context, cmd Command, want int, args ...uint32) ([]uint32, error) {
	reply, err := s.exchange(ctx, Request{Command: cmd, Read: true, Args: args})
	if err != nil {
		return nil, err
	}
	if len(reply.Values) < want {
		return nil, newError(ErrCodeShortReply, cmd, "reply carried too few values", nil)
	}
	return reply.Values, nil
}
