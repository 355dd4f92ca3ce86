package led

import (
	"context"
	"sync"

	"github.com/smazurov/lcrnode/internal/logging"
)

// noop implements Controller for light engines without LED control. It
// remembers the last settings so reads are consistent.
type noop struct {
	logger logging.Logger

	mu    sync.Mutex
	state State
}

// newNoop creates a new no-op LED controller
func newNoop(logger logging.Logger) *noop {
	return &noop{
		logger: logger,
	}
}

// SetEnables logs the request but performs no actual LED control
func (n *noop) SetEnables(_ context.Context, e Enables) error {
	n.logger.Debug("LED control not available (no-op)",
		"sequencer_controlled", e.SequencerControlled,
		"red", e.Red,
		"green", e.Green,
		"blue", e.Blue)

	n.mu.Lock()
	n.state.Enables = e
	n.mu.Unlock()
	return nil
}

// SetCurrents validates and records the levels
func (n *noop) SetCurrents(_ context.Context, c Currents) error {
	if err := c.Validate(); err != nil {
		return err
	}
	n.logger.Debug("LED current control not available (no-op)",
		"red", c.Red,
		"green", c.Green,
		"blue", c.Blue)

	n.mu.Lock()
	n.state.Currents = c
	n.mu.Unlock()
	return nil
}

// State returns the last recorded settings
func (n *noop) State(_ context.Context) (State, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state, nil
}

// Available returns an empty list since no LEDs are available
func (n *noop) Available() []string {
	return []string{}
}
