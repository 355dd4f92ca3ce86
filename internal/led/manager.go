package led

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/lcrnode/internal/events"
)

// Manager applies LED settings and reacts to sequencer state changes.
// Enables are left as applied unless HandOverOnStart or BlankOnStop is set.
type Manager struct {
	controller      Controller
	eventBus        *events.Bus
	unsubscribe     func()
	logger          *slog.Logger
	blankOnStop     bool
	handOverOnStart bool

	mu   sync.Mutex
	last State
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// BlankOnStop turns all LEDs off when the sequencer stops.
	BlankOnStop bool
	// HandOverOnStart sets the sequencer-controlled flag when the sequencer
	// starts, so the LUT LED select drives illumination.
	HandOverOnStart bool
}

// NewManager creates a new LED manager that reacts to sequencer state changes
func NewManager(controller Controller, eventBus *events.Bus, logger *slog.Logger, opts ManagerOptions) *Manager {
	return &Manager{
		controller:      controller,
		eventBus:        eventBus,
		logger:          logger,
		blankOnStop:     opts.BlankOnStop,
		handOverOnStart: opts.HandOverOnStart,
	}
}

// Start begins listening for sequencer state change events
func (m *Manager) Start() {
	m.unsubscribe = m.eventBus.Subscribe(func(e events.SequencerStateChangedEvent) {
		m.handleEvent(e)
	})
	m.logger.Info("LED manager started", "blank_on_stop", m.blankOnStop, "hand_over_on_start", m.handOverOnStart)
}

// Stop unsubscribes from events
func (m *Manager) Stop() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	m.logger.Info("LED manager stopped")
}

// handleEvent processes a single sequencer state change
func (m *Manager) handleEvent(event events.SequencerStateChangedEvent) {
	m.logger.Debug("Sequencer state changed", "from", event.From, "to", event.To)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	m.mu.Lock()
	enables := m.last.Enables
	m.mu.Unlock()

	switch event.To {
	case "running":
		if !m.handOverOnStart || enables.SequencerControlled {
			return
		}
		enables.SequencerControlled = true
	case "stopped":
		if !m.blankOnStop {
			return
		}
		enables = Enables{}
	default:
		return
	}

	if err := m.SetEnables(ctx, enables); err != nil {
		m.logger.Warn("Failed to update LEDs for sequencer state", "state", event.To, "error", err)
	}
}

// SetEnables writes enables and publishes the resulting LED state.
func (m *Manager) SetEnables(ctx context.Context, e Enables) error {
	if err := m.controller.SetEnables(ctx, e); err != nil {
		return err
	}
	m.mu.Lock()
	m.last.Enables = e
	st := m.last
	m.mu.Unlock()
	m.publish(st)
	return nil
}

// SetCurrents writes drive levels and publishes the resulting LED state.
func (m *Manager) SetCurrents(ctx context.Context, c Currents) error {
	if err := m.controller.SetCurrents(ctx, c); err != nil {
		return err
	}
	m.mu.Lock()
	m.last.Currents = c
	st := m.last
	m.mu.Unlock()
	m.publish(st)
	return nil
}

// Apply writes currents first, then enables, so LEDs never light at stale
// levels.
func (m *Manager) Apply(ctx context.Context, st State) error {
	if err := m.controller.SetCurrents(ctx, st.Currents); err != nil {
		return err
	}
	if err := m.controller.SetEnables(ctx, st.Enables); err != nil {
		return err
	}
	m.mu.Lock()
	m.last = st
	m.mu.Unlock()
	m.publish(st)
	return nil
}

// Refresh reads the LED state from the controller and caches it.
func (m *Manager) Refresh(ctx context.Context) (State, error) {
	st, err := m.controller.State(ctx)
	if err != nil {
		return State{}, err
	}
	m.mu.Lock()
	m.last = st
	m.mu.Unlock()
	return st, nil
}

// Last returns the most recently applied or read LED state.
func (m *Manager) Last() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

func (m *Manager) publish(st State) {
	if m.eventBus == nil {
		return
	}
	m.eventBus.Publish(events.LEDChangedEvent{
		SequencerControlled: st.Enables.SequencerControlled,
		Red:                 st.Enables.Red,
		Green:               st.Enables.Green,
		Blue:                st.Enables.Blue,
		RedCurrent:          st.Currents.Red,
		GreenCurrent:        st.Currents.Green,
		BlueCurrent:         st.Currents.Blue,
		Timestamp:           time.Now().Format(time.RFC3339),
	})
}

// GetController returns the underlying LED controller for direct API access
func (m *Manager) GetController() Controller {
	return m.controller
}
