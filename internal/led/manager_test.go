package led

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/lcrnode/internal/events"
)

// Mock controller for testing
type mockController struct {
	mu       sync.Mutex
	enables  []Enables
	currents []Currents
}

func (m *mockController) SetEnables(_ context.Context, e Enables) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enables = append(m.enables, e)
	return nil
}

func (m *mockController) SetCurrents(_ context.Context, c Currents) error {
	if err := c.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currents = append(m.currents, c)
	return nil
}

func (m *mockController) State(_ context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st State
	if n := len(m.enables); n > 0 {
		st.Enables = m.enables[n-1]
	}
	if n := len(m.currents); n > 0 {
		st.Currents = m.currents[n-1]
	}
	return st, nil
}

func (m *mockController) Available() []string {
	return []string{"red", "green", "blue"}
}

func (m *mockController) enableCalls() []Enables {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Enables(nil), m.enables...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestManager_RunningHandsControlToSequencer(t *testing.T) {
	ctrl := &mockController{}
	eventBus := events.New()

	mgr := NewManager(ctrl, eventBus, testLogger(), ManagerOptions{HandOverOnStart: true})
	mgr.Start()
	defer mgr.Stop()

	eventBus.Publish(events.SequencerStateChangedEvent{
		From:      "stopped",
		To:        "running",
		Timestamp: time.Now().Format(time.RFC3339),
	})

	// Give manager time to process
	time.Sleep(50 * time.Millisecond)

	calls := ctrl.enableCalls()
	if len(calls) != 1 {
		t.Fatalf("SetEnables calls = %d, want 1", len(calls))
	}
	if !calls[0].SequencerControlled {
		t.Error("LEDs not handed to the sequencer on start")
	}
}

func TestManager_RunningKeepsEnablesByDefault(t *testing.T) {
	ctrl := &mockController{}
	eventBus := events.New()

	mgr := NewManager(ctrl, eventBus, testLogger(), ManagerOptions{})
	mgr.Start()
	defer mgr.Stop()

	if err := mgr.SetEnables(context.Background(), Enables{Red: true}); err != nil {
		t.Fatalf("SetEnables() error = %v", err)
	}
	eventBus.Publish(events.SequencerStateChangedEvent{From: "stopped", To: "running"})
	time.Sleep(50 * time.Millisecond)

	calls := ctrl.enableCalls()
	if len(calls) != 1 {
		t.Fatalf("SetEnables calls = %v, want only the explicit one", calls)
	}
	if got := mgr.Last().Enables; got.SequencerControlled || !got.Red {
		t.Errorf("Last().Enables = %+v, want manual red", got)
	}
}

func TestManager_StopWithoutBlank(t *testing.T) {
	ctrl := &mockController{}
	eventBus := events.New()

	mgr := NewManager(ctrl, eventBus, testLogger(), ManagerOptions{})
	mgr.Start()
	defer mgr.Stop()

	eventBus.Publish(events.SequencerStateChangedEvent{From: "running", To: "stopped"})
	time.Sleep(50 * time.Millisecond)

	if calls := ctrl.enableCalls(); len(calls) != 0 {
		t.Errorf("SetEnables calls = %v, want none", calls)
	}
}

func TestManager_BlankOnStop(t *testing.T) {
	ctrl := &mockController{}
	eventBus := events.New()

	mgr := NewManager(ctrl, eventBus, testLogger(), ManagerOptions{BlankOnStop: true})
	mgr.Start()
	defer mgr.Stop()

	if err := mgr.SetEnables(context.Background(), Enables{SequencerControlled: true, Red: true}); err != nil {
		t.Fatalf("SetEnables() error = %v", err)
	}

	eventBus.Publish(events.SequencerStateChangedEvent{From: "running", To: "stopped"})
	time.Sleep(50 * time.Millisecond)

	calls := ctrl.enableCalls()
	if len(calls) != 2 {
		t.Fatalf("SetEnables calls = %d, want 2", len(calls))
	}
	if calls[1] != (Enables{}) {
		t.Errorf("enables after stop = %+v, want all off", calls[1])
	}
}

func TestManager_ApplyPublishes(t *testing.T) {
	ctrl := &mockController{}
	eventBus := events.New()

	got := make(chan events.LEDChangedEvent, 1)
	unsub := eventBus.Subscribe(func(e events.LEDChangedEvent) { got <- e })
	defer unsub()

	mgr := NewManager(ctrl, eventBus, testLogger(), ManagerOptions{})
	st := State{
		Enables:  Enables{Red: true, Blue: true},
		Currents: Currents{Red: 0.5, Green: 0.25, Blue: 1},
	}
	if err := mgr.Apply(context.Background(), st); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	select {
	case e := <-got:
		if !e.Red || e.Green || !e.Blue || e.RedCurrent != 0.5 || e.BlueCurrent != 1 {
			t.Errorf("LEDChangedEvent = %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no LEDChangedEvent published")
	}

	if mgr.Last() != st {
		t.Errorf("Last() = %+v, want %+v", mgr.Last(), st)
	}
}

func TestManager_ApplyRejectsInvalidCurrent(t *testing.T) {
	ctrl := &mockController{}
	mgr := NewManager(ctrl, events.New(), testLogger(), ManagerOptions{})

	err := mgr.Apply(context.Background(), State{Currents: Currents{Red: 1.5}})
	if err == nil {
		t.Fatal("Apply() with current 1.5 should fail")
	}
	if len(ctrl.enableCalls()) != 0 {
		t.Error("enables written after current validation failed")
	}
}

func TestManager_GetController(t *testing.T) {
	ctrl := &mockController{}
	mgr := NewManager(ctrl, events.New(), testLogger(), ManagerOptions{})

	if got := mgr.GetController(); got != ctrl {
		t.Error("GetController() did not return the original controller")
	}
}
