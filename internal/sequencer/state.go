package sequencer

import (
	"fmt"

	"github.com/smazurov/lcrnode/internal/device"
)

// State is the sequencer playback state.
type State int

// Sequencer states. Stopped is the initial state.
const (
	StateStopped State = iota
	StatePaused
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePaused:
		return "paused"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TriggerMode selects what triggers pattern display.
type TriggerMode = device.TriggerMode

// Trigger modes.
const (
	TriggerVSync              = device.TriggerModeVSync
	TriggerInternalOrExternal = device.TriggerModeInternalOrExternal
)

// ParseTriggerMode accepts "vsync" or "internal_or_external".
func ParseTriggerMode(s string) (TriggerMode, error) {
	switch s {
	case "vsync", "VSync":
		return TriggerVSync, nil
	case "internal_or_external", "internal", "external":
		return TriggerInternalOrExternal, nil
	default:
		return 0, fmt.Errorf("unknown trigger mode %q", s)
	}
}
