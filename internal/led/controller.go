// Package led controls the light engine's red, green and blue illumination
// LEDs: which are enabled, whether the pattern sequencer switches them, and
// their drive currents.
package led

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/smazurov/lcrnode/internal/device"
)

// Controller abstracts the illumination LEDs. Implementations must be safe
// for concurrent use.
type Controller interface {
	// SetEnables sets which LEDs are on and whether the sequencer drives them.
	SetEnables(ctx context.Context, e Enables) error

	// SetCurrents sets the drive level of each LED, 0.0 to 1.0.
	SetCurrents(ctx context.Context, c Currents) error

	// State reads the current enables and drive levels.
	State(ctx context.Context) (State, error)

	// Available returns the LED colors this controller drives.
	Available() []string
}

// Enables selects which LEDs are lit. With SequencerControlled set, the
// pattern LUT entries choose the LEDs and the color flags are ignored.
type Enables = device.LEDEnables

// Currents are linear drive levels from 0.0 (off) to 1.0 (maximum).
type Currents struct {
	Red   float64 `json:"red" toml:"red" minimum:"0" maximum:"1" doc:"Red drive level"`
	Green float64 `json:"green" toml:"green" minimum:"0" maximum:"1" doc:"Green drive level"`
	Blue  float64 `json:"blue" toml:"blue" minimum:"0" maximum:"1" doc:"Blue drive level"`
}

// State is the combined LED configuration.
type State struct {
	Enables  Enables  `json:"enables"`
	Currents Currents `json:"currents"`
}

// ErrInvalidCurrent is returned for drive levels outside 0.0..1.0.
var ErrInvalidCurrent = errors.New("LED current must be between 0.0 and 1.0")

// Colors driven by the light engine.
var colors = []string{"red", "green", "blue"}

// Validate checks that every level is within 0.0..1.0.
func (c Currents) Validate() error {
	for i, v := range []float64{c.Red, c.Green, c.Blue} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: %s = %v", ErrInvalidCurrent, colors[i], v)
		}
	}
	return nil
}

// PWM converts linear levels to 8-bit duty cycles. Full scale maps to 255.
func (c Currents) PWM() (device.LEDCurrents, error) {
	if err := c.Validate(); err != nil {
		return device.LEDCurrents{}, err
	}
	return device.LEDCurrents{
		Red:   toPWM(c.Red),
		Green: toPWM(c.Green),
		Blue:  toPWM(c.Blue),
	}, nil
}

func toPWM(v float64) uint8 {
	return uint8(min(math.Floor(v*256), 255))
}

// CurrentsFromPWM converts 8-bit duty cycles back to linear levels.
func CurrentsFromPWM(p device.LEDCurrents) Currents {
	return Currents{
		Red:   float64(p.Red) / 256,
		Green: float64(p.Green) / 256,
		Blue:  float64(p.Blue) / 256,
	}
}
