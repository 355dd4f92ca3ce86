package sequencer

import (
	"fmt"

	"github.com/smazurov/lcrnode/internal/device"
)

// Sequence configuration limits.
const (
	MaxPatternsForTrigOut2 = 256
	MaxSplashEntries       = 64
)

// MinFrameExposureGap is the smallest non-zero difference between frame and
// exposure period, in microseconds.
const MinFrameExposureGap = 230

// SequenceConfig controls how the device walks the pattern table.
type SequenceConfig struct {
	NumEntries             uint32 `json:"num_entries" toml:"num_entries"`
	Repeat                 bool   `json:"repeat" toml:"repeat"`
	NumPatternsForTrigOut2 uint32 `json:"num_patterns_for_trig_out2" toml:"num_patterns_for_trig_out2"`
	NumSplashEntries       uint32 `json:"num_splash_entries" toml:"num_splash_entries"`
}

func (c SequenceConfig) validate(capacity int, source device.PatternSource) error {
	if c.NumEntries < 1 || int(c.NumEntries) > capacity {
		return fmt.Errorf("num_entries %d not in 1..%d", c.NumEntries, capacity)
	}
	if c.NumPatternsForTrigOut2 < 1 || c.NumPatternsForTrigOut2 > MaxPatternsForTrigOut2 {
		return fmt.Errorf("num_patterns_for_trig_out2 %d not in 1..%d", c.NumPatternsForTrigOut2, MaxPatternsForTrigOut2)
	}
	// The splash LUT is only consulted when patterns come from flash.
	if source == device.PatternSourceFlash &&
		(c.NumSplashEntries < 1 || c.NumSplashEntries > MaxSplashEntries) {
		return fmt.Errorf("num_splash_entries %d not in 1..%d", c.NumSplashEntries, MaxSplashEntries)
	}
	return nil
}

func (c SequenceConfig) register() device.PatternConfig {
	return device.PatternConfig{
		NumLUTEntries:          c.NumEntries,
		Repeat:                 c.Repeat,
		NumPatternsForTrigOut2: c.NumPatternsForTrigOut2,
		NumSplashEntries:       c.NumSplashEntries,
	}
}

func sequenceConfigFrom(r device.PatternConfig) SequenceConfig {
	return SequenceConfig{
		NumEntries:             r.NumLUTEntries,
		Repeat:                 r.Repeat,
		NumPatternsForTrigOut2: r.NumPatternsForTrigOut2,
		NumSplashEntries:       r.NumSplashEntries,
	}
}

// TimingConfig holds the pattern exposure and frame periods in microseconds.
type TimingConfig struct {
	ExposureMicros uint32 `json:"exposure_us" toml:"exposure_us"`
	FrameMicros    uint32 `json:"frame_us" toml:"frame_us"`
}

// Validate checks that exposure equals frame or leaves at least
// MinFrameExposureGap microseconds for the blanking period.
func (t TimingConfig) Validate() error {
	if t.ExposureMicros == 0 || t.FrameMicros == 0 {
		return fmt.Errorf("exposure %dus and frame %dus must be positive", t.ExposureMicros, t.FrameMicros)
	}
	if t.ExposureMicros == t.FrameMicros {
		return nil
	}
	if t.ExposureMicros > t.FrameMicros {
		return fmt.Errorf("exposure %dus exceeds frame %dus", t.ExposureMicros, t.FrameMicros)
	}
	if gap := t.FrameMicros - t.ExposureMicros; gap < MinFrameExposureGap {
		return fmt.Errorf("frame - exposure = %dus, need 0 or at least %dus", gap, MinFrameExposureGap)
	}
	return nil
}
