// Package program loads sequence programs from TOML files and applies them
// to a sequencer.
//
// A program describes everything needed to run a pattern sequence: display
// mode, pattern source, LED settings, the pattern table, sequence and timing
// configuration, trigger mode and whether to start once validated.
package program

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/smazurov/lcrnode/internal/device"
	"github.com/smazurov/lcrnode/internal/led"
	"github.com/smazurov/lcrnode/internal/pattern"
	"github.com/smazurov/lcrnode/internal/sequencer"
)

// CurrentVersion is the program file format version.
const CurrentVersion = 1

// Program is a complete sequence description.
type Program struct {
	Version       int                    `toml:"version" json:"version" required:"false"`
	Name          string                 `toml:"name" json:"name" required:"false"`
	DisplayMode   string                 `toml:"display_mode,omitempty" json:"display_mode,omitempty"`
	PatternSource string                 `toml:"pattern_source,omitempty" json:"pattern_source,omitempty"`
	TriggerMode   string                 `toml:"trigger_mode,omitempty" json:"trigger_mode,omitempty"`
	Start         bool                   `toml:"start" json:"start" required:"false"`
	Config        Config                 `toml:"config" json:"config" required:"false"`
	Timing        sequencer.TimingConfig `toml:"timing" json:"timing" required:"false"`
	LEDs          *LEDs                  `toml:"leds,omitempty" json:"leds,omitempty"`
	Entries       []Entry                `toml:"entries" json:"entries" required:"false"`
}

// Config mirrors sequencer.SequenceConfig. A zero NumEntries plays the
// whole table.
type Config struct {
	NumEntries             uint32 `toml:"num_entries,omitempty" json:"num_entries,omitempty"`
	Repeat                 bool   `toml:"repeat" json:"repeat" required:"false"`
	NumPatternsForTrigOut2 uint32 `toml:"num_patterns_for_trig_out2,omitempty" json:"num_patterns_for_trig_out2,omitempty"`
	NumSplashEntries       uint32 `toml:"num_splash_entries,omitempty" json:"num_splash_entries,omitempty"`
}

// LEDs are the illumination settings applied before the table is staged.
type LEDs struct {
	SequencerControlled bool         `toml:"sequencer_controlled" json:"sequencer_controlled" required:"false"`
	Red                 bool         `toml:"red" json:"red" required:"false"`
	Green               bool         `toml:"green" json:"green" required:"false"`
	Blue                bool         `toml:"blue" json:"blue" required:"false"`
	Currents            led.Currents `toml:"currents" json:"currents" required:"false"`
}

// Entry is one or more pattern table rows. With Count > 1 the entry is
// repeated with consecutive pattern indices starting at Pattern.
type Entry struct {
	Trigger     string `toml:"trigger,omitempty" json:"trigger,omitempty"`
	Pattern     uint8  `toml:"pattern" json:"pattern" required:"false"`
	BitDepth    uint8  `toml:"bit_depth" json:"bit_depth"`
	LEDs        string `toml:"leds,omitempty" json:"leds,omitempty"`
	Invert      bool   `toml:"invert,omitempty" json:"invert,omitempty"`
	InsertBlack bool   `toml:"insert_black,omitempty" json:"insert_black,omitempty"`
	BufferSwap  bool   `toml:"buffer_swap,omitempty" json:"buffer_swap,omitempty"`
	TriggerOut  bool   `toml:"trigger_out,omitempty" json:"trigger_out,omitempty"`
	Count       int    `toml:"count,omitempty" json:"count,omitempty"`
}

// ErrInvalidProgram wraps every program validation failure.
var ErrInvalidProgram = errors.New("invalid program")

// Load reads and validates a program file.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a TOML program.
func Parse(data []byte) (*Program, error) {
	var p Program
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse program: %w", err)
	}
	if p.Version == 0 {
		p.Version = CurrentVersion
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Save writes the program to path, creating the directory if needed.
func Save(path string, p *Program) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create program directory: %w", err)
	}

	if p.Version == 0 {
		p.Version = CurrentVersion
	}
	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal program: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write program: %w", err)
	}
	return nil
}

// Validate checks names, ranges and per-entry encodability without a device.
func (p *Program) Validate() error {
	if p.Version > CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidProgram, p.Version)
	}
	if _, err := p.displayMode(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProgram, err)
	}
	if _, err := p.patternSource(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProgram, err)
	}
	if _, err := p.triggerMode(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProgram, err)
	}
	if p.LEDs != nil {
		if err := p.LEDs.Currents.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProgram, err)
		}
	}

	mode, _ := p.displayMode()
	if mode == device.DisplayModeVideo {
		return nil
	}
	entries, err := p.PatternEntries()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: no entries", ErrInvalidProgram)
	}
	if err := p.Timing.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProgram, err)
	}
	return nil
}

// PatternEntries expands the program entries into pattern table rows.
func (p *Program) PatternEntries() ([]pattern.Entry, error) {
	var out []pattern.Entry
	for i, e := range p.Entries {
		base, err := e.pattern()
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrInvalidProgram, i, err)
		}
		count := max(e.Count, 1)
		for n := 0; n < count; n++ {
			row := base
			row.PatternIndex = base.PatternIndex + uint8(n)
			if err := row.Validate(); err != nil {
				return nil, fmt.Errorf("%w: entry %d: %v", ErrInvalidProgram, i, err)
			}
			out = append(out, row)
		}
	}
	return out, nil
}

// SequenceConfig returns the sequence configuration for n staged entries.
func (p *Program) SequenceConfig(n int) sequencer.SequenceConfig {
	cfg := sequencer.SequenceConfig{
		NumEntries:             p.Config.NumEntries,
		Repeat:                 p.Config.Repeat,
		NumPatternsForTrigOut2: p.Config.NumPatternsForTrigOut2,
		NumSplashEntries:       p.Config.NumSplashEntries,
	}
	if cfg.NumEntries == 0 {
		cfg.NumEntries = uint32(n)
	}
	if cfg.NumPatternsForTrigOut2 == 0 {
		cfg.NumPatternsForTrigOut2 = 1
	}
	return cfg
}

func (p *Program) displayMode() (device.DisplayMode, error) {
	if p.DisplayMode == "" {
		return device.DisplayModePattern, nil
	}
	return device.ParseDisplayMode(p.DisplayMode)
}

func (p *Program) patternSource() (device.PatternSource, error) {
	if p.PatternSource == "" {
		return device.PatternSourceVideoPort, nil
	}
	return device.ParsePatternSource(p.PatternSource)
}

func (p *Program) triggerMode() (sequencer.TriggerMode, error) {
	if p.TriggerMode == "" {
		return sequencer.TriggerVSync, nil
	}
	return sequencer.ParseTriggerMode(p.TriggerMode)
}

func (l *LEDs) state() led.State {
	return led.State{
		Enables: led.Enables{
			SequencerControlled: l.SequencerControlled,
			Red:                 l.Red,
			Green:               l.Green,
			Blue:                l.Blue,
		},
		Currents: l.Currents,
	}
}

func (e Entry) pattern() (pattern.Entry, error) {
	out := pattern.Entry{
		PatternIndex: e.Pattern,
		BitDepth:     e.BitDepth,
		Invert:       e.Invert,
		InsertBlack:  e.InsertBlack,
		BufferSwap:   e.BufferSwap,
		TriggerOut:   e.TriggerOut,
	}
	if e.Trigger != "" {
		t, err := pattern.ParseTriggerType(e.Trigger)
		if err != nil {
			return out, err
		}
		out.TriggerType = t
	}
	if e.LEDs != "" {
		l, err := pattern.ParseLEDSelect(e.LEDs)
		if err != nil {
			return out, err
		}
		out.LEDs = l
	}
	if e.Count < 0 {
		return out, fmt.Errorf("count %d is negative", e.Count)
	}
	return out, nil
}

// FromEntries builds Entry rows from table entries, for saving a staged
// table as a program.
func FromEntries(entries []pattern.Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, Entry{
			Trigger:     e.TriggerType.String(),
			Pattern:     e.PatternIndex,
			BitDepth:    e.BitDepth,
			LEDs:        e.LEDs.String(),
			Invert:      e.Invert,
			InsertBlack: e.InsertBlack,
			BufferSwap:  e.BufferSwap,
			TriggerOut:  e.TriggerOut,
		})
	}
	return out
}
