package device

import (
	"context"
	"testing"

	"github.com/smazurov/lcrnode/internal/pattern"
)

// loadSequence writes entries and a matching pattern config to the simulator
// through a session and returns the session.
func loadSequence(t *testing.T, sim *Simulator, entries []pattern.Entry, exposure, frame uint32, mode TriggerMode) *Session {
	t.Helper()
	ctx := context.Background()
	s := NewSession(sim, nil)
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	steps := []func() error{
		func() error { return s.SetDisplayMode(ctx, DisplayModePattern) },
		func() error { return s.WritePatternLUT(ctx, pattern.EncodeEntries(entries)) },
		func() error {
			return s.SetPatternConfig(ctx, PatternConfig{
				NumLUTEntries:          uint32(len(entries)),
				Repeat:                 true,
				NumPatternsForTrigOut2: 1,
			})
		},
		func() error { return s.SetExposureFrame(ctx, exposure, frame) },
		func() error { return s.SetTriggerMode(ctx, mode) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d error = %v", i, err)
		}
	}
	return s
}

func TestSimulatorValidationBits(t *testing.T) {
	oneBit := func(idx uint8) pattern.Entry {
		return pattern.Entry{TriggerType: pattern.TriggerInternal, PatternIndex: idx, BitDepth: 1, LEDs: pattern.LEDRed}
	}

	tests := []struct {
		name     string
		entries  []pattern.Entry
		exposure uint32
		frame    uint32
		mode     TriggerMode
		want     uint32
	}{
		{
			name:     "valid",
			entries:  []pattern.Entry{oneBit(0), oneBit(1)},
			exposure: 10000, frame: 10000,
			want: 0,
		},
		{
			name:     "exposure below bit depth minimum",
			entries:  []pattern.Entry{{BitDepth: 8, PatternIndex: 0, LEDs: pattern.LEDWhite}},
			exposure: 5000, frame: 5000,
			want: simBitTiming,
		},
		{
			name:     "exposure exceeds frame",
			entries:  []pattern.Entry{oneBit(0)},
			exposure: 10000, frame: 9000,
			want: simBitTiming,
		},
		{
			name:     "small frame margin",
			entries:  []pattern.Entry{oneBit(0)},
			exposure: 10000, frame: 10100,
			want: simBitFrameMargin,
		},
		{
			name:     "trigger out on first entry",
			entries:  []pattern.Entry{{BitDepth: 1, TriggerOut: true}},
			exposure: 10000, frame: 10000,
			want: simBitTrigOut,
		},
		{
			name: "trigger out after black",
			entries: []pattern.Entry{
				{BitDepth: 1, InsertBlack: true},
				{BitDepth: 1, PatternIndex: 1, TriggerOut: true},
			},
			exposure: 10000, frame: 10000,
			want: simBitTrigOut,
		},
		{
			name: "external trigger without post vector",
			entries: []pattern.Entry{
				oneBit(0),
				{TriggerType: pattern.TriggerExternalPositive, BitDepth: 1, PatternIndex: 1},
			},
			exposure: 10000, frame: 10000,
			mode: TriggerModeInternalOrExternal,
			want: simBitPostVector,
		},
		{
			name: "external trigger with post vector",
			entries: []pattern.Entry{
				{BitDepth: 1, InsertBlack: true},
				{TriggerType: pattern.TriggerExternalPositive, BitDepth: 1, PatternIndex: 1},
			},
			exposure: 10000, frame: 10000,
			mode: TriggerModeInternalOrExternal,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := NewSimulator()
			s := loadSequence(t, sim, tt.entries, tt.exposure, tt.frame, tt.mode)

			got, err := s.ValidateLUT(context.Background())
			if err != nil {
				t.Fatalf("ValidateLUT() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ValidateLUT() = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestSimulatorValidationWithoutTable(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulator()
	s := NewSession(sim, nil)
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	got, err := s.ValidateLUT(ctx)
	if err != nil {
		t.Fatalf("ValidateLUT() error = %v", err)
	}
	if got&simBitPatternNum == 0 {
		t.Errorf("ValidateLUT() = %#x, want pattern number bit", got)
	}
}

func TestSimulatorStartNeedsValidation(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulator()
	s := loadSequence(t, sim, []pattern.Entry{{BitDepth: 1}}, 10000, 10000, TriggerModeVSync)

	if err := s.PatternDisplay(ctx, PlaybackStart); err == nil {
		t.Fatal("start before validation should be rejected")
	}
	if _, err := s.ValidateLUT(ctx); err != nil {
		t.Fatalf("ValidateLUT() error = %v", err)
	}
	if err := s.PatternDisplay(ctx, PlaybackStart); err != nil {
		t.Fatalf("start error = %v", err)
	}

	// Sequence settings cannot change while running.
	if err := s.SetExposureFrame(ctx, 5000, 5000); err == nil {
		t.Error("SetExposureFrame() while running should be rejected")
	}
	if err := s.PatternDisplay(ctx, PlaybackStop); err != nil {
		t.Fatalf("stop error = %v", err)
	}
	if err := s.SetExposureFrame(ctx, 5000, 5000); err != nil {
		t.Errorf("SetExposureFrame() after stop error = %v", err)
	}
}

func TestSimulatorAdvanceNonRepeating(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulator()
	entries := []pattern.Entry{{BitDepth: 1}, {BitDepth: 1, PatternIndex: 1}, {BitDepth: 1, PatternIndex: 2}}
	s := loadSequence(t, sim, entries, 10000, 10000, TriggerModeVSync)
	if err := s.SetPatternConfig(ctx, PatternConfig{NumLUTEntries: 3, NumPatternsForTrigOut2: 1}); err != nil {
		t.Fatalf("SetPatternConfig() error = %v", err)
	}
	if _, err := s.ValidateLUT(ctx); err != nil {
		t.Fatalf("ValidateLUT() error = %v", err)
	}
	if err := s.PatternDisplay(ctx, PlaybackStart); err != nil {
		t.Fatalf("start error = %v", err)
	}

	sim.Advance(2)
	if sim.Position() != 2 || sim.Playback() != PlaybackStart {
		t.Errorf("after 2: position %d playback %v", sim.Position(), sim.Playback())
	}
	sim.Advance(1)
	if sim.Playback() != PlaybackStop {
		t.Errorf("playback = %v after last entry, want stop", sim.Playback())
	}
}

func TestSimulatorSoftwareReset(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulator()
	s := loadSequence(t, sim, []pattern.Entry{{BitDepth: 1}}, 10000, 10000, TriggerModeVSync)

	if err := s.SoftwareReset(ctx); err != nil {
		t.Fatalf("SoftwareReset() error = %v", err)
	}
	if mode, _ := s.DisplayMode(ctx); mode != DisplayModeVideo {
		t.Errorf("DisplayMode() after reset = %v, want video", mode)
	}
	if sim.LoadedEntries() != 0 {
		t.Errorf("LoadedEntries() after reset = %d, want 0", sim.LoadedEntries())
	}
	if !s.Connected() {
		t.Error("session disconnected by reset")
	}
}

func TestSimulatorReadOnlyRegisters(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulator()
	s := NewSession(sim, nil)
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := s.write(ctx, CmdVersion, 1, 2, 3, 4); err == nil {
		t.Error("writing the version register should be rejected")
	}
	if err := s.write(ctx, CmdPatternConfig, 1); err == nil {
		t.Error("writing the wrong number of arguments should be rejected")
	}
}
