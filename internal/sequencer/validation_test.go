package sequencer

import (
	"errors"
	"strings"
	"testing"
)

func TestValidationStatusDecode(t *testing.T) {
	tests := []struct {
		status   ValidationStatus
		want     Diagnostic
		advisory bool
	}{
		{0x00, DiagnosticSuccess, false},
		{0x01, DiagnosticTimingInvalid, false},
		{0x02, DiagnosticPatternNumberInvalid, false},
		{0x04, DiagnosticTriggerOutOverlap, true},
		{0x08, DiagnosticPostVectorMissing, true},
		{0x10, DiagnosticFrameExposureMargin, true},
		{0x03, DiagnosticTimingInvalid, false},
		{0x06, DiagnosticPatternNumberInvalid, false},
		{0x1C, DiagnosticTriggerOutOverlap, true},
		{0x1F, DiagnosticTimingInvalid, false},
		{0x20, DiagnosticSuccess, false},
		{0xE8, DiagnosticPostVectorMissing, true},
	}

	for _, tt := range tests {
		got := tt.status.Decode()
		if got != tt.want {
			t.Errorf("ValidationStatus(%#x).Decode() = %v, want %v", uint32(tt.status), got, tt.want)
		}
		if got.Advisory() != tt.advisory {
			t.Errorf("%v.Advisory() = %v, want %v", got, got.Advisory(), tt.advisory)
		}
	}
}

func TestValidationStatusDecodeTotal(t *testing.T) {
	for s := ValidationStatus(0); s < 0x100; s++ {
		d := s.Decode()
		if d < DiagnosticSuccess || d > DiagnosticFrameExposureMargin {
			t.Fatalf("Decode(%#x) = %d, outside the defined diagnostics", uint32(s), d)
		}
		if (d == DiagnosticSuccess) != s.OK() {
			t.Fatalf("Decode(%#x) = %v but OK() = %v", uint32(s), d, s.OK())
		}
		if strings.HasPrefix(d.String(), "diagnostic(") {
			t.Fatalf("Decode(%#x) has no name", uint32(s))
		}
	}
}

func TestValidationStatusDiagnostics(t *testing.T) {
	got := ValidationStatus(0x15).Diagnostics()
	want := []Diagnostic{DiagnosticTimingInvalid, DiagnosticTriggerOutOverlap, DiagnosticFrameExposureMargin}
	if len(got) != len(want) {
		t.Fatalf("Diagnostics() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Diagnostics()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if got := ValidationStatus(0).Diagnostics(); len(got) != 1 || got[0] != DiagnosticSuccess {
		t.Errorf("Diagnostics() of zero = %v, want [success]", got)
	}
}

func TestTimingValidate(t *testing.T) {
	tests := []struct {
		timing  TimingConfig
		wantErr bool
	}{
		{TimingConfig{ExposureMicros: 10000, FrameMicros: 10000}, false},
		{TimingConfig{ExposureMicros: 10000, FrameMicros: 10230}, false},
		{TimingConfig{ExposureMicros: 10000, FrameMicros: 10229}, true},
		{TimingConfig{ExposureMicros: 10000, FrameMicros: 10001}, true},
		{TimingConfig{ExposureMicros: 10001, FrameMicros: 10000}, true},
		{TimingConfig{ExposureMicros: 0, FrameMicros: 0}, true},
		{TimingConfig{ExposureMicros: 235, FrameMicros: 100000}, false},
	}

	for _, tt := range tests {
		err := tt.timing.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%+v.Validate() error = %v, wantErr %v", tt.timing, err, tt.wantErr)
		}
	}
}

func TestErrorMatching(t *testing.T) {
	err := error(&Error{Kind: KindInvalidState, Op: "set_config", Message: "not permitted while running"})

	if !errors.Is(err, ErrInvalidState) {
		t.Error("errors.Is(InvalidState) = false")
	}
	if errors.Is(err, ErrInvalidConfig) {
		t.Error("errors.Is(InvalidConfig) = true for an InvalidState error")
	}
	if KindOf(err) != KindInvalidState {
		t.Errorf("KindOf() = %q, want %q", KindOf(err), KindInvalidState)
	}
	if got := err.Error(); got != "set_config: invalid_state: not permitted while running" {
		t.Errorf("Error() = %q", got)
	}
}

func TestParseTriggerMode(t *testing.T) {
	if m, err := ParseTriggerMode("vsync"); err != nil || m != TriggerVSync {
		t.Errorf("ParseTriggerMode(vsync) = %v, %v", m, err)
	}
	if m, err := ParseTriggerMode("internal_or_external"); err != nil || m != TriggerInternalOrExternal {
		t.Errorf("ParseTriggerMode(internal_or_external) = %v, %v", m, err)
	}
	if _, err := ParseTriggerMode("hsync"); err == nil {
		t.Error("ParseTriggerMode(hsync) should fail")
	}
}
