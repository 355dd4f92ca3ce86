package sequencer

import "fmt"

// ValidationStatus is the five bit result of a device validation.
type ValidationStatus uint32

// Validation status bits.
const (
	StatusTimingInvalid        ValidationStatus = 0x01
	StatusPatternNumberInvalid ValidationStatus = 0x02
	StatusTriggerOutOverlap    ValidationStatus = 0x04
	StatusPostVectorMissing    ValidationStatus = 0x08
	StatusFrameExposureMargin  ValidationStatus = 0x10

	statusMask ValidationStatus = 0x1F
)

// Diagnostic is the decoded meaning of a validation status.
type Diagnostic int

// Diagnostics in decode priority order.
const (
	DiagnosticSuccess Diagnostic = iota
	DiagnosticTimingInvalid
	DiagnosticPatternNumberInvalid
	DiagnosticTriggerOutOverlap
	DiagnosticPostVectorMissing
	DiagnosticFrameExposureMargin
)

var diagnosticNames = [...]string{
	DiagnosticSuccess:              "success",
	DiagnosticTimingInvalid:        "timing_invalid",
	DiagnosticPatternNumberInvalid: "pattern_number_invalid",
	DiagnosticTriggerOutOverlap:    "trigger_out_overlap",
	DiagnosticPostVectorMissing:    "post_vector_missing",
	DiagnosticFrameExposureMargin:  "frame_exposure_margin",
}

var diagnosticMessages = [...]string{
	DiagnosticSuccess:              "Configuration is valid.",
	DiagnosticTimingInvalid:        "Selected exposure or frame period settings are invalid.",
	DiagnosticPatternNumberInvalid: "Pattern numbers in the LUT are invalid.",
	DiagnosticTriggerOutOverlap:    "Continuous Trigger Out1 request or overlapping black sectors.",
	DiagnosticPostVectorMissing:    "Post vector was not inserted prior to an externally triggered vector.",
	DiagnosticFrameExposureMargin:  "Frame period and exposure differ by less than 230 microseconds.",
}

func (d Diagnostic) String() string {
	if d >= 0 && int(d) < len(diagnosticNames) {
		return diagnosticNames[d]
	}
	return fmt.Sprintf("diagnostic(%d)", int(d))
}

// Message returns a human readable explanation.
func (d Diagnostic) Message() string {
	if d >= 0 && int(d) < len(diagnosticMessages) {
		return diagnosticMessages[d]
	}
	return d.String()
}

// Advisory reports whether the diagnostic is a warning rather than an
// invalid setting. Advisories still block Start until resolved.
func (d Diagnostic) Advisory() bool {
	return d >= DiagnosticTriggerOutOverlap
}

// OK reports whether no status bit is set.
func (s ValidationStatus) OK() bool {
	return s&statusMask == 0
}

// Decode returns the diagnostic for the lowest set bit. Bits above the
// five defined ones are ignored.
func (s ValidationStatus) Decode() Diagnostic {
	s &= statusMask
	for i, d := 0, DiagnosticTimingInvalid; i < 5; i, d = i+1, d+1 {
		if s&(1<<i) != 0 {
			return d
		}
	}
	return DiagnosticSuccess
}

// Diagnostics returns one diagnostic per set bit in priority order, or
// just DiagnosticSuccess.
func (s ValidationStatus) Diagnostics() []Diagnostic {
	s &= statusMask
	if s == 0 {
		return []Diagnostic{DiagnosticSuccess}
	}
	var out []Diagnostic
	for i, d := 0, DiagnosticTimingInvalid; i < 5; i, d = i+1, d+1 {
		if s&(1<<i) != 0 {
			out = append(out, d)
		}
	}
	return out
}
