package events

// Event type constants for kelindar/event.
const (
	TypeSequencerStateChanged uint32 = iota + 1
	TypeTableSent
	TypeValidationCompleted
	TypeCommandFailed
	TypeProgramApplied
	TypeLEDChanged
	TypeDeviceMetrics
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SequencerStateChangedEvent is published on every sequencer state transition.
// Used for LED control and other reactive subsystems.
type SequencerStateChangedEvent struct {
	From      string `json:"from" example:"stopped" doc:"Previous sequencer state"`
	To        string `json:"to" example:"running" doc:"New sequencer state"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SequencerStateChangedEvent.
func (e SequencerStateChangedEvent) Type() uint32 { return TypeSequencerStateChanged }

// TableSentEvent is published after the pattern table was written to the device.
type TableSentEvent struct {
	Entries   int    `json:"entries" example:"24" doc:"Number of LUT entries written"`
	Bytes     int    `json:"bytes" example:"72" doc:"Encoded LUT size in bytes"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for TableSentEvent.
func (e TableSentEvent) Type() uint32 { return TypeTableSent }

// ValidationCompletedEvent carries the decoded result of a device validation.
type ValidationCompletedEvent struct {
	Status     uint32 `json:"status" example:"0" doc:"Raw five bit validation status"`
	Diagnostic string `json:"diagnostic" example:"success" doc:"Highest priority diagnostic"`
	Advisory   bool   `json:"advisory" example:"false" doc:"Whether the diagnostic is a warning"`
	Success    bool   `json:"success" example:"true" doc:"Whether Start is now permitted"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ValidationCompletedEvent.
func (e ValidationCompletedEvent) Type() uint32 { return TypeValidationCompleted }

// CommandFailedEvent is published when a sequencer operation fails on the device.
type CommandFailedEvent struct {
	Operation string `json:"operation" example:"start" doc:"Sequencer operation"`
	Command   string `json:"command" example:"pattern_start_stop" doc:"Device command that failed"`
	Kind      string `json:"kind" example:"device_rejected" doc:"Error kind"`
	Error     string `json:"error" doc:"Error description"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CommandFailedEvent.
func (e CommandFailedEvent) Type() uint32 { return TypeCommandFailed }

// ProgramAppliedEvent is published after a sequence program was applied,
// including reloads triggered by the file watcher.
type ProgramAppliedEvent struct {
	Path       string `json:"path" example:"/etc/lcrnode/program.toml" doc:"Program file"`
	Name       string `json:"name" example:"red-planes" doc:"Program name"`
	Entries    int    `json:"entries" example:"24" doc:"Number of LUT entries"`
	Started    bool   `json:"started" example:"true" doc:"Whether the sequence was started"`
	Diagnostic string `json:"diagnostic,omitempty" example:"success" doc:"Validation diagnostic"`
	Error      string `json:"error,omitempty" doc:"Error description when applying failed"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ProgramAppliedEvent.
func (e ProgramAppliedEvent) Type() uint32 { return TypeProgramApplied }

// LEDChangedEvent is published when the illumination LED settings change.
type LEDChangedEvent struct {
	SequencerControlled bool    `json:"sequencer_controlled" doc:"LEDs driven by the pattern sequencer"`
	Red                 bool    `json:"red"`
	Green               bool    `json:"green"`
	Blue                bool    `json:"blue"`
	RedCurrent          float64 `json:"red_current" example:"0.5" doc:"Red drive level 0..1"`
	GreenCurrent        float64 `json:"green_current" example:"0.5" doc:"Green drive level 0..1"`
	BlueCurrent         float64 `json:"blue_current" example:"0.5" doc:"Blue drive level 0..1"`
	Timestamp           string  `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for LEDChangedEvent.
func (e LEDChangedEvent) Type() uint32 { return TypeLEDChanged }

// DeviceMetricsEvent is a periodic snapshot of device command counters.
type DeviceMetricsEvent struct {
	EventType      string `json:"type"`
	Connected      bool   `json:"connected"`
	CommandsOK     string `json:"commands_ok"`
	CommandsFailed string `json:"commands_failed"`
	Validations    string `json:"validations"`
	State          string `json:"state"`
}

// Type returns the event type identifier for DeviceMetricsEvent.
func (e DeviceMetricsEvent) Type() uint32 { return TypeDeviceMetrics }
