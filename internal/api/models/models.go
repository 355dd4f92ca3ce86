// Package models holds the request and response bodies of the REST API.
package models

import (
	"github.com/smazurov/lcrnode/internal/led"
	"github.com/smazurov/lcrnode/internal/pattern"
	"github.com/smazurov/lcrnode/internal/program"
	"github.com/smazurov/lcrnode/internal/sequencer"
)

// Health check models
type HealthData struct {
	Status    string `json:"status" example:"ok" doc:"Service status"`
	Message   string `json:"message" example:"API is healthy" doc:"Status message"`
	Connected bool   `json:"connected" doc:"Whether the controller link is up"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Name      string `json:"name" example:"lcrnode" doc:"Program name"`
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15 14:30" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go compiler version"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Device models
type FirmwareData struct {
	Application    string `json:"application" example:"2.0.0" doc:"Main application revision"`
	API            string `json:"api" example:"1.1.0" doc:"API software revision"`
	SoftwareConfig string `json:"software_config" example:"0.1.0" doc:"Software configuration revision"`
	SequenceConfig string `json:"sequence_config" example:"0.1.0" doc:"Sequence configuration revision"`
}

type DeviceStatusData struct {
	Hardware        uint8 `json:"hardware" example:"1" doc:"Hardware status register"`
	System          uint8 `json:"system" example:"1" doc:"System status register"`
	Main            uint8 `json:"main" example:"2" doc:"Main status register"`
	SequencerActive bool  `json:"sequencer_active" doc:"Sequencer running on the device"`
}

type DeviceData struct {
	Connected bool             `json:"connected" doc:"Whether the controller link is up"`
	Driver    string           `json:"driver" example:"sim" doc:"Link driver"`
	Firmware  FirmwareData     `json:"firmware" doc:"Firmware revisions"`
	Status    DeviceStatusData `json:"status" doc:"Status registers"`
	Standby   bool             `json:"standby" doc:"Device in standby"`
}

type DeviceResponse struct {
	Body DeviceData
}

type StandbyRequest struct {
	Body struct {
		Standby bool `json:"standby" doc:"Enter (true) or leave (false) standby"`
	}
}

type ImageOrientationData struct {
	LongAxisFlip  bool `json:"long_axis_flip" doc:"Flip the image along the long axis"`
	ShortAxisFlip bool `json:"short_axis_flip" doc:"Flip the image along the short axis"`
}

type ImageOrientationRequest struct {
	Body ImageOrientationData
}

type ImageOrientationResponse struct {
	Body ImageOrientationData
}

type InputSourceData struct {
	Source    string `json:"source" enum:"parallel,test_pattern,flash,fpd_link" example:"parallel" doc:"Video input source"`
	PortWidth int    `json:"port_width,omitempty" enum:"0,8,10,16,20,24,30" example:"24" doc:"Parallel bus width in bits"`
}

type InputSourceRequest struct {
	Body InputSourceData
}

type InputSourceResponse struct {
	Body InputSourceData
}

type TestPatternData struct {
	Pattern string `json:"pattern" example:"checkerboard" doc:"Internal test pattern"`
}

type TestPatternRequest struct {
	Body TestPatternData
}

type TestPatternResponse struct {
	Body TestPatternData
}

// Sequencer models

// SequenceConfigData is the sequence configuration as sent and returned by
// the API. Omitted fields fall back to the same defaults a program file uses.
type SequenceConfigData struct {
	NumEntries             uint32 `json:"num_entries" required:"false" example:"24" doc:"LUT entries to play; 0 or omitted plays the whole staged table"`
	Repeat                 bool   `json:"repeat" required:"false" example:"true" doc:"Loop the sequence"`
	NumPatternsForTrigOut2 uint32 `json:"num_patterns_for_trig_out2" required:"false" default:"1" maximum:"256" example:"1" doc:"Patterns between TRIG_OUT_2 pulses"`
	NumSplashEntries       uint32 `json:"num_splash_entries" required:"false" maximum:"64" example:"0" doc:"Splash LUT entries (flash source only)"`
}

// SequenceConfigDataFrom converts a controller configuration.
func SequenceConfigDataFrom(c sequencer.SequenceConfig) SequenceConfigData {
	return SequenceConfigData{
		NumEntries:             c.NumEntries,
		Repeat:                 c.Repeat,
		NumPatternsForTrigOut2: c.NumPatternsForTrigOut2,
		NumSplashEntries:       c.NumSplashEntries,
	}
}

// Config returns the controller configuration. staged replaces a zero
// entry count and a zero trigger-out count becomes 1.
func (d SequenceConfigData) Config(staged int) sequencer.SequenceConfig {
	c := sequencer.SequenceConfig{
		NumEntries:             d.NumEntries,
		Repeat:                 d.Repeat,
		NumPatternsForTrigOut2: d.NumPatternsForTrigOut2,
		NumSplashEntries:       d.NumSplashEntries,
	}
	if c.NumEntries == 0 {
		c.NumEntries = uint32(staged)
	}
	if c.NumPatternsForTrigOut2 == 0 {
		c.NumPatternsForTrigOut2 = 1
	}
	return c
}

type TimingData struct {
	ExposureMicros uint32 `json:"exposure_us" minimum:"1" example:"10000" doc:"Pattern exposure period in microseconds"`
	FrameMicros    uint32 `json:"frame_us" minimum:"1" example:"10000" doc:"Pattern frame period in microseconds"`
}

func (d TimingData) Timing() sequencer.TimingConfig {
	return sequencer.TimingConfig{ExposureMicros: d.ExposureMicros, FrameMicros: d.FrameMicros}
}

type SequencerData struct {
	State          string             `json:"state" enum:"stopped,paused,running" example:"running" doc:"Sequencer state"`
	DisplayMode    string             `json:"display_mode" example:"pattern" doc:"Display mode"`
	PatternSource  string             `json:"pattern_source" example:"video_port" doc:"Pattern data source"`
	TriggerMode    string             `json:"trigger_mode" example:"vsync" doc:"Trigger mode"`
	Entries        int                `json:"entries" example:"24" doc:"Staged table entries"`
	Capacity       int                `json:"capacity" example:"128" doc:"Table capacity"`
	TableSent      bool               `json:"table_sent" doc:"Staged table matches the device"`
	Validated      bool               `json:"validated" doc:"Start from stopped is permitted"`
	Config         SequenceConfigData `json:"config" doc:"Sequence configuration"`
	Timing         TimingData         `json:"timing" doc:"Timing configuration"`
	LastValidation *uint32            `json:"last_validation,omitempty" doc:"Most recent validation status"`
}

// SequencerDataFrom converts a controller snapshot.
func SequencerDataFrom(s sequencer.Snapshot) SequencerData {
	return SequencerData{
		State:          s.State,
		DisplayMode:    s.DisplayMode,
		PatternSource:  s.PatternSource,
		TriggerMode:    s.TriggerMode,
		Entries:        s.Entries,
		Capacity:       s.Capacity,
		TableSent:      s.TableSent,
		Validated:      s.Validated,
		Config:         SequenceConfigDataFrom(s.Config),
		Timing:         TimingData{ExposureMicros: s.Timing.ExposureMicros, FrameMicros: s.Timing.FrameMicros},
		LastValidation: s.LastValidation,
	}
}

type SequencerResponse struct {
	Body SequencerData
}

type DeviceSettingsData struct {
	DisplayMode   string             `json:"display_mode" example:"pattern" doc:"Display mode reported by the device"`
	PatternSource string             `json:"pattern_source" example:"video_port" doc:"Pattern data source"`
	TriggerMode   string             `json:"trigger_mode" example:"vsync" doc:"Trigger mode"`
	Config        SequenceConfigData `json:"config" doc:"Sequence configuration"`
	Timing        TimingData         `json:"timing" doc:"Timing configuration"`
	Running       bool               `json:"running" doc:"Device is playing the sequence"`
}

func DeviceSettingsDataFrom(d sequencer.DeviceSettings) DeviceSettingsData {
	return DeviceSettingsData{
		DisplayMode:   d.DisplayMode,
		PatternSource: d.PatternSource,
		TriggerMode:   d.TriggerMode,
		Config:        SequenceConfigDataFrom(d.Config),
		Timing:        TimingData{ExposureMicros: d.Timing.ExposureMicros, FrameMicros: d.Timing.FrameMicros},
		Running:       d.Running,
	}
}

type DeviceSettingsResponse struct {
	Body DeviceSettingsData
}

type DisplayModeRequest struct {
	Body struct {
		Mode string `json:"mode" enum:"video,pattern" example:"pattern" doc:"Display mode"`
	}
}

type PatternSourceRequest struct {
	Body struct {
		Source string `json:"source" enum:"flash,video_port" example:"video_port" doc:"Pattern data source"`
	}
}

type TriggerModeRequest struct {
	Body struct {
		Mode string `json:"mode" enum:"vsync,internal_or_external" example:"vsync" doc:"Trigger mode"`
	}
}

type SequenceConfigRequest struct {
	Body SequenceConfigData
}

type TimingRequest struct {
	Body TimingData
}

type ValidationData struct {
	OK          bool     `json:"ok" doc:"Start is permitted"`
	Status      uint32   `json:"status" example:"0" doc:"Raw validation status bits"`
	Diagnostic  string   `json:"diagnostic" example:"success" doc:"Highest-precedence diagnostic"`
	Message     string   `json:"message" example:"configuration is valid" doc:"Diagnostic description"`
	Advisory    bool     `json:"advisory" doc:"Diagnostic is a warning rather than an error"`
	Diagnostics []string `json:"diagnostics" doc:"Every diagnostic whose bit is set"`
}

type ValidationResponse struct {
	Body ValidationData
}

// Pattern table models
type EntryData struct {
	Index        int    `json:"index" example:"0" doc:"Position in the table"`
	TriggerType  string `json:"trigger_type" enum:"internal,external_positive,external_negative,none" example:"internal" doc:"What advances to this entry"`
	PatternIndex uint8  `json:"pattern_index" maximum:"63" example:"0" doc:"Pattern number within the image"`
	BitDepth     uint8  `json:"bit_depth" minimum:"1" maximum:"8" example:"1" doc:"Bits per pattern"`
	LEDs         string `json:"leds" enum:"none,red,green,blue,yellow,magenta,cyan,white" example:"red" doc:"LEDs lit during exposure"`
	Invert       bool   `json:"invert" doc:"Invert the pattern"`
	InsertBlack  bool   `json:"insert_black" doc:"Insert black after the exposure"`
	BufferSwap   bool   `json:"buffer_swap" doc:"Swap frame buffers before this entry"`
	TriggerOut   bool   `json:"trigger_out" doc:"Share TRIG_OUT with the previous entry"`
}

type EntryRequestData struct {
	TriggerType  string `json:"trigger_type,omitempty" enum:"internal,external_positive,external_negative,none" default:"internal" doc:"What advances to this entry"`
	PatternIndex uint8  `json:"pattern_index" maximum:"63" example:"0" doc:"Pattern number within the image"`
	BitDepth     uint8  `json:"bit_depth" minimum:"1" maximum:"8" example:"1" doc:"Bits per pattern"`
	LEDs         string `json:"leds,omitempty" enum:"none,red,green,blue,yellow,magenta,cyan,white" default:"none" doc:"LEDs lit during exposure"`
	Invert       bool   `json:"invert,omitempty" doc:"Invert the pattern"`
	InsertBlack  bool   `json:"insert_black,omitempty" doc:"Insert black after the exposure"`
	BufferSwap   bool   `json:"buffer_swap,omitempty" doc:"Swap frame buffers before this entry"`
	TriggerOut   bool   `json:"trigger_out,omitempty" doc:"Share TRIG_OUT with the previous entry"`
}

type EntryRequest struct {
	Body EntryRequestData
}

type EntryResponse struct {
	Body EntryData
}

type EntryIndexInput struct {
	Index int `path:"index" minimum:"0" doc:"Table index"`
}

type TableData struct {
	Entries  []EntryData `json:"entries" doc:"Table entries in order"`
	Count    int         `json:"count" example:"24" doc:"Number of entries"`
	Capacity int         `json:"capacity" example:"128" doc:"Table capacity"`
	Sent     bool        `json:"sent" doc:"Staged table matches the device"`
}

type TableResponse struct {
	Body TableData
}

// LED models
type LEDData struct {
	Enables   led.Enables  `json:"enables" doc:"Which LEDs are lit"`
	Currents  led.Currents `json:"currents" doc:"Drive levels, 0.0 to 1.0"`
	Available []string     `json:"available" doc:"LED colors this controller drives"`
}

type LEDResponse struct {
	Body LEDData
}

type LEDEnablesRequest struct {
	Body led.Enables
}

type LEDCurrentsRequest struct {
	Body led.Currents
}

// Program models
type ProgramRequest struct {
	Body program.Program
}

type ProgramResultResponse struct {
	Body program.Result
}

type ProgramResponse struct {
	Body program.Program
}

// Logging models
type LogLevelsData struct {
	Levels map[string]string `json:"levels" doc:"Level per module"`
}

type LogLevelsResponse struct {
	Body LogLevelsData
}

type LogLevelRequest struct {
	Module string `path:"module" doc:"Logger module"`
	Body   struct {
		Level string `json:"level" enum:"debug,info,warn,error" example:"debug" doc:"New level"`
	}
}

// EntryDataFrom converts a table entry for responses.
func EntryDataFrom(index int, e pattern.Entry) EntryData {
	return EntryData{
		Index:        index,
		TriggerType:  e.TriggerType.String(),
		PatternIndex: e.PatternIndex,
		BitDepth:     e.BitDepth,
		LEDs:         e.LEDs.String(),
		Invert:       e.Invert,
		InsertBlack:  e.InsertBlack,
		BufferSwap:   e.BufferSwap,
		TriggerOut:   e.TriggerOut,
	}
}
