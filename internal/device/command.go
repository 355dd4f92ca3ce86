package device

import "fmt"

// Command is a DLPC350 command opcode (CMD2 in the high byte, CMD3 in the low).
type Command uint16

// Commands issued by this package.
const (
	CmdPowerControl     Command = 0x0200
	CmdVersion          Command = 0x0205
	CmdSoftwareReset    Command = 0x0802
	CmdLEDCurrent       Command = 0x0B01
	CmdFlipLong         Command = 0x1008
	CmdFlipShort        Command = 0x1009
	CmdTestPattern      Command = 0x1203
	CmdInputSource      Command = 0x1A00
	CmdLEDEnable        Command = 0x1A07
	CmdHardwareStatus   Command = 0x1A0A
	CmdSystemStatus     Command = 0x1A0B
	CmdMainStatus       Command = 0x1A0C
	CmdValidateLUT      Command = 0x1A1A
	CmdDisplayMode      Command = 0x1A1B
	CmdPatternSource    Command = 0x1A22
	CmdTriggerMode      Command = 0x1A23
	CmdPatternStartStop Command = 0x1A24
	CmdExposureFrame    Command = 0x1A29
	CmdPatternConfig    Command = 0x1A31
	CmdMailboxAddress   Command = 0x1A32
	CmdMailboxControl   Command = 0x1A33
	CmdMailboxData      Command = 0x1A34
)

var commandNames = map[Command]string{
	CmdPowerControl:     "power_control",
	CmdVersion:          "version",
	CmdSoftwareReset:    "software_reset",
	CmdLEDCurrent:       "led_current",
	CmdFlipLong:         "flip_long",
	CmdFlipShort:        "flip_short",
	CmdTestPattern:      "test_pattern",
	CmdInputSource:      "input_source",
	CmdLEDEnable:        "led_enable",
	CmdHardwareStatus:   "hardware_status",
	CmdSystemStatus:     "system_status",
	CmdMainStatus:       "main_status",
	CmdValidateLUT:      "validate_lut",
	CmdDisplayMode:      "display_mode",
	CmdPatternSource:    "pattern_source",
	CmdTriggerMode:      "trigger_mode",
	CmdPatternStartStop: "pattern_start_stop",
	CmdExposureFrame:    "exposure_frame",
	CmdPatternConfig:    "pattern_config",
	CmdMailboxAddress:   "mailbox_address",
	CmdMailboxControl:   "mailbox_control",
	CmdMailboxData:      "mailbox_data",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("cmd_%04x", uint16(c))
}

// DisplayMode selects between video and pattern display.
type DisplayMode uint32

// Display modes.
const (
	DisplayModeVideo   DisplayMode = 0
	DisplayModePattern DisplayMode = 1
)

func (m DisplayMode) String() string {
	if m == DisplayModePattern {
		return "pattern"
	}
	return "video"
}

// ParseDisplayMode accepts "video" or "pattern".
func ParseDisplayMode(s string) (DisplayMode, error) {
	switch s {
	case "video":
		return DisplayModeVideo, nil
	case "pattern":
		return DisplayModePattern, nil
	default:
		return 0, fmt.Errorf("unknown display mode %q", s)
	}
}

// PatternSource is where pattern display data comes from.
type PatternSource uint32

// Pattern display data sources.
const (
	PatternSourceFlash     PatternSource = 0 // splash images in flash
	PatternSourceVideoPort PatternSource = 1 // streamed over RGB/FPD-link
)

func (s PatternSource) String() string {
	if s == PatternSourceFlash {
		return "flash"
	}
	return "video_port"
}

// ParsePatternSource accepts "flash" or "video_port".
func ParsePatternSource(s string) (PatternSource, error) {
	switch s {
	case "flash":
		return PatternSourceFlash, nil
	case "video_port", "video":
		return PatternSourceVideoPort, nil
	default:
		return 0, fmt.Errorf("unknown pattern source %q", s)
	}
}

// TriggerMode is the pattern trigger mode.
type TriggerMode uint32

// Pattern trigger modes.
const (
	TriggerModeVSync              TriggerMode = 0
	TriggerModeInternalOrExternal TriggerMode = 1
)

func (m TriggerMode) String() string {
	if m == TriggerModeInternalOrExternal {
		return "internal_or_external"
	}
	return "vsync"
}

// PlaybackAction is the argument to the pattern start/stop command.
type PlaybackAction uint32

// Playback actions.
const (
	PlaybackStop  PlaybackAction = 0
	PlaybackPause PlaybackAction = 1
	PlaybackStart PlaybackAction = 2
)

func (a PlaybackAction) String() string {
	switch a {
	case PlaybackStop:
		return "stop"
	case PlaybackPause:
		return "pause"
	case PlaybackStart:
		return "start"
	default:
		return fmt.Sprintf("action(%d)", uint32(a))
	}
}

// InputSource is the video input interface.
type InputSource uint32

// Input sources.
const (
	InputParallel    InputSource = 0
	InputTestPattern InputSource = 1
	InputFlash       InputSource = 2
	InputFPDLink     InputSource = 3
)

// PortWidth is the parallel interface bit depth selector.
type PortWidth uint32

// Parallel port widths.
const (
	PortWidth30 PortWidth = 0
	PortWidth24 PortWidth = 1
	PortWidth20 PortWidth = 2
	PortWidth16 PortWidth = 3
	PortWidth10 PortWidth = 4
	PortWidth8  PortWidth = 5
)

// TestPattern selects the internal test pattern generator output.
type TestPattern uint32

// Internal test patterns.
const (
	TestPatternSolidField TestPattern = iota
	TestPatternHorizontalRamp
	TestPatternVerticalRamp
	TestPatternHorizontalLines
	TestPatternDiagonalLines
	TestPatternVerticalLines
	TestPatternGrid
	TestPatternCheckerboard
	TestPatternRGBRamp
	TestPatternColorBars
	TestPatternStepBars
)

// Mailbox selectors for CmdMailboxControl.
const (
	mailboxClose      uint32 = 0
	mailboxSplashLUT  uint32 = 1
	mailboxPatternLUT uint32 = 2
)

var inputSourceNames = map[InputSource]string{
	InputParallel:    "parallel",
	InputTestPattern: "test_pattern",
	InputFlash:       "flash",
	InputFPDLink:     "fpd_link",
}

func (s InputSource) String() string {
	if name, ok := inputSourceNames[s]; ok {
		return name
	}
	return fmt.Sprintf("input(%d)", uint32(s))
}

// ParseInputSource converts an input source name back to its value.
func ParseInputSource(name string) (InputSource, error) {
	for s, n := range inputSourceNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown input source %q", name)
}

var portWidthBits = map[PortWidth]int{
	PortWidth30: 30,
	PortWidth24: 24,
	PortWidth20: 20,
	PortWidth16: 16,
	PortWidth10: 10,
	PortWidth8:  8,
}

// Bits returns the bus width in bits.
func (w PortWidth) Bits() int {
	return portWidthBits[w]
}

// PortWidthFromBits selects the port width for a bus of the given bits.
func PortWidthFromBits(bits int) (PortWidth, error) {
	for w, b := range portWidthBits {
		if b == bits {
			return w, nil
		}
	}
	return 0, fmt.Errorf("unsupported port width %d bits", bits)
}

var testPatternNames = map[TestPattern]string{
	TestPatternSolidField:      "solid_field",
	TestPatternHorizontalRamp:  "horizontal_ramp",
	TestPatternVerticalRamp:    "vertical_ramp",
	TestPatternHorizontalLines: "horizontal_lines",
	TestPatternDiagonalLines:   "diagonal_lines",
	TestPatternVerticalLines:   "vertical_lines",
	TestPatternGrid:            "grid",
	TestPatternCheckerboard:    "checkerboard",
	TestPatternRGBRamp:         "rgb_ramp",
	TestPatternColorBars:       "color_bars",
	TestPatternStepBars:        "step_bars",
}

func (p TestPattern) String() string {
	if name, ok := testPatternNames[p]; ok {
		return name
	}
	return fmt.Sprintf("test_pattern(%d)", uint32(p))
}

// ParseTestPattern converts a test pattern name back to its value.
func ParseTestPattern(name string) (TestPattern, error) {
	for p, n := range testPatternNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown test pattern %q", name)
}
