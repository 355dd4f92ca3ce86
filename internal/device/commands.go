package device

import (
	"context"
	"fmt"
	"time"
)

// PatternConfig is the pattern display LUT control register set.
type PatternConfig struct {
	NumLUTEntries          uint32 `json:"num_lut_entries" toml:"num_lut_entries"`
	Repeat                 bool   `json:"repeat" toml:"repeat"`
	NumPatternsForTrigOut2 uint32 `json:"num_patterns_for_trig_out2" toml:"num_patterns_for_trig_out2"`
	NumSplashEntries       uint32 `json:"num_splash_entries" toml:"num_splash_entries"`
}

// LEDEnables selects which LEDs are on and whether the sequencer drives them.
type LEDEnables struct {
	SequencerControlled bool `json:"sequencer_controlled" toml:"sequencer_controlled"`
	Red                 bool `json:"red" toml:"red"`
	Green               bool `json:"green" toml:"green"`
	Blue                bool `json:"blue" toml:"blue"`
}

// LEDCurrents are the raw PWM drive levels, 0..255 each.
type LEDCurrents struct {
	Red   uint8 `json:"red" toml:"red"`
	Green uint8 `json:"green" toml:"green"`
	Blue  uint8 `json:"blue" toml:"blue"`
}

// Revision is one version triple reported by the controller.
type Revision struct {
	Major uint8  `json:"major"`
	Minor uint8  `json:"minor"`
	Patch uint16 `json:"patch"`
}

func (r Revision) String() string {
	return fmt.Sprintf("%d.%d.%d", r.Major, r.Minor, r.Patch)
}

// RevisionFromWord splits a packed version word.
func RevisionFromWord(w uint32) Revision {
	return Revision{
		Major: uint8(w >> 24),
		Minor: uint8(w >> 16),
		Patch: uint16(w),
	}
}

// VersionInfo is the firmware version block.
type VersionInfo struct {
	Application    Revision `json:"application"`
	API            Revision `json:"api"`
	SoftwareConfig Revision `json:"software_config"`
	SequenceConfig Revision `json:"sequence_config"`
}

// Status holds the raw status registers.
type Status struct {
	Hardware uint8 `json:"hardware"`
	System   uint8 `json:"system"`
	Main     uint8 `json:"main"`
}

// Status register bits.
const (
	HardwareInitDone    uint8 = 0x01
	SystemMemoryOK      uint8 = 0x01
	MainDMDParked       uint8 = 0x01
	MainSequencerActive uint8 = 0x02
	MainVideoFrozen     uint8 = 0x04
)

// SequencerActive reports whether the device sequencer is running.
func (st Status) SequencerActive() bool {
	return st.Main&MainSequencerActive != 0
}

// Validation status bits and the busy flag reported while validation runs.
const (
	ValidationStatusMask uint32 = 0x1F
	validationBusy       uint32 = 0x80
)

const validationPollInterval = 5 * time.Millisecond

func boolArg(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// SetDisplayMode switches between video and pattern display.
func (s *Session) SetDisplayMode(ctx context.Context, mode DisplayMode) error {
	return s.write(ctx, CmdDisplayMode, uint32(mode))
}

// DisplayMode reads the current display mode.
func (s *Session) DisplayMode(ctx context.Context) (DisplayMode, error) {
	v, err := s.read(ctx, CmdDisplayMode, 1)
	if err != nil {
		return 0, err
	}
	return DisplayMode(v[0]), nil
}

// SetPatternSource selects where pattern data comes from.
func (s *Session) SetPatternSource(ctx context.Context, src PatternSource) error {
	return s.write(ctx, CmdPatternSource, uint32(src))
}

// PatternSource reads the pattern data source.
func (s *Session) PatternSource(ctx context.Context) (PatternSource, error) {
	v, err := s.read(ctx, CmdPatternSource, 1)
	if err != nil {
		return 0, err
	}
	return PatternSource(v[0]), nil
}

// SetInputSource selects the video input. Width only applies to the
// parallel interface and is sent as zero otherwise.
func (s *Session) SetInputSource(ctx context.Context, src InputSource, width PortWidth) error {
	if src != InputParallel {
		width = 0
	}
	return s.write(ctx, CmdInputSource, uint32(src)|uint32(width)<<3)
}

// InputSource reads the video input and parallel port width.
func (s *Session) InputSource(ctx context.Context) (InputSource, PortWidth, error) {
	v, err := s.read(ctx, CmdInputSource, 1)
	if err != nil {
		return 0, 0, err
	}
	return InputSource(v[0] & 0x7), PortWidth((v[0] >> 3) & 0x7), nil
}

// SetTestPattern selects the internal test pattern generator output.
func (s *Session) SetTestPattern(ctx context.Context, tp TestPattern) error {
	return s.write(ctx, CmdTestPattern, uint32(tp))
}

// TestPattern reads the selected internal test pattern.
func (s *Session) TestPattern(ctx context.Context) (TestPattern, error) {
	v, err := s.read(ctx, CmdTestPattern, 1)
	if err != nil {
		return 0, err
	}
	return TestPattern(v[0]), nil
}

// SetLongAxisFlip flips the image along the long axis.
func (s *Session) SetLongAxisFlip(ctx context.Context, flip bool) error {
	return s.write(ctx, CmdFlipLong, boolArg(flip))
}

// SetShortAxisFlip flips the image along the short axis.
func (s *Session) SetShortAxisFlip(ctx context.Context, flip bool) error {
	return s.write(ctx, CmdFlipShort, boolArg(flip))
}

// LongAxisFlip reports whether the long axis flip is on.
func (s *Session) LongAxisFlip(ctx context.Context) (bool, error) {
	v, err := s.read(ctx, CmdFlipLong, 1)
	if err != nil {
		return false, err
	}
	return v[0] != 0, nil
}

// ShortAxisFlip reports whether the short axis flip is on.
func (s *Session) ShortAxisFlip(ctx context.Context) (bool, error) {
	v, err := s.read(ctx, CmdFlipShort, 1)
	if err != nil {
		return false, err
	}
	return v[0] != 0, nil
}

// Status reads the hardware, system and main status registers.
func (s *Session) Status(ctx context.Context) (Status, error) {
	hw, err := s.read(ctx, CmdHardwareStatus, 1)
	if err != nil {
		return Status{}, err
	}
	sys, err := s.read(ctx, CmdSystemStatus, 1)
	if err != nil {
		return Status{}, err
	}
	mainSt, err := s.read(ctx, CmdMainStatus, 1)
	if err != nil {
		return Status{}, err
	}
	return Status{Hardware: uint8(hw[0]), System: uint8(sys[0]), Main: uint8(mainSt[0])}, nil
}

// SetStandby puts the controller in standby or brings it back to normal.
func (s *Session) SetStandby(ctx context.Context, standby bool) error {
	return s.write(ctx, CmdPowerControl, boolArg(standby))
}

// Standby reports whether the controller is in standby.
func (s *Session) Standby(ctx context.Context) (bool, error) {
	v, err := s.read(ctx, CmdPowerControl, 1)
	if err != nil {
		return false, err
	}
	return v[0] != 0, nil
}

// SoftwareReset resets the controller. The link stays open.
func (s *Session) SoftwareReset(ctx context.Context) error {
	return s.write(ctx, CmdSoftwareReset, 1)
}

// Version reads the firmware version block.
func (s *Session) Version(ctx context.Context) (VersionInfo, error) {
	v, err := s.read(ctx, CmdVersion, 4)
	if err != nil {
		return VersionInfo{}, err
	}
	return VersionInfo{
		Application:    RevisionFromWord(v[0]),
		API:            RevisionFromWord(v[1]),
		SoftwareConfig: RevisionFromWord(v[2]),
		SequenceConfig: RevisionFromWord(v[3]),
	}, nil
}

// SetLEDEnables sets the LED enable register.
func (s *Session) SetLEDEnables(ctx context.Context, e LEDEnables) error {
	w := boolArg(e.Red) | boolArg(e.Green)<<1 | boolArg(e.Blue)<<2 | boolArg(e.SequencerControlled)<<3
	return s.write(ctx, CmdLEDEnable, w)
}

// LEDEnables reads the LED enable register.
func (s *Session) LEDEnables(ctx context.Context) (LEDEnables, error) {
	v, err := s.read(ctx, CmdLEDEnable, 1)
	if err != nil {
		return LEDEnables{}, err
	}
	return LEDEnables{
		Red:                 v[0]&0x1 != 0,
		Green:               v[0]&0x2 != 0,
		Blue:                v[0]&0x4 != 0,
		SequencerControlled: v[0]&0x8 != 0,
	}, nil
}

// SetLEDCurrents sets the LED drive levels.
func (s *Session) SetLEDCurrents(ctx context.Context, c LEDCurrents) error {
	return s.write(ctx, CmdLEDCurrent, uint32(c.Red), uint32(c.Green), uint32(c.Blue))
}

// LEDCurrents reads the LED drive levels.
func (s *Session) LEDCurrents(ctx context.Context) (LEDCurrents, error) {
	v, err := s.read(ctx, CmdLEDCurrent, 3)
	if err != nil {
		return LEDCurrents{}, err
	}
	return LEDCurrents{Red: uint8(v[0]), Green: uint8(v[1]), Blue: uint8(v[2])}, nil
}

// SetPatternConfig writes the LUT control registers.
func (s *Session) SetPatternConfig(ctx context.Context, cfg PatternConfig) error {
	return s.write(ctx, CmdPatternConfig,
		cfg.NumLUTEntries, boolArg(cfg.Repeat), cfg.NumPatternsForTrigOut2, cfg.NumSplashEntries)
}

// PatternConfig reads the LUT control registers.
func (s *Session) PatternConfig(ctx context.Context) (PatternConfig, error) {
	v, err := s.read(ctx, CmdPatternConfig, 4)
	if err != nil {
		return PatternConfig{}, err
	}
	return PatternConfig{
		NumLUTEntries:          v[0],
		Repeat:                 v[1] != 0,
		NumPatternsForTrigOut2: v[2],
		NumSplashEntries:       v[3],
	}, nil
}

// SetExposureFrame sets the pattern exposure and frame periods in microseconds.
func (s *Session) SetExposureFrame(ctx context.Context, exposureUs, frameUs uint32) error {
	return s.write(ctx, CmdExposureFrame, exposureUs, frameUs)
}

// ExposureFrame reads the exposure and frame periods in microseconds.
func (s *Session) ExposureFrame(ctx context.Context) (exposureUs, frameUs uint32, err error) {
	v, err := s.read(ctx, CmdExposureFrame, 2)
	if err != nil {
		return 0, 0, err
	}
	return v[0], v[1], nil
}

// SetTriggerMode sets the pattern trigger mode.
func (s *Session) SetTriggerMode(ctx context.Context, mode TriggerMode) error {
	return s.write(ctx, CmdTriggerMode, uint32(mode))
}

// TriggerMode reads the pattern trigger mode.
func (s *Session) TriggerMode(ctx context.Context) (TriggerMode, error) {
	v, err := s.read(ctx, CmdTriggerMode, 1)
	if err != nil {
		return 0, err
	}
	return TriggerMode(v[0]), nil
}

// PatternDisplay starts, pauses or stops the pattern sequence.
func (s *Session) PatternDisplay(ctx context.Context, action PlaybackAction) error {
	return s.write(ctx, CmdPatternStartStop, uint32(action))
}

// ValidateLUT asks the controller to check the pattern configuration and
// waits for the result. The returned status holds the five validation bits.
func (s *Session) ValidateLUT(ctx context.Context) (uint32, error) {
	if err := s.write(ctx, CmdValidateLUT); err != nil {
		return 0, err
	}

	for {
		v, err := s.read(ctx, CmdValidateLUT, 1)
		if err != nil {
			return 0, err
		}
		if v[0]&validationBusy == 0 {
			return v[0] & ValidationStatusMask, nil
		}

		select {
		case <-ctx.Done():
			return 0, newError(ErrCodeTransport, CmdValidateLUT, "validation did not complete", ctx.Err())
		case <-time.After(validationPollInterval):
		}
	}
}

// WritePatternLUT uploads encoded LUT words through the mailbox, starting at
// entry zero.
func (s *Session) WritePatternLUT(ctx context.Context, data []byte) error {
	if err := s.write(ctx, CmdMailboxControl, mailboxPatternLUT); err != nil {
		return err
	}
	if err := s.uploadMailbox(ctx, data); err != nil {
		// Leave the mailbox closed even when the upload failed.
		_ = s.write(ctx, CmdMailboxControl, mailboxClose)
		return err
	}
	return s.write(ctx, CmdMailboxControl, mailboxClose)
}

func (s *Session) uploadMailbox(ctx context.Context, data []byte) error {
	if err := s.write(ctx, CmdMailboxAddress, 0); err != nil {
		return err
	}
	_, err := s.exchange(ctx, Request{Command: CmdMailboxData, Data: data})
	return err
}

// ReadPatternLUT reads n encoded LUT words back from the mailbox.
func (s *Session) ReadPatternLUT(ctx context.Context, n int) ([]byte, error) {
	if err := s.write(ctx, CmdMailboxControl, mailboxPatternLUT); err != nil {
		return nil, err
	}
	data, err := s.downloadMailbox(ctx, n)
	if cerr := s.write(ctx, CmdMailboxControl, mailboxClose); err == nil {
		err = cerr
	}
	return data, err
}

func (s *Session) downloadMailbox(ctx context.Context, n int) ([]byte, error) {
	if err := s.write(ctx, CmdMailboxAddress, 0); err != nil {
		return nil, err
	}
	reply, err := s.exchange(ctx, Request{Command: CmdMailboxData, Read: true, Args: []uint32{uint32(n * 3)}})
	if err != nil {
		return nil, err
	}
	if len(reply.Data) < n*3 {
		return nil, newError(ErrCodeShortReply, CmdMailboxData, "mailbox returned too few bytes", nil)
	}
	return reply.Data[:n*3], nil
}
