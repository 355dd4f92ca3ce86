package device

import (
	"context"
	"fmt"
	"sync"

	"github.com/smazurov/lcrnode/internal/pattern"
)

// Minimum exposure in microseconds for each pattern bit depth.
var minExposureUs = [pattern.MaxBitDepth + 1]uint32{0, 235, 700, 1570, 1700, 2000, 2500, 4500, 8333}

// Smallest non-zero gap between frame and exposure the sequencer can insert.
const minFrameExposureGapUs = 230

// Validation status bits as reported by the firmware.
const (
	simBitTiming      uint32 = 0x01
	simBitPatternNum  uint32 = 0x02
	simBitTrigOut     uint32 = 0x04
	simBitPostVector  uint32 = 0x08
	simBitFrameMargin uint32 = 0x10
)

// Simulator is an in-memory DLPC350 implementing Link. It keeps a register
// file, the pattern LUT mailbox, validation results and playback position.
// It is safe for concurrent use.
type Simulator struct {
	mu sync.Mutex

	open      bool
	unplugged bool

	regs map[Command][]uint32

	lut        []byte
	lutEntries int
	mailbox    uint32
	mboxAddr   int

	validation uint32
	validated  bool
	forced     *uint32
	busyPolls  int

	playback PlaybackAction
	position int

	rejects map[Command]bool
	calls   []Request
}

// NewSimulator returns a powered-on simulator in video mode.
func NewSimulator() *Simulator {
	s := &Simulator{
		rejects: make(map[Command]bool),
	}
	s.resetLocked()
	return s
}

func (s *Simulator) resetLocked() {
	s.regs = map[Command][]uint32{
		CmdPowerControl:   {0},
		CmdVersion:        {0x02000000, 0x01010000, 0x00010000, 0x00010000},
		CmdLEDCurrent:     {0x97, 0x78, 0x7D},
		CmdFlipLong:       {0},
		CmdFlipShort:      {0},
		CmdTestPattern:    {0},
		CmdInputSource:    {uint32(InputParallel) | uint32(PortWidth24)<<3},
		CmdLEDEnable:      {0x8},
		CmdDisplayMode:    {uint32(DisplayModeVideo)},
		CmdPatternSource:  {uint32(PatternSourceVideoPort)},
		CmdTriggerMode:    {uint32(TriggerModeVSync)},
		CmdExposureFrame:  {16666, 16666},
		CmdPatternConfig:  {0, 0, 1, 1},
		CmdHardwareStatus: {uint32(HardwareInitDone)},
		CmdSystemStatus:   {uint32(SystemMemoryOK)},
	}
	s.lut = make([]byte, pattern.DefaultCapacity*pattern.WordSize)
	s.lutEntries = 0
	s.mailbox = mailboxClose
	s.mboxAddr = 0
	s.validation = 0
	s.validated = false
	s.playback = PlaybackStop
	s.position = 0
}

// Open implements Link.
func (s *Simulator) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unplugged {
		return fmt.Errorf("device %04x:%04x not present: %w", VendorID, ProductID, ErrLinkClosed)
	}
	s.open = true
	return nil
}

// Close implements Link.
func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return nil
}

// Exchange implements Link.
func (s *Simulator) Exchange(ctx context.Context, req Request) (Reply, error) {
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open || s.unplugged {
		return Reply{}, ErrLinkClosed
	}

	s.calls = append(s.calls, cloneRequest(req))

	if s.rejects[req.Command] {
		return Reply{Status: -1}, nil
	}
	if req.Read {
		return s.readLocked(req), nil
	}
	return s.writeLocked(req), nil
}

func cloneRequest(req Request) Request {
	out := Request{Command: req.Command, Read: req.Read}
	if req.Args != nil {
		out.Args = append([]uint32(nil), req.Args...)
	}
	if req.Data != nil {
		out.Data = append([]byte(nil), req.Data...)
	}
	return out
}

func (s *Simulator) readLocked(req Request) Reply {
	switch req.Command {
	case CmdValidateLUT:
		if s.busyPolls > 0 {
			s.busyPolls--
			return Reply{Values: []uint32{validationBusy}}
		}
		return Reply{Values: []uint32{s.validation}}

	case CmdMainStatus:
		var st uint32
		switch s.playback {
		case PlaybackStart:
			st = uint32(MainSequencerActive)
		case PlaybackPause:
			st = uint32(MainVideoFrozen)
		default:
			st = uint32(MainDMDParked)
		}
		return Reply{Values: []uint32{st}}

	case CmdMailboxData:
		if s.mailbox != mailboxPatternLUT || len(req.Args) == 0 {
			return Reply{Status: -1}
		}
		start := s.mboxAddr * pattern.WordSize
		end := start + int(req.Args[0])
		if end > len(s.lut) {
			return Reply{Status: -1}
		}
		return Reply{Data: append([]byte(nil), s.lut[start:end]...)}
	}

	v, ok := s.regs[req.Command]
	if !ok {
		return Reply{Status: -1}
	}
	return Reply{Values: append([]uint32(nil), v...)}
}

// Commands that change the pattern sequence and therefore need the sequencer
// stopped and a fresh validation.
var sequenceCommands = map[Command]bool{
	CmdPatternSource: true,
	CmdTriggerMode:   true,
	CmdExposureFrame: true,
	CmdPatternConfig: true,
	CmdMailboxData:   true,
}

var readOnly = map[Command]bool{
	CmdVersion:        true,
	CmdHardwareStatus: true,
	CmdSystemStatus:   true,
}

func (s *Simulator) writeLocked(req Request) Reply {
	if sequenceCommands[req.Command] {
		if s.playback != PlaybackStop {
			return Reply{Status: -1}
		}
		s.validated = false
	}

	switch req.Command {
	case CmdDisplayMode:
		if len(req.Args) != 1 || req.Args[0] > uint32(DisplayModePattern) {
			return Reply{Status: -1}
		}
		s.playback = PlaybackStop
		s.position = 0
		s.validated = false

	case CmdPatternStartStop:
		if len(req.Args) != 1 {
			return Reply{Status: -1}
		}
		return s.playbackLocked(PlaybackAction(req.Args[0]))

	case CmdValidateLUT:
		s.validation = s.computeValidationLocked()
		s.validated = s.validation&(simBitTiming|simBitPatternNum) == 0
		return Reply{}

	case CmdMailboxControl:
		if len(req.Args) != 1 {
			return Reply{Status: -1}
		}
		s.mailbox = req.Args[0]
		s.mboxAddr = 0
		return Reply{}

	case CmdMailboxAddress:
		if len(req.Args) != 1 || int(req.Args[0]) >= pattern.DefaultCapacity {
			return Reply{Status: -1}
		}
		s.mboxAddr = int(req.Args[0])
		return Reply{}

	case CmdMailboxData:
		if s.mailbox != mailboxPatternLUT || len(req.Data)%pattern.WordSize != 0 {
			return Reply{Status: -1}
		}
		start := s.mboxAddr * pattern.WordSize
		if start+len(req.Data) > len(s.lut) {
			return Reply{Status: -1}
		}
		copy(s.lut[start:], req.Data)
		s.mboxAddr += len(req.Data) / pattern.WordSize
		s.lutEntries = s.mboxAddr
		return Reply{}

	case CmdSoftwareReset:
		s.resetLocked()
		return Reply{}
	}

	if old, ok := s.regs[req.Command]; !ok || readOnly[req.Command] || len(old) != len(req.Args) {
		return Reply{Status: -1}
	}
	s.regs[req.Command] = append([]uint32(nil), req.Args...)
	return Reply{}
}

func (s *Simulator) playbackLocked(action PlaybackAction) Reply {
	switch action {
	case PlaybackStop:
		s.playback = PlaybackStop
		s.position = 0

	case PlaybackPause:
		if s.playback == PlaybackStart {
			s.playback = PlaybackPause
		}

	case PlaybackStart:
		if s.playback == PlaybackPause {
			s.playback = PlaybackStart
			return Reply{}
		}
		if s.regs[CmdDisplayMode][0] != uint32(DisplayModePattern) || !s.validated {
			return Reply{Status: -1}
		}
		if s.playback == PlaybackStop {
			s.position = 0
		}
		s.playback = PlaybackStart

	default:
		return Reply{Status: -1}
	}
	return Reply{}
}

func (s *Simulator) computeValidationLocked() uint32 {
	if s.forced != nil {
		return *s.forced
	}

	cfg := s.regs[CmdPatternConfig]
	numEntries := int(cfg[0])
	exposure, frame := s.regs[CmdExposureFrame][0], s.regs[CmdExposureFrame][1]

	var status uint32

	if numEntries == 0 || numEntries > s.lutEntries {
		status |= simBitPatternNum
	}
	n := min(numEntries, s.lutEntries)
	entries := pattern.DecodeEntries(s.lut[:n*pattern.WordSize])
	for _, e := range entries {
		if e.Validate() != nil {
			status |= simBitPatternNum
			break
		}
	}

	depth := pattern.MaxBitDepthOf(entries)
	if exposure == 0 || frame == 0 || exposure > frame || exposure < minExposureUs[min(int(depth), pattern.MaxBitDepth)] {
		status |= simBitTiming
	}

	external := s.regs[CmdTriggerMode][0] == uint32(TriggerModeInternalOrExternal)
	for i, e := range entries {
		if e.TriggerOut && (i == 0 || entries[i-1].InsertBlack) {
			status |= simBitTrigOut
		}
		isExternal := e.TriggerType == pattern.TriggerExternalPositive || e.TriggerType == pattern.TriggerExternalNegative
		if external && isExternal && i > 0 && !entries[i-1].InsertBlack {
			status |= simBitPostVector
		}
	}

	if frame > exposure && frame-exposure < minFrameExposureGapUs {
		status |= simBitFrameMargin
	}
	return status
}

// Advance moves the running sequence forward by n pattern periods. A
// non-repeating sequence stops after its last entry.
func (s *Simulator) Advance(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.playback != PlaybackStart {
		return
	}
	count := int(s.regs[CmdPatternConfig][0])
	if count == 0 {
		return
	}
	repeat := s.regs[CmdPatternConfig][1] != 0

	next := s.position + n
	if repeat {
		s.position = next % count
		return
	}
	if next >= count {
		s.playback = PlaybackStop
		s.position = 0
		return
	}
	s.position = next
}

// Position returns the LUT index currently displayed.
func (s *Simulator) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Playback returns the last accepted playback action.
func (s *Simulator) Playback() PlaybackAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playback
}

// LoadedEntries returns the number of LUT entries written through the mailbox.
func (s *Simulator) LoadedEntries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lutEntries
}

// ForceValidation makes every subsequent validation report mask.
func (s *Simulator) ForceValidation(mask uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := mask & ValidationStatusMask
	s.forced = &m
}

// ClearForcedValidation restores computed validation results.
func (s *Simulator) ClearForcedValidation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forced = nil
}

// SetValidationBusy makes the next n validation status reads report busy.
func (s *Simulator) SetValidationBusy(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busyPolls = n
}

// Reject makes the simulator answer cmd with a negative status.
func (s *Simulator) Reject(cmd Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejects[cmd] = true
}

// Accept undoes Reject.
func (s *Simulator) Accept(cmd Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rejects, cmd)
}

// Unplug simulates the device disappearing from the bus.
func (s *Simulator) Unplug() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unplugged = true
}

// Replug makes the device available again. The link must be reopened.
func (s *Simulator) Replug() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unplugged = false
	s.open = false
}

// Calls returns every request received so far.
func (s *Simulator) Calls() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.calls))
	copy(out, s.calls)
	return out
}

// ResetCalls clears the request history.
func (s *Simulator) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}
