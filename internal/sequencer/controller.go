// Package sequencer drives the DLPC350 pattern sequence: it stages the
// pattern table and sequence settings on the host, commits them to the
// device, validates them and runs the start/pause/stop state machine.
//
// All staging happens host side first. SendTable is the only operation that
// writes the table to the device, and Start from Stopped requires a
// successful Validate after the last change.
package sequencer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/smazurov/lcrnode/internal/device"
	"github.com/smazurov/lcrnode/internal/events"
	"github.com/smazurov/lcrnode/internal/logging"
	"github.com/smazurov/lcrnode/internal/metrics"
	"github.com/smazurov/lcrnode/internal/pattern"
)

// EventPublisher receives sequencer events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// Options configures a Controller.
type Options struct {
	// Capacity bounds the pattern table. Zero selects pattern.DefaultCapacity.
	Capacity int
	EventBus EventPublisher
	Logger   logging.Logger
}

// Controller owns one device session and the staged sequence for it.
// Its methods are safe for concurrent use and are serialized.
type Controller struct {
	mu      sync.Mutex
	session *device.Session
	bus     EventPublisher
	logger  logging.Logger

	state       State
	displayMode device.DisplayMode
	source      device.PatternSource
	table       *pattern.Table
	config      SequenceConfig
	timing      TimingConfig
	trigger     TriggerMode

	tableDirty bool
	sentCount  int
	validated  bool

	lastStatus    ValidationStatus
	hasValidation bool
}

// New creates a Controller for session. The session must already be
// connected or be connected before the first device operation.
func New(session *device.Session, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger("sequencer")
	}
	c := &Controller{
		session:     session,
		bus:         opts.EventBus,
		logger:      logger,
		state:       StateStopped,
		displayMode: device.DisplayModeVideo,
		source:      device.PatternSourceVideoPort,
		table:       pattern.NewTable(opts.Capacity),
		trigger:     TriggerVSync,
	}
	metrics.SetSequencerState(c.state.String())
	metrics.SetPatternTableEntries(0)
	return c
}

// Session returns the underlying device session.
func (c *Controller) Session() *device.Session {
	return c.session
}

func now() string {
	return time.Now().Format(time.RFC3339)
}

func (c *Controller) publish(ev events.Event) {
	if c.bus != nil {
		c.bus.Publish(ev)
	}
}

func (c *Controller) setState(s State) {
	if s == c.state {
		return
	}
	from := c.state
	c.state = s
	metrics.SetSequencerState(s.String())
	c.logger.Info("Sequencer state changed", "from", from.String(), "to", s.String())
	c.publish(events.SequencerStateChangedEvent{
		From:      from.String(),
		To:        s.String(),
		Timestamp: now(),
	})
}

func (c *Controller) deviceFailed(op string, err error) error {
	e := fromDevice(op, err)
	c.logger.Warn("Device operation failed", "op", op, "kind", string(e.Kind), "error", err)
	cmd := ""
	if e.Command != 0 {
		cmd = e.Command.String()
	}
	c.publish(events.CommandFailedEvent{
		Operation: op,
		Command:   cmd,
		Kind:      string(e.Kind),
		Error:     err.Error(),
		Timestamp: now(),
	})
	return e
}

// invalidate records that staged state changed since the last validation.
func (c *Controller) invalidate() {
	c.validated = false
}

func (c *Controller) requireStopped(op string) error {
	if c.state != StateStopped {
		return stateError(op, c.state)
	}
	return nil
}

// State returns the current sequencer state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stop stops the sequence. It is legal from every state and always issues
// the stop command; the next Start begins at entry zero.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.session.PatternDisplay(ctx, device.PlaybackStop); err != nil {
		return c.deviceFailed("stop", err)
	}
	c.setState(StateStopped)
	return nil
}

// Pause pauses a running sequence.
func (c *Controller) Pause(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning {
		return stateError("pause", c.state)
	}
	if err := c.session.PatternDisplay(ctx, device.PlaybackPause); err != nil {
		return c.deviceFailed("pause", err)
	}
	c.setState(StatePaused)
	return nil
}

// Start runs the sequence. From Paused it resumes without re-validation.
// From Stopped the current staged settings must have been validated.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateRunning:
		return stateError("start", c.state)
	case StateStopped:
		if !c.validated {
			return newError(KindNotValidated, "start", "validate the current configuration before starting")
		}
	}

	if err := c.session.PatternDisplay(ctx, device.PlaybackStart); err != nil {
		return c.deviceFailed("start", err)
	}
	c.setState(StateRunning)
	return nil
}

// SetDisplayMode switches the device between video and pattern display. It
// is allowed in every state and leaves the sequencer Stopped.
func (c *Controller) SetDisplayMode(ctx context.Context, mode device.DisplayMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if mode != device.DisplayModeVideo && mode != device.DisplayModePattern {
		return newError(KindInvalidConfig, "set_display_mode", "unknown display mode")
	}
	if c.state != StateStopped {
		if err := c.session.PatternDisplay(ctx, device.PlaybackStop); err != nil {
			return c.deviceFailed("set_display_mode", err)
		}
		c.setState(StateStopped)
	}
	if err := c.session.SetDisplayMode(ctx, mode); err != nil {
		return c.deviceFailed("set_display_mode", err)
	}
	c.displayMode = mode
	c.invalidate()
	c.logger.Debug("Display mode set", "mode", mode.String())
	return nil
}

// DisplayMode returns the last display mode set through the controller.
func (c *Controller) DisplayMode() device.DisplayMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayMode
}

// SetPatternSource selects the pattern data source. Stopped only.
func (c *Controller) SetPatternSource(ctx context.Context, src device.PatternSource) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireStopped("set_pattern_source"); err != nil {
		return err
	}
	if src != device.PatternSourceFlash && src != device.PatternSourceVideoPort {
		return newError(KindInvalidConfig, "set_pattern_source", "unknown pattern source")
	}
	if err := c.session.SetPatternSource(ctx, src); err != nil {
		return c.deviceFailed("set_pattern_source", err)
	}
	c.source = src
	c.invalidate()
	return nil
}

// PatternSource returns the staged pattern data source.
func (c *Controller) PatternSource() device.PatternSource {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source
}

// ClearTable empties the staged pattern table. No device traffic.
func (c *Controller) ClearTable() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireStopped("clear_table"); err != nil {
		return err
	}
	c.table.Clear()
	c.tableDirty = true
	c.invalidate()
	metrics.SetPatternTableEntries(0)
	return nil
}

// AddEntry appends an entry to the staged table and returns its index.
// No device traffic.
func (c *Controller) AddEntry(e pattern.Entry) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireStopped("add_entry"); err != nil {
		return -1, err
	}
	idx, err := c.table.Add(e)
	if err != nil {
		kind := KindInvalidEntry
		if errors.Is(err, pattern.ErrCapacityExceeded) {
			kind = KindCapacityExceeded
		}
		return -1, &Error{Kind: kind, Op: "add_entry", Cause: err}
	}
	c.tableDirty = true
	c.invalidate()
	metrics.SetPatternTableEntries(c.table.Len())
	return idx, nil
}

// Entry returns the staged entry at index.
func (c *Controller) Entry(index int) (pattern.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.table.Get(index)
	if err != nil {
		return pattern.Entry{}, &Error{Kind: KindIndexOutOfRange, Op: "entry", Cause: err}
	}
	return e, nil
}

// EntryCount returns the number of staged entries.
func (c *Controller) EntryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table.Len()
}

// Entries returns a copy of the staged table.
func (c *Controller) Entries() []pattern.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table.Entries()
}

// Capacity returns the pattern table capacity.
func (c *Controller) Capacity() int {
	return c.table.Capacity()
}

// SetConfig writes the sequence configuration. Stopped only.
func (c *Controller) SetConfig(ctx context.Context, cfg SequenceConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireStopped("set_config"); err != nil {
		return err
	}
	if err := cfg.validate(c.table.Capacity(), c.source); err != nil {
		return &Error{Kind: KindInvalidConfig, Op: "set_config", Cause: err}
	}
	if err := c.session.SetPatternConfig(ctx, cfg.register()); err != nil {
		return c.deviceFailed("set_config", err)
	}
	c.config = cfg
	c.invalidate()
	c.logger.Debug("Sequence config set",
		"entries", cfg.NumEntries,
		"repeat", cfg.Repeat,
		"trig_out2", cfg.NumPatternsForTrigOut2,
		"splash", cfg.NumSplashEntries)
	return nil
}

// Config returns the staged sequence configuration.
func (c *Controller) Config() SequenceConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

// SetTiming writes exposure and frame periods. Invalid timing is rejected
// before any device traffic. Stopped only.
func (c *Controller) SetTiming(ctx context.Context, t TimingConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireStopped("set_timing"); err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return &Error{Kind: KindInvalidTiming, Op: "set_timing", Cause: err}
	}
	if err := c.session.SetExposureFrame(ctx, t.ExposureMicros, t.FrameMicros); err != nil {
		return c.deviceFailed("set_timing", err)
	}
	c.timing = t
	c.invalidate()
	c.logger.Debug("Timing set", "exposure_us", t.ExposureMicros, "frame_us", t.FrameMicros)
	return nil
}

// Timing returns the staged timing.
func (c *Controller) Timing() TimingConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timing
}

// SetTriggerMode sets the pattern trigger mode. It takes effect after the
// next successful Validate. Stopped only.
func (c *Controller) SetTriggerMode(ctx context.Context, mode TriggerMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireStopped("set_trigger_mode"); err != nil {
		return err
	}
	if mode != TriggerVSync && mode != TriggerInternalOrExternal {
		return newError(KindInvalidConfig, "set_trigger_mode", "unknown trigger mode")
	}
	if err := c.session.SetTriggerMode(ctx, mode); err != nil {
		return c.deviceFailed("set_trigger_mode", err)
	}
	c.trigger = mode
	c.invalidate()
	return nil
}

// TriggerMode returns the staged trigger mode.
func (c *Controller) TriggerMode() TriggerMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trigger
}

// SendTable writes the staged table to the device. Sending the same table
// again without changes is harmless. Stopped only.
func (c *Controller) SendTable(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireStopped("send_table"); err != nil {
		return err
	}
	if c.table.Len() == 0 {
		return newError(KindInvalidConfig, "send_table", "pattern table is empty")
	}

	data := c.table.Encode()
	if err := c.session.WritePatternLUT(ctx, data); err != nil {
		return c.deviceFailed("send_table", err)
	}
	c.tableDirty = false
	c.sentCount = c.table.Len()
	c.invalidate()

	metrics.RecordTableSent()
	c.logger.Info("Pattern table sent", "entries", c.sentCount, "bytes", len(data))
	c.publish(events.TableSentEvent{
		Entries:   c.sentCount,
		Bytes:     len(data),
		Timestamp: now(),
	})
	return nil
}

// TableSent reports whether the staged table matches what was last sent.
func (c *Controller) TableSent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.tableDirty && c.sentCount > 0
}

// Validate asks the device to check the committed configuration. A zero
// status enables Start; any other status returns a ValidationFailed error
// carrying the decoded diagnostic. Unsent table changes fail with
// InvalidState without contacting the device.
func (c *Controller) Validate(ctx context.Context) (ValidationStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tableDirty {
		return 0, &Error{
			Kind:    KindInvalidState,
			Op:      "validate",
			Message: "send the pattern table first",
			Cause:   ErrTableNotSent,
		}
	}

	raw, err := c.session.ValidateLUT(ctx)
	if err != nil {
		return 0, c.deviceFailed("validate", err)
	}

	status := ValidationStatus(raw) & statusMask
	diag := status.Decode()
	c.lastStatus = status
	c.hasValidation = true
	c.validated = status.OK()

	metrics.RecordValidation(diag.String())
	c.publish(events.ValidationCompletedEvent{
		Status:     uint32(status),
		Diagnostic: diag.String(),
		Advisory:   diag.Advisory(),
		Success:    status.OK(),
		Timestamp:  now(),
	})

	if !status.OK() {
		c.logger.Warn("Validation failed", "status", uint32(status), "diagnostic", diag.String())
		return status, &Error{
			Kind:       KindValidationFailed,
			Op:         "validate",
			Status:     status,
			Diagnostic: diag,
			Message:    diag.Message(),
		}
	}
	c.logger.Info("Validation succeeded")
	return status, nil
}

// LastValidation returns the most recent validation status, if any.
func (c *Controller) LastValidation() (ValidationStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastStatus, c.hasValidation
}

// Validated reports whether Start from Stopped is currently permitted.
func (c *Controller) Validated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validated
}

// Snapshot is a consistent view of the controller.
type Snapshot struct {
	State          string         `json:"state"`
	DisplayMode    string         `json:"display_mode"`
	PatternSource  string         `json:"pattern_source"`
	TriggerMode    string         `json:"trigger_mode"`
	Entries        int            `json:"entries"`
	Capacity       int            `json:"capacity"`
	TableSent      bool           `json:"table_sent"`
	Validated      bool           `json:"validated"`
	Config         SequenceConfig `json:"config"`
	Timing         TimingConfig   `json:"timing"`
	LastValidation *uint32        `json:"last_validation,omitempty"`
}

// Snapshot returns the current controller state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		State:         c.state.String(),
		DisplayMode:   c.displayMode.String(),
		PatternSource: c.source.String(),
		TriggerMode:   c.trigger.String(),
		Entries:       c.table.Len(),
		Capacity:      c.table.Capacity(),
		TableSent:     !c.tableDirty && c.sentCount > 0,
		Validated:     c.validated,
		Config:        c.config,
		Timing:        c.timing,
	}
	if c.hasValidation {
		v := uint32(c.lastStatus)
		s.LastValidation = &v
	}
	return s
}

// DeviceSettings are the sequence settings as reported by the device.
type DeviceSettings struct {
	DisplayMode   string         `json:"display_mode"`
	PatternSource string         `json:"pattern_source"`
	TriggerMode   string         `json:"trigger_mode"`
	Config        SequenceConfig `json:"config"`
	Timing        TimingConfig   `json:"timing"`
	Running       bool           `json:"running"`
}

// ReadBack reads the sequence settings from the device. It is permitted in
// every state and does not change staged values.
func (c *Controller) ReadBack(ctx context.Context) (DeviceSettings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out DeviceSettings

	mode, err := c.session.DisplayMode(ctx)
	if err != nil {
		return out, c.deviceFailed("read_back", err)
	}
	src, err := c.session.PatternSource(ctx)
	if err != nil {
		return out, c.deviceFailed("read_back", err)
	}
	trig, err := c.session.TriggerMode(ctx)
	if err != nil {
		return out, c.deviceFailed("read_back", err)
	}
	cfg, err := c.session.PatternConfig(ctx)
	if err != nil {
		return out, c.deviceFailed("read_back", err)
	}
	exposure, frame, err := c.session.ExposureFrame(ctx)
	if err != nil {
		return out, c.deviceFailed("read_back", err)
	}
	st, err := c.session.Status(ctx)
	if err != nil {
		return out, c.deviceFailed("read_back", err)
	}

	out.DisplayMode = mode.String()
	out.PatternSource = src.String()
	out.TriggerMode = trig.String()
	out.Config = sequenceConfigFrom(cfg)
	out.Timing = TimingConfig{ExposureMicros: exposure, FrameMicros: frame}
	out.Running = st.SequencerActive()
	return out, nil
}

// ReadTable reads back the table last sent to the device.
func (c *Controller) ReadTable(ctx context.Context) ([]pattern.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sentCount == 0 {
		return []pattern.Entry{}, nil
	}
	data, err := c.session.ReadPatternLUT(ctx, c.sentCount)
	if err != nil {
		return nil, c.deviceFailed("read_table", err)
	}
	return pattern.DecodeEntries(data), nil
}

// Reset issues a software reset. The device returns to its power-on
// defaults, so the host mirrors them: Stopped, video mode, nothing sent and
// nothing validated. The staged table is kept and must be sent again.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.session.SoftwareReset(ctx); err != nil {
		return c.deviceFailed("reset", err)
	}

	c.displayMode = device.DisplayModeVideo
	c.source = device.PatternSourceVideoPort
	c.trigger = TriggerVSync
	c.config = SequenceConfig{}
	c.timing = TimingConfig{}
	c.sentCount = 0
	c.tableDirty = c.table.Len() > 0
	c.hasValidation = false
	c.invalidate()
	c.setState(StateStopped)
	c.logger.Info("Device reset")
	return nil
}
