package program

import (
	"context"
	"fmt"
	"time"

	"github.com/smazurov/lcrnode/internal/device"
	"github.com/smazurov/lcrnode/internal/events"
	"github.com/smazurov/lcrnode/internal/led"
	"github.com/smazurov/lcrnode/internal/logging"
	"github.com/smazurov/lcrnode/internal/sequencer"
)

// LEDApplier applies illumination settings. led.Manager implements it.
type LEDApplier interface {
	Apply(ctx context.Context, st led.State) error
}

// Applier runs programs against a sequencer.
type Applier struct {
	Controller *sequencer.Controller
	LEDs       LEDApplier
	EventBus   sequencer.EventPublisher
	Logger     logging.Logger
}

// Result summarizes an applied program.
type Result struct {
	Name       string                     `json:"name"`
	Entries    int                        `json:"entries"`
	Status     sequencer.ValidationStatus `json:"status"`
	Diagnostic string                     `json:"diagnostic"`
	Started    bool                       `json:"started"`
}

// Apply stops the sequencer and runs the full control flow: display mode,
// pattern source, LEDs, table, configuration, timing, trigger mode, send,
// validate and, if the program asks for it, start. The first failing step
// aborts the flow and its error is returned with the partial result.
func (a *Applier) Apply(ctx context.Context, p *Program, path string) (Result, error) {
	res, err := a.apply(ctx, p)
	if a.EventBus != nil {
		ev := events.ProgramAppliedEvent{
			Path:       path,
			Name:       res.Name,
			Entries:    res.Entries,
			Started:    res.Started,
			Diagnostic: res.Diagnostic,
			Timestamp:  time.Now().Format(time.RFC3339),
		}
		if err != nil {
			ev.Error = err.Error()
		}
		a.EventBus.Publish(ev)
	}

	logger := a.logger()
	if err != nil {
		logger.Error("Program apply failed", "name", p.Name, "path", path, "error", err)
		return res, err
	}
	logger.Info("Program applied", "name", p.Name, "entries", res.Entries, "started", res.Started)
	return res, nil
}

func (a *Applier) logger() logging.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return logging.GetLogger("program")
}

func (a *Applier) apply(ctx context.Context, p *Program) (Result, error) {
	res := Result{Name: p.Name}
	if err := p.Validate(); err != nil {
		return res, err
	}
	c := a.Controller

	if err := c.Stop(ctx); err != nil {
		return res, fmt.Errorf("stop: %w", err)
	}

	mode, _ := p.displayMode()
	if err := c.SetDisplayMode(ctx, mode); err != nil {
		return res, fmt.Errorf("display mode: %w", err)
	}

	if p.LEDs != nil && a.LEDs != nil {
		if err := a.LEDs.Apply(ctx, p.LEDs.state()); err != nil {
			return res, fmt.Errorf("leds: %w", err)
		}
	}

	if mode == device.DisplayModeVideo {
		return res, nil
	}

	src, _ := p.patternSource()
	if err := c.SetPatternSource(ctx, src); err != nil {
		return res, fmt.Errorf("pattern source: %w", err)
	}

	entries, _ := p.PatternEntries()
	if err := c.ClearTable(); err != nil {
		return res, fmt.Errorf("clear table: %w", err)
	}
	for i, e := range entries {
		if _, err := c.AddEntry(e); err != nil {
			return res, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	res.Entries = len(entries)

	if err := c.SetConfig(ctx, p.SequenceConfig(len(entries))); err != nil {
		return res, fmt.Errorf("config: %w", err)
	}
	if err := c.SetTiming(ctx, p.Timing); err != nil {
		return res, fmt.Errorf("timing: %w", err)
	}
	trig, _ := p.triggerMode()
	if err := c.SetTriggerMode(ctx, trig); err != nil {
		return res, fmt.Errorf("trigger mode: %w", err)
	}
	if err := c.SendTable(ctx); err != nil {
		return res, fmt.Errorf("send table: %w", err)
	}

	status, err := c.Validate(ctx)
	res.Status = status
	res.Diagnostic = status.Decode().String()
	if err != nil {
		return res, err
	}

	if p.Start {
		if err := c.Start(ctx); err != nil {
			return res, fmt.Errorf("start: %w", err)
		}
		res.Started = true
	}
	return res, nil
}
