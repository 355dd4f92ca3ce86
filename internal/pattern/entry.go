// Package pattern models the DLPC350 pattern lookup table as it is staged on
// the host before being uploaded to the controller.
package pattern

import (
	"errors"
	"fmt"
)

// TriggerType selects what advances the sequencer to an entry.
type TriggerType uint8

// Trigger types. The numeric values are the firmware encoding.
const (
	TriggerInternal         TriggerType = 0
	TriggerExternalPositive TriggerType = 1
	TriggerExternalNegative TriggerType = 2
	TriggerNone             TriggerType = 3 // continue from previous entry
)

var triggerTypeNames = map[TriggerType]string{
	TriggerInternal:         "internal",
	TriggerExternalPositive: "external_positive",
	TriggerExternalNegative: "external_negative",
	TriggerNone:             "none",
}

func (t TriggerType) String() string {
	if name, ok := triggerTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("trigger(%d)", uint8(t))
}

// ParseTriggerType converts a trigger type name back to its value.
func ParseTriggerType(name string) (TriggerType, error) {
	for t, n := range triggerTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown trigger type %q", name)
}

// LEDSelect is a bitset of the LEDs lit while an entry is exposed.
type LEDSelect uint8

// LED bits. Zero means pass-through (no LED).
const (
	LEDNone  LEDSelect = 0
	LEDRed   LEDSelect = 1 << 0
	LEDGreen LEDSelect = 1 << 1
	LEDBlue  LEDSelect = 1 << 2

	LEDYellow  = LEDRed | LEDGreen
	LEDMagenta = LEDRed | LEDBlue
	LEDCyan    = LEDGreen | LEDBlue
	LEDWhite   = LEDRed | LEDGreen | LEDBlue
)

var ledNames = map[LEDSelect]string{
	LEDNone:    "none",
	LEDRed:     "red",
	LEDGreen:   "green",
	LEDBlue:    "blue",
	LEDYellow:  "yellow",
	LEDMagenta: "magenta",
	LEDCyan:    "cyan",
	LEDWhite:   "white",
}

func (l LEDSelect) String() string {
	if name, ok := ledNames[l]; ok {
		return name
	}
	return fmt.Sprintf("leds(%d)", uint8(l))
}

// ParseLEDSelect converts a color name back to its LED bitset.
func ParseLEDSelect(name string) (LEDSelect, error) {
	for l, n := range ledNames {
		if n == name {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown LED color %q", name)
}

const (
	// MaxBitDepth is the deepest bit plane group the controller can display.
	MaxBitDepth = 8

	// planesPerImage is the number of 1-bit planes in one 24-bit source image.
	planesPerImage = 24

	// NoPattern is the pattern number that displays nothing for an entry.
	NoPattern = 0x3F
)

// Validation errors returned by Entry.Validate and Table operations.
var (
	ErrInvalidEntry     = errors.New("invalid pattern entry")
	ErrCapacityExceeded = errors.New("pattern table capacity exceeded")
	ErrIndexOutOfRange  = errors.New("pattern table index out of range")
)

// Entry is one row of the pattern LUT.
type Entry struct {
	TriggerType  TriggerType `json:"trigger_type" toml:"trigger_type"`
	PatternIndex uint8       `json:"pattern_index" toml:"pattern_index"`
	BitDepth     uint8       `json:"bit_depth" toml:"bit_depth"`
	LEDs         LEDSelect   `json:"leds" toml:"leds"`
	Invert       bool        `json:"invert" toml:"invert"`
	InsertBlack  bool        `json:"insert_black" toml:"insert_black"`
	BufferSwap   bool        `json:"buffer_swap" toml:"buffer_swap"`
	TriggerOut   bool        `json:"trigger_out" toml:"trigger_out"`
}

// PatternsPerImage returns how many patterns of the given bit depth fit in a
// 24-bit image, which bounds the pattern index. Zero for invalid depths.
func PatternsPerImage(bitDepth uint8) int {
	if bitDepth == 0 || bitDepth > MaxBitDepth {
		return 0
	}
	return planesPerImage / int(bitDepth)
}

// FillIndex is the 1-bit pattern number that inserts a solid white fill
// (black when inverted).
func FillIndex() uint8 {
	return planesPerImage
}

// IsFill reports whether the entry displays the solid fill pattern.
func (e Entry) IsFill() bool {
	return e.BitDepth == 1 && e.PatternIndex == FillIndex()
}

// Validate checks the entry against the bit-depth dependent index ceiling
// and the field ranges of the LUT word.
func (e Entry) Validate() error {
	if e.TriggerType > TriggerNone {
		return fmt.Errorf("%w: trigger type %d", ErrInvalidEntry, e.TriggerType)
	}
	if e.BitDepth == 0 || e.BitDepth > MaxBitDepth {
		return fmt.Errorf("%w: bit depth %d not in 1..%d", ErrInvalidEntry, e.BitDepth, MaxBitDepth)
	}
	if e.LEDs > LEDWhite {
		return fmt.Errorf("%w: led select %d", ErrInvalidEntry, e.LEDs)
	}

	if e.PatternIndex == NoPattern || e.IsFill() {
		return nil
	}
	if limit := PatternsPerImage(e.BitDepth); int(e.PatternIndex) >= limit {
		return fmt.Errorf("%w: pattern index %d exceeds %d for %d-bit patterns",
			ErrInvalidEntry, e.PatternIndex, limit-1, e.BitDepth)
	}
	return nil
}

// LUT word layout.
const (
	wordTriggerShift = 0
	wordPatternShift = 2
	wordDepthShift   = 8
	wordLEDShift     = 12

	wordInvert      = 1 << 16
	wordInsertBlack = 1 << 17
	wordBufferSwap  = 1 << 18
	wordTriggerOut  = 1 << 19
)

// Word packs the entry into its 24-bit LUT word.
func (e Entry) Word() uint32 {
	w := uint32(e.TriggerType&0x3) << wordTriggerShift
	w |= uint32(e.PatternIndex&0x3F) << wordPatternShift
	w |= uint32(e.BitDepth&0xF) << wordDepthShift
	w |= uint32(e.LEDs&0x7) << wordLEDShift
	if e.Invert {
		w |= wordInvert
	}
	if e.InsertBlack {
		w |= wordInsertBlack
	}
	if e.BufferSwap {
		w |= wordBufferSwap
	}
	if e.TriggerOut {
		w |= wordTriggerOut
	}
	return w
}

// EntryFromWord unpacks a LUT word read back from the controller.
func EntryFromWord(w uint32) Entry {
	return Entry{
		TriggerType:  TriggerType((w >> wordTriggerShift) & 0x3),
		PatternIndex: uint8((w >> wordPatternShift) & 0x3F),
		BitDepth:     uint8((w >> wordDepthShift) & 0xF),
		LEDs:         LEDSelect((w >> wordLEDShift) & 0x7),
		Invert:       w&wordInvert != 0,
		InsertBlack:  w&wordInsertBlack != 0,
		BufferSwap:   w&wordBufferSwap != 0,
		TriggerOut:   w&wordTriggerOut != 0,
	}
}
