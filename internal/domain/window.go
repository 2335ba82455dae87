package domain

import (
	"fmt"
	"time"
)

// WindowMode selects how the display window is cut from the history
type WindowMode string

const (
	// WindowByCount keeps the last N samples. This is the default: at the
	// producer's ~1 Hz cadence it matches N seconds, and it keeps the plot
	// width stable when frames stall.
	WindowByCount WindowMode = "count"

	// WindowByTime keeps samples stamped within the last N seconds
	WindowByTime WindowMode = "time"
)

// ParseWindowMode validates a configured window mode
func ParseWindowMode(s string) (WindowMode, error) {
	switch WindowMode(s) {
	case WindowByCount, WindowByTime:
		return WindowMode(s), nil
	}
	return "", fmt.Errorf("unknown window mode %q (want %q or %q)", s, WindowByCount, WindowByTime)
}

// WindowSpec describes the rolling display window
type WindowSpec struct {
	Mode WindowMode
	Size int // samples for WindowByCount, seconds for WindowByTime
}

// WindowBuffer holds every sample of the session in arrival order.
// Arrival order is trusted as time order; nothing is reordered or dropped.
// It is owned by a single writer; readers only ever get copies.
type WindowBuffer struct {
	samples []Sample
}

// NewWindowBuffer creates an empty buffer
func NewWindowBuffer() *WindowBuffer {
	return &WindowBuffer{}
}

// Append adds a sample at the end of the history
func (b *WindowBuffer) Append(s Sample) {
	b.samples = append(b.samples, s)
}

// Len returns the number of samples received so far
func (b *WindowBuffer) Len() int {
	return len(b.samples)
}

// History returns a copy of the full session history
func (b *WindowBuffer) History() []Sample {
	out := make([]Sample, len(b.samples))
	copy(out, b.samples)
	return out
}

// Window returns a copy of the most recent suffix selected by spec.
// now is only used by WindowByTime.
func (b *WindowBuffer) Window(spec WindowSpec, now time.Time) []Sample {
	start := len(b.samples)

	switch spec.Mode {
	case WindowByTime:
		cutoff := now.Add(-time.Duration(spec.Size) * time.Second)
		// history is time ordered, walk back until we leave the window
		for start > 0 && !b.samples[start-1].Timestamp.Before(cutoff) {
			start--
		}
	default:
		n := spec.Size
		if n < 0 {
			n = 0
		}
		if n < start {
			start = len(b.samples) - n
		} else {
			start = 0
		}
	}

	out := make([]Sample, len(b.samples)-start)
	copy(out, b.samples[start:])
	return out
}
