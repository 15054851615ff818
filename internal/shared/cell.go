// Package shared carries the control state handed from the control loop to
// the audio tick.
//
// The whole snapshot is packed into a single 64-bit word so that one atomic
// store publishes every field together and one atomic load observes them
// together. The reader can never see an increment from one control step
// paired with the gain from another.
package shared

import "sync/atomic"

// Snapshot is the complete set of parameters the audio tick consumes.
type Snapshot struct {
	Increment   uint16 // carrier phase increment
	Gain        uint8  // master amplitude, 0 or 0xff
	Depth       uint8  // FM modulation depth
	Harmonicity uint8  // modulator ratio, 6 fractional bits
	PitchScale  uint16 // raw pitch knob reading
}

// word layout
const (
	incShift   = 0
	gainShift  = 16
	depthShift = 24
	harmShift  = 32
	scaleShift = 40
)

// Pack encodes s into its single-word form.
func (s Snapshot) Pack() uint64 {
	return uint64(s.Increment)<<incShift |
		uint64(s.Gain)<<gainShift |
		uint64(s.Depth)<<depthShift |
		uint64(s.Harmonicity)<<harmShift |
		uint64(s.PitchScale)<<scaleShift
}

// Unpack decodes a word produced by Pack.
func Unpack(w uint64) Snapshot {
	return Snapshot{
		Increment:   uint16(w >> incShift),
		Gain:        uint8(w >> gainShift),
		Depth:       uint8(w >> depthShift),
		Harmonicity: uint8(w >> harmShift),
		PitchScale:  uint16(w >> scaleShift),
	}
}

// Cell is a single-writer, single-reader handoff for a Snapshot. The zero
// value holds the zero Snapshot (silent) and is ready to use.
type Cell struct {
	w atomic.Uint64
}

// Store publishes s.
func (c *Cell) Store(s Snapshot) {
	c.w.Store(s.Pack())
}

// Load returns the most recently published snapshot.
func (c *Cell) Load() Snapshot {
	return Unpack(c.w.Load())
}
