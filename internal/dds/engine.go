// Package dds implements the audio-rate direct digital synthesis core: one or
// two 16-bit phase accumulators reading a shared wavetable, with optional
// frequency modulation of the carrier by the second accumulator.
//
// All arithmetic is fixed point and wraps at the widths below on purpose;
// none of it can fail.
package dds

import (
	"fmt"

	"github.com/chase3718/pocket-piano/internal/shared"
	"github.com/chase3718/pocket-piano/internal/wavetable"
)

// SampleRate is the audio tick rate of the reference hardware in hertz.
const SampleRate = 15625

// HarmonicityBits is the number of fractional bits in the harmonicity ratio.
const HarmonicityBits = 6

// depthShift scales the modulator amplitude by the depth knob.
const depthShift = 3

// center is the zero line of the unsigned wavetable.
const center = 0x80

// Mode selects the product variant the engine behaves as.
type Mode int

const (
	// ModeSimple runs a single accumulator at the resolved increment.
	ModeSimple Mode = iota
	// ModeFM runs a modulator accumulator that deviates the carrier.
	ModeFM
)

func (m Mode) String() string {
	switch m {
	case ModeSimple:
		return "simple"
	case ModeFM:
		return "fm"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode maps a flag value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "simple":
		return ModeSimple, nil
	case "fm":
		return ModeFM, nil
	}
	return 0, fmt.Errorf("dds: unknown mode %q", s)
}

// Engine is the oscillator state. It is owned by the audio tick and must not
// be shared with other goroutines.
type Engine struct {
	mode      Mode
	table     *wavetable.Table
	carrier   Phase
	modulator Phase
}

// New returns an engine in the given mode reading table. A nil table selects
// wavetable.Sine.
func New(mode Mode, table *wavetable.Table) *Engine {
	if table == nil {
		table = &wavetable.Sine
	}
	return &Engine{mode: mode, table: table}
}

// Mode reports the variant e runs as.
func (e *Engine) Mode() Mode { return e.mode }

// Reset zeroes both accumulators.
func (e *Engine) Reset() {
	e.carrier = 0
	e.modulator = 0
}

// Phases returns the current carrier and modulator accumulators.
func (e *Engine) Phases() (carrier, modulator Phase) {
	return e.carrier, e.modulator
}

// ModulatorIncrement returns the modulator's phase increment for a carrier
// increment and a harmonicity ratio with HarmonicityBits fractional bits.
func ModulatorIncrement(carrierInc uint16, harmonicity uint8) uint16 {
	return uint16((uint32(carrierInc) * uint32(harmonicity)) >> HarmonicityBits)
}

// Deviation turns a modulator amplitude into a signed carrier frequency
// offset. The baseline subtracted is what a centre-line amplitude would
// produce at the same depth, so depth 0 always yields 0.
func Deviation(amp, depth uint8) int16 {
	dev := (uint16(amp) * uint16(depth)) >> depthShift
	base := (uint16(center) * uint16(depth)) >> depthShift
	return int16(dev - base)
}

// Step advances the oscillator(s) by one tick and returns the carrier's raw
// table amplitude, before gain.
func (e *Engine) Step(s shared.Snapshot) uint8 {
	switch e.mode {
	case ModeFM:
		e.modulator = e.modulator.Advance(ModulatorIncrement(s.Increment, s.Harmonicity))
		offset := Deviation(e.table[e.modulator.Index()], s.Depth)
		e.carrier = e.carrier.Advance(s.Increment + uint16(offset))
	default:
		inc := s.Increment
		if s.Gain == 0 {
			// hold the level while no key is down
			inc = 0
		}
		e.carrier = e.carrier.Advance(inc)
	}
	return e.table[e.carrier.Index()]
}

// Tick produces one 16-bit, left-justified output sample.
func (e *Engine) Tick(s shared.Snapshot) uint16 {
	amp := e.Step(s)
	if e.mode == ModeFM {
		return uint16(amp) * uint16(s.Gain)
	}
	return uint16(amp) << 8
}
