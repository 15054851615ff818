package control

import (
	"fmt"

	"github.com/chase3718/pocket-piano/internal/keyboard"
)

// PitchTable holds twelve-tone equal tempered pitches for the keys, lowest
// first, in phase increment units at a pitch scale of ScaleReference.
var PitchTable = [26]uint32{
	5920, 6272, 6645, 7040, 7459, 7902, 8372, 8870, 9397, 9956, 10548, 11175,
	11840, 12544, 13290, 14080, 14918, 15804, 16744, 17740, 18794, 19912, 21096, 22350,
	23680, 25088,
}

// ScaleReference is the pitch knob value at which knob scaling returns
// PitchTable entries unchanged. A full-travel 10-bit knob sits at about a
// quarter of it, the same pitch ScaleFixed produces.
const ScaleReference = 1 << scaleShift

const (
	scaleShift = 12
	fixedShift = 2
)

// FullGain is the gain published while a key is down.
const FullGain = 0xff

// Scaling selects how a table entry becomes a phase increment.
type Scaling int

const (
	// ScaleFixed divides the entry by four and ignores the pitch knob.
	ScaleFixed Scaling = iota
	// ScaleKnob multiplies the entry by the pitch knob over ScaleReference.
	ScaleKnob
)

func (s Scaling) String() string {
	switch s {
	case ScaleFixed:
		return "fixed"
	case ScaleKnob:
		return "knob"
	}
	return fmt.Sprintf("Scaling(%d)", int(s))
}

// Note is the resolver's decision for one control step.
type Note struct {
	Key       int // -1 when no key is down
	Increment uint16
	Gain      uint8
}

// Sounding reports whether a key is down.
func (n Note) Sounding() bool { return n.Gain != 0 }

// Resolver turns key masks into a single note. Lower keys take priority;
// chords sound their lowest key only.
type Resolver struct {
	scaling Scaling
	last    uint16
}

// NewResolver returns a Resolver using the given scaling.
func NewResolver(s Scaling) *Resolver {
	return &Resolver{scaling: s}
}

// Increment returns the phase increment for key at pitchScale.
func (r *Resolver) Increment(key int, pitchScale uint16) uint16 {
	entry := PitchTable[key]
	if r.scaling == ScaleKnob {
		return uint16((entry * uint32(pitchScale)) >> scaleShift)
	}
	return uint16(entry >> fixedShift)
}

// Resolve picks the note for mask. With no key down the gain drops to zero
// and the previous increment is kept.
func (r *Resolver) Resolve(mask keyboard.Mask, pitchScale uint16) Note {
	for key := range keyboard.NumKeys {
		if mask.Pressed(key) {
			r.last = r.Increment(key, pitchScale)
			return Note{Key: key, Increment: r.last, Gain: FullGain}
		}
	}
	return Note{Key: -1, Increment: r.last}
}
