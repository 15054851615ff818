// Package monitor is a software stand-in for the DAC: it decodes the framed
// byte stream back into samples and plays them on the host sound card.
package monitor

import (
	"github.com/chase3718/pocket-piano/internal/dac"
)

// SampleSink receives decoded samples.
type SampleSink interface {
	Push(s int16) error
}

// Decoder is a dac.Bus that latches a frame per select pulse, like the
// converter does, and forwards the result as signed PCM. Frames that are not
// exactly two bytes long, or carry another command, are ignored.
type Decoder struct {
	sink     SampleSink
	frame    dac.Frame
	n        int
	selected bool
	rejected uint64
}

// NewDecoder returns a Decoder feeding sink.
func NewDecoder(sink SampleSink) *Decoder {
	return &Decoder{sink: sink}
}

// SetFrameSelect implements dac.Bus. The rising edge latches the frame.
func (d *Decoder) SetFrameSelect(low bool) error {
	if low {
		d.selected = true
		d.n = 0
		return nil
	}
	if !d.selected {
		return nil
	}
	d.selected = false
	if d.n != len(d.frame) || d.frame.Command() != dac.CmdWrite {
		d.rejected++
		return nil
	}
	return d.sink.Push(PCM(d.frame.Value()))
}

// WriteByte implements dac.Bus.
func (d *Decoder) WriteByte(b byte) error {
	if !d.selected {
		return nil
	}
	if d.n < len(d.frame) {
		d.frame[d.n] = b
	}
	d.n++
	return nil
}

// Rejected returns how many malformed frames were dropped.
func (d *Decoder) Rejected() uint64 { return d.rejected }

// PCM converts an unsigned converter code to a signed 16-bit sample
// centred on the converter's mid-scale.
func PCM(v uint16) int16 {
	return int16(int32(v&dac.MaxValue)-(dac.MaxValue+1)/2) << (16 - dac.Bits)
}
