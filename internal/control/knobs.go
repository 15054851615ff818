// Package control runs the low-rate side of the instrument: it reads the
// knobs and keyboard, picks the sounding note and publishes the result for
// the audio tick.
package control

import "sync/atomic"

// ADCBits is the resolution of the knob converter.
const ADCBits = 10

// ADCMax is the largest reading the converter returns.
const ADCMax = 1<<ADCBits - 1

// Knob channels on the analog multiplexer.
const (
	ChannelHarmonicity = 0
	ChannelDepth       = 1
	ChannelPitchScale  = 2
	Channels           = 3
)

// ADC reads one analog channel. Readings above ADCMax are clamped.
type ADC interface {
	Read(channel int) uint16
}

// Knobs is one reading of the three controls, already mapped to the ranges
// the oscillator uses.
type Knobs struct {
	Harmonicity uint8  // 8-bit, 6 fractional bits
	Depth       uint8  // 8-bit
	PitchScale  uint16 // raw 10-bit reading
}

// Reader samples the knobs. It applies no smoothing.
type Reader struct {
	adc ADC
}

// NewReader returns a Reader over adc.
func NewReader(adc ADC) *Reader {
	return &Reader{adc: adc}
}

func (r *Reader) read(ch int) uint16 {
	return min(r.adc.Read(ch), ADCMax)
}

// Read samples every knob once.
func (r *Reader) Read() Knobs {
	return Knobs{
		Harmonicity: uint8(r.read(ChannelHarmonicity) >> (ADCBits - 8)),
		Depth:       uint8(r.read(ChannelDepth) >> (ADCBits - 8)),
		PitchScale:  r.read(ChannelPitchScale),
	}
}

// VirtualKnobs is an ADC whose channels are set in software. It is safe
// for concurrent use.
type VirtualKnobs struct {
	ch [Channels]atomic.Uint32
}

// Set stores a raw reading for channel. Out of range channels are ignored.
func (v *VirtualKnobs) Set(channel int, value uint16) {
	if channel < 0 || channel >= Channels {
		return
	}
	v.ch[channel].Store(uint32(value))
}

// SetMIDI maps a 7-bit controller value onto the full converter range.
func (v *VirtualKnobs) SetMIDI(channel int, value uint8) {
	value &= 0x7f
	v.Set(channel, uint16(value)<<3|uint16(value)>>4)
}

// Read implements ADC.
func (v *VirtualKnobs) Read(channel int) uint16 {
	if channel < 0 || channel >= Channels {
		return 0
	}
	return uint16(v.ch[channel].Load())
}
