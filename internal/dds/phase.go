package dds

// Phase is a 16-bit phase accumulator. A full table cycle is 2^16 counts and
// the natural uint16 overflow is the periodic wrap.
type Phase uint16

// Advance returns p moved forward by inc counts, modulo 2^16.
func (p Phase) Advance(inc uint16) Phase {
	return p + Phase(inc)
}

// Index returns the wavetable slot for p, the accumulator's top byte.
func (p Phase) Index() uint8 {
	return uint8(p >> 8)
}

// IncrementFor converts a frequency in hertz to a phase increment at the given
// sample rate: hz * 65536 / sampleRate, truncated.
func IncrementFor(hz float64, sampleRate int) uint16 {
	if hz <= 0 || sampleRate <= 0 {
		return 0
	}
	return uint16(uint32(hz * 65536 / float64(sampleRate)))
}

// Frequency is the inverse of IncrementFor.
func Frequency(inc uint16, sampleRate int) float64 {
	return float64(inc) * float64(sampleRate) / 65536
}
