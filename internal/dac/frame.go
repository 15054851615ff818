// Package dac formats samples for a 12-bit SPI DAC of the MCP4921 kind and
// clocks them out over a synchronous byte bus.
package dac

const (
	// Bits is the converter resolution.
	Bits = 12
	// MaxValue is the largest code the converter accepts.
	MaxValue = 1<<Bits - 1

	// CmdWrite is the configuration nibble sent ahead of every value:
	// DAC A, unbuffered reference, 1x gain, output enabled.
	CmdWrite = 0x3

	cmdShift  = 4
	valueMask = 0x0f
)

// Frame is the two-byte word a single conversion needs:
//
//	[CMD:4][D11..D8]  [D7..D0]
type Frame [2]byte

// Encode packs a 16-bit, left-justified sample into a Frame. Only the top
// Bits bits of the sample reach the converter.
func Encode(sample uint16) Frame {
	v := sample >> (16 - Bits)
	return Frame{
		CmdWrite<<cmdShift | byte(v>>8)&valueMask,
		byte(v),
	}
}

// FromValue left-justifies a 12-bit converter code into a 16-bit sample.
// Bits above the converter width are discarded.
func FromValue(v uint16) uint16 {
	return (v & MaxValue) << (16 - Bits)
}

// Command returns the configuration nibble carried in the first byte.
func (f Frame) Command() uint8 {
	return f[0] >> cmdShift
}

// Value returns the 12-bit converter code carried by f.
func (f Frame) Value() uint16 {
	return uint16(f[0]&valueMask)<<8 | uint16(f[1])
}
