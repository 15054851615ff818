// Package keyboard scans the 25-key multiplexed keyboard into a bit mask.
package keyboard

import (
	"fmt"
	"math/bits"
)

const (
	// NumKeys is the number of keys on the instrument.
	NumKeys = 25
	// Groups is the number of multiplexers; each reads KeysPerGroup keys.
	Groups = 3
	// KeysPerGroup is the number of select codes per multiplexer.
	KeysPerGroup = 8
	// ExtraKey is the index of the key that is not behind a multiplexer.
	ExtraKey = Groups * KeysPerGroup
)

// Mask holds one bit per key. A set bit means released (lines idle high),
// a clear bit means pressed.
type Mask uint32

// AllReleased is the mask with no key down.
const AllReleased Mask = 0xffffffff

// keyBits covers the bits that correspond to real keys.
const keyBits Mask = 1<<NumKeys - 1

// Pressed reports whether key i is down. Indices outside the keyboard are
// never pressed.
func (m Mask) Pressed(i int) bool {
	if i < 0 || i >= NumKeys {
		return false
	}
	return m&(1<<uint(i)) == 0
}

// Press returns m with key i down.
func (m Mask) Press(i int) Mask {
	if i < 0 || i >= NumKeys {
		return m
	}
	return m &^ (1 << uint(i))
}

// Release returns m with key i up.
func (m Mask) Release(i int) Mask {
	if i < 0 || i >= NumKeys {
		return m
	}
	return m | 1<<uint(i)
}

// Lowest returns the lowest pressed key, or false when none is down.
func (m Mask) Lowest() (int, bool) {
	down := ^m & keyBits
	if down == 0 {
		return 0, false
	}
	return bits.TrailingZeros32(uint32(down)), true
}

// Count returns the number of keys held down.
func (m Mask) Count() int {
	return bits.OnesCount32(uint32(^m & keyBits))
}

// Group returns the 8-bit field read from multiplexer g.
func (m Mask) Group(g int) uint8 {
	return uint8(m >> (uint(g) * KeysPerGroup))
}

// WithGroup returns m with multiplexer g's field replaced by v.
func (m Mask) WithGroup(g int, v uint8) Mask {
	shift := uint(g) * KeysPerGroup
	return m&^(0xff<<shift) | Mask(v)<<shift
}

func (m Mask) String() string {
	return fmt.Sprintf("%025b", uint32(m&keyBits))
}
