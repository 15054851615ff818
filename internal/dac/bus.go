package dac

import "errors"

// Bus is a synchronous serial link to the converter with a frame-select
// line. WriteByte must not return until the byte has been shifted out.
type Bus interface {
	SetFrameSelect(low bool) error
	WriteByte(b byte) error
}

// Transmit sends f as one framed burst: select low, both bytes MSB first,
// select high. The select line is released even when a byte write fails.
func Transmit(bus Bus, f Frame) error {
	if err := bus.SetFrameSelect(true); err != nil {
		return err
	}
	err := bus.WriteByte(f[0])
	if err == nil {
		err = bus.WriteByte(f[1])
	}
	return errors.Join(err, bus.SetFrameSelect(false))
}

type multiBus []Bus

// MultiBus returns a Bus that duplicates every call to each of buses, in
// order. All buses see every call; the first error is returned.
func MultiBus(buses ...Bus) Bus {
	all := make(multiBus, 0, len(buses))
	for _, b := range buses {
		if mb, ok := b.(multiBus); ok {
			all = append(all, mb...)
		} else {
			all = append(all, b)
		}
	}
	return all
}

func (m multiBus) SetFrameSelect(low bool) error {
	var first error
	for _, b := range m {
		if err := b.SetFrameSelect(low); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m multiBus) WriteByte(c byte) error {
	var first error
	for _, b := range m {
		if err := b.WriteByte(c); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Discard is a Bus that accepts everything.
var Discard Bus = discard{}

type discard struct{}

func (discard) SetFrameSelect(bool) error { return nil }
func (discard) WriteByte(byte) error      { return nil }
