package keyboard

import "sync/atomic"

// VirtualKeys is an in-memory key matrix. Keys can be pressed and released
// from any goroutine while a Scanner reads it.
type VirtualKeys struct {
	state atomic.Uint32 // Mask, released = 1
	code  atomic.Uint32
}

// NewVirtualKeys returns a matrix with every key released.
func NewVirtualKeys() *VirtualKeys {
	v := &VirtualKeys{}
	v.state.Store(uint32(AllReleased))
	return v
}

func (v *VirtualKeys) update(f func(Mask) Mask) {
	for {
		old := v.state.Load()
		if v.state.CompareAndSwap(old, uint32(f(Mask(old)))) {
			return
		}
	}
}

// Press puts key i down.
func (v *VirtualKeys) Press(i int) {
	v.update(func(m Mask) Mask { return m.Press(i) })
}

// Release lets key i up.
func (v *VirtualKeys) Release(i int) {
	v.update(func(m Mask) Mask { return m.Release(i) })
}

// ReleaseAll lets every key up.
func (v *VirtualKeys) ReleaseAll() {
	v.state.Store(uint32(AllReleased))
}

// Mask returns the current key state.
func (v *VirtualKeys) Mask() Mask {
	return Mask(v.state.Load())
}

// Address latches the select code.
func (v *VirtualKeys) Address(code uint8) {
	v.code.Store(uint32(code & (KeysPerGroup - 1)))
}

// Sense reports the line level of group at the latched code.
func (v *VirtualKeys) Sense(group int) bool {
	key := group*KeysPerGroup + int(v.code.Load())
	return !v.Mask().Pressed(key)
}

// ExtraInput returns the discrete input wired to the 25th key.
func (v *VirtualKeys) ExtraInput() Input {
	return extraPin{v}
}

type extraPin struct{ v *VirtualKeys }

func (p extraPin) Get() bool {
	return !p.v.Mask().Pressed(ExtraKey)
}
