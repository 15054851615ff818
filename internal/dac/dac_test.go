package dac

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func assert[T comparable](t *testing.T, got, want T) {
	t.Helper()

	if got != want {
		t.Fatalf("assertion failed: got = %v want %v", got, want)
	}
}

func TestEncodeBitPacking(t *testing.T) {
	f := Encode(FromValue(0xabc))
	assert(t, f, Frame{0x3a, 0xbc})
	assert(t, f.Command(), uint8(CmdWrite))
	assert(t, f.Value(), uint16(0xabc))
}

func TestEncode(t *testing.T) {
	tests := []struct {
		sample uint16
		want   Frame
	}{
		{0x0000, Frame{0x30, 0x00}},
		{0xffff, Frame{0x3f, 0xff}},
		{0x8000, Frame{0x38, 0x00}},
		{0x800f, Frame{0x38, 0x00}}, // below converter resolution
		{0xff << 8, Frame{0x3f, 0xf0}},
		{0x80 * 0xff, Frame{0x37, 0xf8}}, // FM centre line at full gain
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%#04x", tt.sample), func(t *testing.T) {
			assert(t, Encode(tt.sample), tt.want)
		})
	}
}

func TestFromValueMasks(t *testing.T) {
	assert(t, FromValue(0xfabc), uint16(0xabc0))
	assert(t, FromValue(MaxValue), uint16(0xfff0))
}

func TestValueRoundTrip(t *testing.T) {
	for v := uint16(0); v <= MaxValue; v++ {
		if got := Encode(FromValue(v)).Value(); got != v {
			t.Fatalf("Value(Encode(%#x)) = %#x", v, got)
		}
	}
}

type call struct {
	op string
	b  byte
}

type recordingBus struct {
	calls   []call
	failOn  int // 1-based WriteByte index to fail, 0 = never
	written int
}

func (r *recordingBus) SetFrameSelect(low bool) error {
	op := "cs-high"
	if low {
		op = "cs-low"
	}
	r.calls = append(r.calls, call{op: op})
	return nil
}

func (r *recordingBus) WriteByte(b byte) error {
	r.written++
	if r.failOn == r.written {
		return errors.New("bus fault")
	}
	r.calls = append(r.calls, call{op: "byte", b: b})
	return nil
}

func TestTransmitFraming(t *testing.T) {
	var bus recordingBus
	if err := Transmit(&bus, Frame{0x3a, 0xbc}); err != nil {
		t.Fatal(err)
	}
	want := []call{
		{op: "cs-low"},
		{op: "byte", b: 0x3a},
		{op: "byte", b: 0xbc},
		{op: "cs-high"},
	}
	if diff := cmp.Diff(want, bus.calls, cmp.AllowUnexported(call{})); diff != "" {
		t.Fatalf("bus calls (-want +got):\n%s", diff)
	}
}

func TestTransmitReleasesSelectOnError(t *testing.T) {
	bus := recordingBus{failOn: 1}
	if err := Transmit(&bus, Frame{0x30, 0x00}); err == nil {
		t.Fatal("expected error")
	}
	want := []call{{op: "cs-low"}, {op: "cs-high"}}
	if diff := cmp.Diff(want, bus.calls, cmp.AllowUnexported(call{})); diff != "" {
		t.Fatalf("bus calls (-want +got):\n%s", diff)
	}
}

func TestMultiBus(t *testing.T) {
	var a, b recordingBus
	c := recordingBus{failOn: 2}
	mb := MultiBus(&a, MultiBus(&b, &c))

	err := Transmit(mb, Frame{0x31, 0x23})
	if err == nil {
		t.Fatal("expected error from failing bus")
	}
	if diff := cmp.Diff(a.calls, b.calls, cmp.AllowUnexported(call{})); diff != "" {
		t.Fatalf("fan-out mismatch (-a +b):\n%s", diff)
	}
	assert(t, len(a.calls), 4)
	assert(t, len(c.calls), 3)
}

func TestDiscard(t *testing.T) {
	if err := Transmit(Discard, Encode(0x1234)); err != nil {
		t.Fatal(err)
	}
}
