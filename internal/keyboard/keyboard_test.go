package keyboard

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func assert[T comparable](t *testing.T, got, want T) {
	t.Helper()

	if got != want {
		t.Fatalf("assertion failed: got = %v want %v", got, want)
	}
}

func TestMaskAccessors(t *testing.T) {
	m := AllReleased
	_, ok := m.Lowest()
	assert(t, ok, false)
	assert(t, m.Count(), 0)

	m = m.Press(7).Press(3).Press(24)
	assert(t, m.Pressed(3), true)
	assert(t, m.Pressed(4), false)
	assert(t, m.Pressed(24), true)
	assert(t, m.Pressed(25), false)
	assert(t, m.Pressed(-1), false)
	assert(t, m.Count(), 3)

	low, ok := m.Lowest()
	assert(t, ok, true)
	assert(t, low, 3)

	m = m.Release(3)
	low, _ = m.Lowest()
	assert(t, low, 7)

	assert(t, m.Press(40), m)
}

func TestMaskGroups(t *testing.T) {
	m := AllReleased.WithGroup(0, 0x12).WithGroup(1, 0x34).WithGroup(2, 0x56)
	assert(t, m.Group(0), uint8(0x12))
	assert(t, m.Group(1), uint8(0x34))
	assert(t, m.Group(2), uint8(0x56))
	assert(t, uint32(m), uint32(0xff563412))
}

// countingMatrix records bus activity and serves a fixed key state.
type countingMatrix struct {
	keys      Mask
	code      uint8
	addresses []uint8
	reads     int
}

func (c *countingMatrix) Address(code uint8) {
	c.code = code
	c.addresses = append(c.addresses, code)
}

func (c *countingMatrix) Sense(group int) bool {
	c.reads++
	return !c.keys.Pressed(group*KeysPerGroup + int(c.code))
}

func TestScanBusActivity(t *testing.T) {
	cm := &countingMatrix{keys: AllReleased}
	s, err := NewScanner(Config{Matrix: cm})
	if err != nil {
		t.Fatal(err)
	}
	s.Scan()
	if diff := cmp.Diff([]uint8{0, 1, 2, 3, 4, 5, 6, 7}, cm.addresses); diff != "" {
		t.Fatalf("select codes (-want +got):\n%s", diff)
	}
	assert(t, cm.reads, 24)
}

func TestScanPlacesBits(t *testing.T) {
	for key := range ExtraKey {
		cm := &countingMatrix{keys: AllReleased.Press(key)}
		s, _ := NewScanner(Config{Matrix: cm})
		m := s.Scan()

		low, ok := m.Lowest()
		if !ok || low != key || m.Count() != 1 {
			t.Fatalf("key %d: scanned %v", key, m)
		}
		assert(t, m.Group(key/KeysPerGroup), ^uint8(1<<(key%KeysPerGroup)))
	}
}

func TestScanExtraKey(t *testing.T) {
	keys := NewVirtualKeys()
	keys.Press(ExtraKey)

	t.Run("idle", func(t *testing.T) {
		s, err := NewScanner(Config{Matrix: keys})
		if err != nil {
			t.Fatal(err)
		}
		assert(t, s.Scan(), AllReleased)
	})
	t.Run("discrete", func(t *testing.T) {
		s, err := NewScanner(Config{
			Matrix:     keys,
			ExtraKey:   ExtraKeyDiscrete,
			ExtraInput: keys.ExtraInput(),
		})
		if err != nil {
			t.Fatal(err)
		}
		m := s.Scan()
		assert(t, m.Pressed(ExtraKey), true)
		assert(t, m.Count(), 1)
	})
	t.Run("discrete without input", func(t *testing.T) {
		if _, err := NewScanner(Config{Matrix: keys, ExtraKey: ExtraKeyDiscrete}); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestParseExtraKeySource(t *testing.T) {
	src, err := ParseExtraKeySource("discrete")
	if err != nil {
		t.Fatal(err)
	}
	assert(t, src, ExtraKeyDiscrete)
	assert(t, src.String(), "discrete")
	if _, err := ParseExtraKeySource("jumper"); err == nil {
		t.Fatal("expected error")
	}
}

type pin struct{ high bool }

func (p *pin) Set(high bool) { p.high = high }
func (p *pin) Get() bool     { return p.high }

func TestPinMatrix(t *testing.T) {
	var a, b, c pin
	lines := [Groups]*pin{{high: true}, {high: false}, {high: true}}
	pm := &PinMatrix{SelA: &a, SelB: &b, SelC: &c, Lines: [Groups]Input{lines[0], lines[1], lines[2]}}

	pm.Address(5)
	assert(t, a.high, true)
	assert(t, b.high, false)
	assert(t, c.high, true)

	pm.Address(2)
	assert(t, a.high, false)
	assert(t, b.high, true)
	assert(t, c.high, false)

	assert(t, pm.Sense(0), true)
	assert(t, pm.Sense(1), false)
}

func TestVirtualKeysConcurrentScan(t *testing.T) {
	keys := NewVirtualKeys()
	s, _ := NewScanner(Config{Matrix: keys})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 1000 {
			keys.Press(i % NumKeys)
			keys.Release(i % NumKeys)
		}
	}()
	go func() {
		defer wg.Done()
		for range 200 {
			s.Scan()
		}
	}()
	wg.Wait()

	keys.ReleaseAll()
	keys.Press(10)
	m := s.Scan()
	low, _ := m.Lowest()
	assert(t, low, 10)
	assert(t, keys.Mask(), AllReleased.Press(10))
}
