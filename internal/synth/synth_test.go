package synth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/chase3718/pocket-piano/internal/control"
	"github.com/chase3718/pocket-piano/internal/dac"
	"github.com/chase3718/pocket-piano/internal/dds"
	"github.com/chase3718/pocket-piano/internal/keyboard"
	"github.com/chase3718/pocket-piano/internal/realtime"
	"github.com/chase3718/pocket-piano/internal/wavetable"
)

func assert[T comparable](t *testing.T, got, want T) {
	t.Helper()

	if got != want {
		t.Fatalf("assertion failed: got = %v want %v", got, want)
	}
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// frameBus collects every transmitted frame.
type frameBus struct {
	frames []dac.Frame
	cur    dac.Frame
	n      int
	fail   error
}

func (b *frameBus) SetFrameSelect(low bool) error {
	if low {
		b.n = 0
	} else {
		b.frames = append(b.frames, b.cur)
	}
	return nil
}

func (b *frameBus) WriteByte(c byte) error {
	if b.fail != nil {
		return b.fail
	}
	b.cur[b.n%2] = c
	b.n++
	return nil
}

type rig struct {
	synth *Synth
	keys  *keyboard.VirtualKeys
	knobs *control.VirtualKnobs
	bus   *frameBus
}

func newRig(t *testing.T, mode dds.Mode) rig {
	t.Helper()

	keys := keyboard.NewVirtualKeys()
	knobs := &control.VirtualKnobs{}
	bus := &frameBus{}
	s, err := New(Config{
		Mode:   mode,
		Bus:    bus,
		Keys:   keyboard.Config{Matrix: keys},
		ADC:    knobs,
		Logger: quiet,
	})
	if err != nil {
		t.Fatal(err)
	}
	return rig{synth: s, keys: keys, knobs: knobs, bus: bus}
}

func TestNewValidates(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNoBus) {
		t.Fatalf("New without bus = %v", err)
	}
	if _, err := New(Config{Bus: dac.Discard}); err == nil {
		t.Fatal("expected error without ADC")
	}
	if _, err := New(Config{Bus: dac.Discard, ADC: &control.VirtualKnobs{}}); err == nil {
		t.Fatal("expected error without matrix")
	}
}

func TestSilentUntilKeyDown(t *testing.T) {
	r := newRig(t, dds.ModeFM)
	r.knobs.Set(control.ChannelPitchScale, 1000)
	r.knobs.Set(control.ChannelDepth, 600)
	r.knobs.Set(control.ChannelHarmonicity, 300)

	if err := r.synth.Render(context.Background(), 500); err != nil {
		t.Fatal(err)
	}
	for i, f := range r.bus.frames {
		if f != (dac.Frame{0x30, 0x00}) {
			t.Fatalf("frame %d = %#v, want silence", i, f)
		}
	}
	assert(t, len(r.bus.frames), 500)
	assert(t, r.synth.Stats().Ticks, uint64(500))
}

// Key 0 alone at the reference pitch scale with no modulation is a pure
// tone at the key's table increment and full gain, the same carrier the
// simple oscillator produces for that increment.
func TestPureToneAtReferenceScale(t *testing.T) {
	r := newRig(t, dds.ModeFM)
	n := control.NewResolver(control.ScaleKnob).Resolve(keyboard.AllReleased.Press(0), control.ScaleReference)
	assert(t, n.Increment, uint16(control.PitchTable[0]))
	assert(t, n.Gain, uint8(control.FullGain))

	snap := r.synth.Snapshot()
	snap.Increment, snap.Gain = n.Increment, n.Gain
	r.synth.cell.Store(snap)

	simple := dds.New(dds.ModeSimple, nil)
	var phase dds.Phase
	var want []dac.Frame
	for range 1000 {
		r.synth.AudioTick()
		phase = phase.Advance(n.Increment)
		amp := simple.Step(snap)
		assert(t, amp, wavetable.Sine[phase.Index()])
		want = append(want, dac.Encode(uint16(amp)*control.FullGain))
	}
	if diff := cmp.Diff(want, r.bus.frames); diff != "" {
		t.Fatalf("frames (-want +got):\n%s", diff)
	}
}

func TestRenderFollowsKeys(t *testing.T) {
	for _, mode := range []dds.Mode{dds.ModeSimple, dds.ModeFM} {
		t.Run(mode.String(), func(t *testing.T) {
			r := newRig(t, mode)
			r.knobs.Set(control.ChannelPitchScale, control.ADCMax)
			r.keys.Press(12)
			r.keys.Press(20)

			if err := r.synth.Render(context.Background(), 100); err != nil {
				t.Fatal(err)
			}
			snap := r.synth.Snapshot()
			want := uint16(control.PitchTable[12] >> 2)
			if mode == dds.ModeFM {
				want = uint16((control.PitchTable[12] * control.ADCMax) >> 12)
			}
			assert(t, snap.Increment, want)
			assert(t, snap.Gain, uint8(control.FullGain))

			r.keys.ReleaseAll()
			if err := r.synth.Render(context.Background(), 100); err != nil {
				t.Fatal(err)
			}
			snap = r.synth.Snapshot()
			assert(t, snap.Gain, uint8(0))
			assert(t, snap.Increment, want)
		})
	}
}

func TestControlStepEvery(t *testing.T) {
	r := newRig(t, dds.ModeSimple)
	r.keys.Press(1)
	// 78 ticks per 5ms control period at 15625 Hz: the key lands on the
	// first step, before the first sample
	if err := r.synth.Render(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	assert(t, r.synth.Snapshot().Gain, uint8(control.FullGain))
}

func TestBusErrorsAreCounted(t *testing.T) {
	r := newRig(t, dds.ModeFM)
	r.bus.fail = errors.New("spi stuck")
	for range 10 {
		r.synth.AudioTick()
	}
	st := r.synth.Stats()
	assert(t, st.BusErrors, uint64(10))
	assert(t, st.Ticks, uint64(10))
	if p := r.synth.lastErr.Load(); p == nil || (*p).Error() != "spi stuck" {
		t.Fatalf("last error = %v", p)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	keys := keyboard.NewVirtualKeys()
	bus := &frameBus{}
	s, err := New(Config{
		Mode:          dds.ModeFM,
		Bus:           bus,
		Clock:         realtime.Counter{N: 2000},
		Keys:          keyboard.Config{Matrix: keys},
		ADC:           &control.VirtualKnobs{},
		StatsInterval: time.Millisecond,
		Logger:        quiet,
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = s.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run = %v", err)
	}
	assert(t, s.Stats().Ticks, uint64(2000))
}

type led struct{ history []bool }

func (l *led) Set(on bool) { l.history = append(l.history, on) }

func TestBoot(t *testing.T) {
	var l led
	if err := Boot(context.Background(), &l, quiet); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]bool{true, false, true, false}, l.history); diff != "" {
		t.Fatalf("blink (-want +got):\n%s", diff)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l.history = nil
	if err := Boot(ctx, &l, quiet); !errors.Is(err, context.Canceled) {
		t.Fatalf("Boot on cancelled ctx = %v", err)
	}
	if diff := cmp.Diff([]bool{true, false}, l.history); diff != "" {
		t.Fatalf("aborted blink (-want +got):\n%s", diff)
	}
}
