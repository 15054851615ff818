// Package synth assembles the instrument: the audio tick that runs the
// oscillator and feeds the DAC, and the control loop that scans the keys and
// knobs, connected by a single shared snapshot.
package synth

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chase3718/pocket-piano/internal/control"
	"github.com/chase3718/pocket-piano/internal/dac"
	"github.com/chase3718/pocket-piano/internal/dds"
	"github.com/chase3718/pocket-piano/internal/keyboard"
	"github.com/chase3718/pocket-piano/internal/realtime"
	"github.com/chase3718/pocket-piano/internal/shared"
)

// ErrNoBus is returned by New when no DAC bus is configured.
var ErrNoBus = errors.New("synth: no DAC bus")

// DefaultStatsInterval is how often Run reports bus and clock trouble.
const DefaultStatsInterval = time.Second

// Config wires a Synth.
type Config struct {
	Mode       dds.Mode
	SampleRate int // dds.SampleRate when zero

	Bus   dac.Bus
	Clock realtime.Clock // HostClock at SampleRate when nil

	Keys          keyboard.Config
	ADC           control.ADC
	ControlPeriod time.Duration // control.DefaultPeriod when zero

	StatsInterval time.Duration // DefaultStatsInterval when zero
	Logger        *slog.Logger  // slog.Default() when nil
}

// Stats counts audio-side events.
type Stats struct {
	Ticks     uint64
	BusErrors uint64
	Clock     realtime.Stats
}

// Synth is one instrument instance.
type Synth struct {
	mode       dds.Mode
	sampleRate int
	period     time.Duration
	interval   time.Duration
	bus        dac.Bus
	clock      realtime.Clock
	logger     *slog.Logger

	engine *dds.Engine
	cell   shared.Cell
	loop   *control.Loop

	ticks     atomic.Uint64
	busErrors atomic.Uint64
	lastErr   atomic.Pointer[error]
}

// New validates cfg and builds a Synth. The variant's pitch scaling follows
// the mode: fixed for ModeSimple, knob-scaled for ModeFM.
func New(cfg Config) (*Synth, error) {
	if cfg.Bus == nil {
		return nil, ErrNoBus
	}
	if cfg.ADC == nil {
		return nil, errors.New("synth: no knob ADC")
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = dds.SampleRate
	}
	if cfg.ControlPeriod <= 0 {
		cfg.ControlPeriod = control.DefaultPeriod
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = DefaultStatsInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = &realtime.HostClock{Rate: cfg.SampleRate}
	}

	scanner, err := keyboard.NewScanner(cfg.Keys)
	if err != nil {
		return nil, err
	}
	scaling := control.ScaleFixed
	if cfg.Mode == dds.ModeFM {
		scaling = control.ScaleKnob
	}

	s := &Synth{
		mode:       cfg.Mode,
		sampleRate: cfg.SampleRate,
		period:     cfg.ControlPeriod,
		interval:   cfg.StatsInterval,
		bus:        cfg.Bus,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		engine:     dds.New(cfg.Mode, nil),
	}
	s.loop, err = control.NewLoop(control.Config{
		Scanner:  scanner,
		Knobs:    control.NewReader(cfg.ADC),
		Resolver: control.NewResolver(scaling),
		Cell:     &s.cell,
		Period:   cfg.ControlPeriod,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// AudioTick produces and transmits exactly one sample. It is the body of the
// fixed-rate task and must not be called concurrently with itself.
func (s *Synth) AudioTick() {
	sample := s.engine.Tick(s.cell.Load())
	if err := dac.Transmit(s.bus, dac.Encode(sample)); err != nil {
		if s.busErrors.Add(1) == 1 {
			s.lastErr.Store(&err)
		}
	}
	s.ticks.Add(1)
}

// ControlStep runs one control loop iteration and returns what it published.
func (s *Synth) ControlStep() shared.Snapshot {
	return s.loop.Step()
}

// Snapshot returns the state the next audio tick will consume.
func (s *Synth) Snapshot() shared.Snapshot {
	return s.cell.Load()
}

// Stats returns the audio-side counters.
func (s *Synth) Stats() Stats {
	st := Stats{
		Ticks:     s.ticks.Load(),
		BusErrors: s.busErrors.Load(),
	}
	if c, ok := s.clock.(interface{ Stats() realtime.Stats }); ok {
		st.Clock = c.Stats()
	}
	return st
}

// Run starts the audio task on the clock and the control loop beside it, and
// blocks until ctx is done or a task fails.
func (s *Synth) Run(ctx context.Context) error {
	s.logger.Info("synth: running",
		"mode", s.mode,
		"sample_rate", s.sampleRate,
		"control_period", s.period,
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.clock.Run(ctx, s.AudioTick) })
	g.Go(func() error { return s.loop.Run(ctx) })
	g.Go(func() error { return s.report(ctx) })
	return g.Wait()
}

// Render runs ticks audio ticks back to back, interleaving one control step
// every control period's worth of samples, starting with one. The output is
// a pure function of the inputs, so it suits offline capture and tests.
func (s *Synth) Render(ctx context.Context, ticks int) error {
	every := max(1, int(int64(s.sampleRate)*int64(s.period)/int64(time.Second)))
	var i int
	return realtime.Counter{N: ticks}.Run(ctx, func() {
		if i%every == 0 {
			s.loop.Step()
		}
		i++
		s.AudioTick()
	})
}

func (s *Synth) report(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	var last Stats
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		st := s.Stats()
		if st.BusErrors > last.BusErrors {
			attrs := []any{"errors", st.BusErrors - last.BusErrors, "total", st.BusErrors}
			if last.BusErrors == 0 {
				if p := s.lastErr.Load(); p != nil {
					attrs = append(attrs, "err", *p)
				}
			}
			s.logger.Warn("synth: DAC bus errors", attrs...)
		}
		if st.Clock.Overruns > last.Clock.Overruns {
			s.logger.Warn("synth: audio deadline missed",
				"overruns", st.Clock.Overruns-last.Clock.Overruns,
				"dropped_ticks", st.Clock.Dropped-last.Clock.Dropped,
			)
		}
		s.logger.Debug("synth: stats", "ticks", st.Ticks, "ticks_per_interval", st.Ticks-last.Ticks)
		last = st
	}
}
