package control

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/chase3718/pocket-piano/internal/keyboard"
	"github.com/chase3718/pocket-piano/internal/shared"
)

// DefaultPeriod is the pause between control steps. The effective rate is a
// little under 1/DefaultPeriod because the scan itself takes time.
const DefaultPeriod = 5 * time.Millisecond

// Config wires a Loop.
type Config struct {
	Scanner  *keyboard.Scanner
	Knobs    *Reader
	Resolver *Resolver
	Cell     *shared.Cell
	Period   time.Duration // DefaultPeriod when zero
	Logger   *slog.Logger  // slog.Default() when nil
}

// Loop is the best-effort control task. It is not safe to Step from more
// than one goroutine.
type Loop struct {
	scanner  *keyboard.Scanner
	knobs    *Reader
	resolver *Resolver
	cell     *shared.Cell
	period   time.Duration
	logger   *slog.Logger

	lastKey int
}

// NewLoop validates cfg and returns a Loop.
func NewLoop(cfg Config) (*Loop, error) {
	if cfg.Scanner == nil || cfg.Knobs == nil || cfg.Resolver == nil || cfg.Cell == nil {
		return nil, errors.New("control: incomplete loop config")
	}
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loop{
		scanner:  cfg.Scanner,
		knobs:    cfg.Knobs,
		resolver: cfg.Resolver,
		cell:     cfg.Cell,
		period:   cfg.Period,
		logger:   cfg.Logger,
		lastKey:  -1,
	}, nil
}

// Step reads the knobs, scans the keyboard, resolves the note and publishes
// the snapshot, which it also returns.
func (l *Loop) Step() shared.Snapshot {
	k := l.knobs.Read()
	mask := l.scanner.Scan()
	n := l.resolver.Resolve(mask, k.PitchScale)

	s := shared.Snapshot{
		Increment:   n.Increment,
		Gain:        n.Gain,
		Depth:       k.Depth,
		Harmonicity: k.Harmonicity,
		PitchScale:  k.PitchScale,
	}
	l.cell.Store(s)

	if n.Key != l.lastKey {
		if n.Sounding() {
			l.logger.Debug("control: note on", "key", n.Key, "increment", n.Increment, "held", mask.Count())
		} else {
			l.logger.Debug("control: note off", "key", l.lastKey)
		}
		l.lastKey = n.Key
	}
	return s
}

// Run steps until ctx is done, pausing for the configured period after
// each step. It returns ctx's error.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("control: loop running", "period", l.period)
	t := time.NewTimer(l.period)
	defer t.Stop()
	for {
		l.Step()
		t.Reset(l.period)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
