package keyboard

import (
	"errors"
	"fmt"
	"sync"
)

// Matrix is the multiplexed key bus. Address drives the three select lines
// to code; Sense then samples the output line of multiplexer group. A high
// line is a released key.
type Matrix interface {
	Address(code uint8)
	Sense(group int) bool
}

// Input is a single digital input pin.
type Input interface {
	Get() bool
}

// Output is a single digital output pin.
type Output interface {
	Set(high bool)
}

// ExtraKeySource selects where the 25th key is read from.
type ExtraKeySource int

const (
	// ExtraKeyIdle reports the 25th key as permanently released, for boards
	// where it is not wired.
	ExtraKeyIdle ExtraKeySource = iota
	// ExtraKeyDiscrete reads the 25th key from its own input, low when
	// pressed, for boards with the extra-key modification.
	ExtraKeyDiscrete
)

func (s ExtraKeySource) String() string {
	switch s {
	case ExtraKeyIdle:
		return "idle"
	case ExtraKeyDiscrete:
		return "discrete"
	}
	return fmt.Sprintf("ExtraKeySource(%d)", int(s))
}

// ParseExtraKeySource maps a flag value to an ExtraKeySource.
func ParseExtraKeySource(s string) (ExtraKeySource, error) {
	switch s {
	case "idle":
		return ExtraKeyIdle, nil
	case "discrete":
		return ExtraKeyDiscrete, nil
	}
	return 0, fmt.Errorf("keyboard: unknown 25th key source %q", s)
}

// Config describes the wiring a Scanner reads.
type Config struct {
	Matrix     Matrix
	ExtraKey   ExtraKeySource
	ExtraInput Input // required with ExtraKeyDiscrete
}

// Scanner produces instantaneous key masks. Scans are serialized: a scan
// started while another is running waits for it to finish.
type Scanner struct {
	mu     sync.Mutex
	matrix Matrix
	extra  Input
}

// NewScanner validates cfg and returns a Scanner for it.
func NewScanner(cfg Config) (*Scanner, error) {
	if cfg.Matrix == nil {
		return nil, errors.New("keyboard: no matrix")
	}
	s := &Scanner{matrix: cfg.Matrix}
	switch cfg.ExtraKey {
	case ExtraKeyIdle:
	case ExtraKeyDiscrete:
		if cfg.ExtraInput == nil {
			return nil, errors.New("keyboard: discrete 25th key needs an input")
		}
		s.extra = cfg.ExtraInput
	default:
		return nil, fmt.Errorf("keyboard: bad 25th key source %v", cfg.ExtraKey)
	}
	return s, nil
}

// Scan walks the eight select codes, sampling every group at each one, and
// returns the resulting mask. Bits above the key range read as released.
// There is no debouncing.
func (s *Scanner) Scan() Mask {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fields [Groups]uint8
	for code := range uint8(KeysPerGroup) {
		s.matrix.Address(code)
		for g := range Groups {
			if s.matrix.Sense(g) {
				fields[g] |= 1 << code
			}
		}
	}

	m := AllReleased
	for g, v := range fields {
		m = m.WithGroup(g, v)
	}
	if s.extra != nil && !s.extra.Get() {
		m = m.Press(ExtraKey)
	}
	return m
}

// PinMatrix drives the multiplexers from individual GPIO pins.
type PinMatrix struct {
	SelA, SelB, SelC Output
	Lines            [Groups]Input
}

// Address puts code on the select lines, A being the least significant bit.
func (p *PinMatrix) Address(code uint8) {
	p.SelA.Set(code&1 != 0)
	p.SelB.Set(code&2 != 0)
	p.SelC.Set(code&4 != 0)
}

// Sense reads the output line of the given group.
func (p *PinMatrix) Sense(group int) bool {
	return p.Lines[group].Get()
}
