//go:build headless

package monitor

import "errors"

// Player is unavailable in headless builds.
type Player struct{}

// Open always fails in headless builds.
func Open(sampleRate int, ring *Ring, volume float64) (*Player, error) {
	return nil, errors.New("monitor: built without audio output")
}

// Buffered returns 0.
func (p *Player) Buffered() int { return 0 }

// Close does nothing.
func (p *Player) Close() error { return nil }
