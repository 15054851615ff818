//go:build !headless

package monitor

import (
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Player plays a Ring through the default sound device.
type Player struct {
	ctx    *oto.Context
	player *oto.Player
	ring   *Ring
}

// Open creates the audio context at sampleRate (mono, signed 16-bit) and
// starts playing ring. It blocks until the device is ready.
func Open(sampleRate int, ring *Ring, volume float64) (*Player, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   40 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("monitor: oto context: %w", err)
	}
	<-ready

	p := ctx.NewPlayer(ring)
	p.SetVolume(volume)
	p.Play()
	return &Player{ctx: ctx, player: p, ring: ring}, nil
}

// Buffered returns the samples queued ahead of the device.
func (p *Player) Buffered() int {
	return p.ring.Buffered() + p.player.BufferedSize()/2
}

// Close stops playback and releases the ring's readers.
func (p *Player) Close() error {
	p.ring.Close()
	return p.player.Close()
}
