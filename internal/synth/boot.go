package synth

import (
	"context"
	"log/slog"
	"time"
)

// LED is the status light.
type LED interface {
	Set(on bool)
}

// BlinkStep is the on and off time of the startup blink.
const BlinkStep = 100 * time.Millisecond

// Banner is printed once at startup.
var Banner = [...]string{"hello", "welcome to synthesizer"}

// Boot runs the startup diagnostics: two blinks of led, then the banner.
// It returns early if ctx is cancelled, leaving the LED off.
func Boot(ctx context.Context, led LED, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	pattern := []bool{true, false, true, false}
	for i, on := range pattern {
		led.Set(on)
		if i == len(pattern)-1 {
			break
		}
		select {
		case <-ctx.Done():
			led.Set(false)
			return ctx.Err()
		case <-time.After(BlinkStep):
		}
	}
	for _, line := range Banner {
		logger.Info(line)
	}
	return nil
}
