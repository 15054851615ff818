// Command pocketpiano runs the Pocket Piano synth engine on a host: a MIDI
// controller stands in for the key matrix and knobs, and the DAC stream goes
// to a serial bridge, the sound card, or a WAV file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/chase3718/pocket-piano/internal/control"
	"github.com/chase3718/pocket-piano/internal/dac"
	"github.com/chase3718/pocket-piano/internal/dds"
	"github.com/chase3718/pocket-piano/internal/keyboard"
	"github.com/chase3718/pocket-piano/internal/monitor"
	"github.com/chase3718/pocket-piano/internal/synth"
	"github.com/chase3718/pocket-piano/internal/wave"
)

// -------------------- Logger --------------------

// logger is the package-wide structured logger. Safe to use before initLogger
// is called; defaults to slog.Default().
var logger = slog.Default()

// initLogger configures the shared slog logger and calls slog.SetDefault so
// the stdlib log package also routes through the same handler.
func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

// -------------------- Tunables --------------------

const (
	monitorRingSamples = 4096 // ~260ms at 15625 Hz
	watcherTick        = 250 * time.Millisecond
)

// options is everything main reads from the command line.
type options struct {
	debug         bool
	mode          dds.Mode
	extraKey      keyboard.ExtraKeySource
	serialDev     string
	baud          int
	monitor       bool
	volume        float64
	midi          bool
	baseNote      int
	ccHarmonicity int
	ccDepth       int
	ccPitch       int
	harmonicity   int
	depth         int
	pitchScale    int
	controlPeriod time.Duration
	render        string
	duration      time.Duration
	keys          []int
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("pocketpiano", flag.ContinueOnError)
	fs.BoolVar(&o.debug, "debug", false, "enable debug logging (adds source location)")
	mode := fs.String("mode", "fm", "oscillator variant: simple or fm")
	extra := fs.String("key25", "idle", "25th key source: idle or discrete")
	fs.StringVar(&o.serialDev, "serial", "", "serial device to stream DAC frames to (none when empty)")
	fs.IntVar(&o.baud, "baud", 500000, "serial baud rate")
	fs.BoolVar(&o.monitor, "monitor", true, "play the DAC stream on the sound card")
	fs.Float64Var(&o.volume, "volume", 0.5, "monitor volume, 0 to 1")
	fs.BoolVar(&o.midi, "midi", true, "take keys and knobs from a MIDI controller")
	fs.IntVar(&o.baseNote, "base-note", 48, "MIDI note played by the lowest key")
	fs.IntVar(&o.ccHarmonicity, "cc-harmonicity", 74, "MIDI controller for the harmonicity knob")
	fs.IntVar(&o.ccDepth, "cc-depth", 1, "MIDI controller for the modulation depth knob")
	fs.IntVar(&o.ccPitch, "cc-pitch", 71, "MIDI controller for the pitch scale knob")
	fs.IntVar(&o.harmonicity, "harmonicity", 256, "initial harmonicity knob reading (0-1023)")
	fs.IntVar(&o.depth, "depth", 0, "initial modulation depth knob reading (0-1023)")
	fs.IntVar(&o.pitchScale, "pitch-scale", control.ADCMax, "initial pitch scale knob reading (0-1023)")
	fs.DurationVar(&o.controlPeriod, "control-period", control.DefaultPeriod, "pause between control loop steps")
	fs.StringVar(&o.render, "render", "", "render offline to this WAV file instead of running live")
	fs.DurationVar(&o.duration, "duration", 2*time.Second, "length of an offline render")
	keys := fs.String("keys", "0", "comma separated keys held during an offline render")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	var err error
	if o.mode, err = dds.ParseMode(*mode); err != nil {
		return o, err
	}
	if o.extraKey, err = keyboard.ParseExtraKeySource(*extra); err != nil {
		return o, err
	}
	if o.keys, err = parseKeys(*keys); err != nil {
		return o, err
	}
	return o, nil
}

func parseKeys(s string) ([]int, error) {
	var keys []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		k, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("bad key %q: %w", f, err)
		}
		if k < 0 || k >= keyboard.NumKeys {
			return nil, fmt.Errorf("key %d out of range 0-%d", k, keyboard.NumKeys-1)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// -------------------- Host pins --------------------

// logLED stands in for the board LED.
type logLED struct{}

func (logLED) Set(on bool) { logger.Debug("led", "on", on) }

// -------------------- Main --------------------

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	initLogger(o.debug)
	logger.Info("pocketpiano starting",
		"mode", o.mode,
		"key25", o.extraKey,
		"serial", o.serialDev,
		"monitor", o.monitor,
		"render", o.render,
		"sample_rate", dds.SampleRate,
		"control_period", o.controlPeriod,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("pocketpiano: stopped", "err", err)
		os.Exit(1)
	}
	logger.Info("pocketpiano: bye")
}

func run(ctx context.Context, o options) error {
	keys := keyboard.NewVirtualKeys()
	knobs := &control.VirtualKnobs{}
	knobs.Set(control.ChannelHarmonicity, uint16(o.harmonicity))
	knobs.Set(control.ChannelDepth, uint16(o.depth))
	knobs.Set(control.ChannelPitchScale, uint16(o.pitchScale))

	kc := keyboard.Config{Matrix: keys, ExtraKey: o.extraKey}
	if o.extraKey == keyboard.ExtraKeyDiscrete {
		kc.ExtraInput = keys.ExtraInput()
	}

	if err := synth.Boot(ctx, logLED{}, logger); err != nil {
		return err
	}

	if o.render != "" {
		return renderFile(ctx, o, kc, keys, knobs)
	}

	var buses []dac.Bus
	if o.serialDev != "" {
		sb, err := OpenSerial(o.serialDev, o.baud)
		if err != nil {
			return err
		}
		defer sb.Close()
		buses = append(buses, sb)
	}
	if o.monitor {
		ring := monitor.NewRing(monitorRingSamples)
		p, err := monitor.Open(dds.SampleRate, ring, o.volume)
		if err != nil {
			logger.Warn("monitor: unavailable", "err", err)
		} else {
			defer p.Close()
			buses = append(buses, monitor.NewDecoder(ring))
			logger.Info("monitor: playing", "sample_rate", dds.SampleRate)
		}
	}
	if len(buses) == 0 {
		logger.Warn("no DAC output configured; samples are discarded")
		buses = append(buses, dac.Discard)
	}

	s, err := synth.New(synth.Config{
		Mode:          o.mode,
		Bus:           dac.MultiBus(buses...),
		Keys:          kc,
		ADC:           knobs,
		ControlPeriod: o.controlPeriod,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	if o.midi {
		w, err := NewMIDIWatcher(midiHandler(o, keys, knobs))
		if err != nil {
			logger.Warn("midi: unavailable", "err", err)
		} else {
			defer w.Close()
			go watch(ctx, w)
		}
	}

	return s.Run(ctx)
}

// midiHandler routes controller input to the virtual key matrix and knobs.
func midiHandler(o options, keys *keyboard.VirtualKeys, knobs *control.VirtualKnobs) MIDIHandler {
	ccChannel := map[int]int{
		o.ccHarmonicity: control.ChannelHarmonicity,
		o.ccDepth:       control.ChannelDepth,
		o.ccPitch:       control.ChannelPitchScale,
	}
	return MIDIHandler{
		Note: func(on bool, note int) {
			k, ok := keyForNote(note, o.baseNote, keyboard.NumKeys)
			if !ok {
				logger.Debug("midi: note outside keyboard", "note", note, "base", o.baseNote)
				return
			}
			if on {
				keys.Press(k)
			} else {
				keys.Release(k)
			}
		},
		Control: func(controller, value uint8) {
			if ch, ok := ccChannel[int(controller)]; ok {
				knobs.SetMIDI(ch, value)
			}
		},
		Disconnect: func() {
			logger.Warn("midi: disconnect, releasing all keys")
			keys.ReleaseAll()
		},
	}
}

func watch(ctx context.Context, w *MIDIWatcher) {
	logger.Info("midi: waiting for a controller")
	t := time.NewTicker(watcherTick)
	defer t.Stop()
	for {
		w.Tick()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// renderFile plays the configured keys for the configured duration straight
// into a WAV file, through the same DAC framing the hardware sees.
func renderFile(ctx context.Context, o options, kc keyboard.Config, keys *keyboard.VirtualKeys, knobs *control.VirtualKnobs) error {
	w, err := wave.Create(o.render, dds.SampleRate)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	dec := monitor.NewDecoder(w)

	s, err := synth.New(synth.Config{
		Mode:          o.mode,
		Bus:           dec,
		Keys:          kc,
		ADC:           knobs,
		ControlPeriod: o.controlPeriod,
		Logger:        logger,
	})
	if err != nil {
		w.Close()
		return err
	}
	for _, k := range o.keys {
		keys.Press(k)
	}

	ticks := int(o.duration.Seconds() * dds.SampleRate)
	if err := s.Render(ctx, ticks); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	snap := s.Snapshot()
	logger.Info("render: done",
		"file", o.render,
		"samples", w.SampleCount(),
		"keys", o.keys,
		"increment", snap.Increment,
		"hz", dds.Frequency(snap.Increment, dds.SampleRate),
		"rejected_frames", dec.Rejected(),
	)
	return nil
}
