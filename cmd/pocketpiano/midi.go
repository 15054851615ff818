package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// -------------------- Hot-swap config --------------------

// preferredPorts: controllers matching any of these are picked first.
var preferredPorts = []string{"Launchkey", "Keystation", "microKEY"}

// excludedPorts: virtual/system ports that are never auto-connected.
var excludedPorts = []string{"Midi Through", "Through Port", "Dummy"}

const midiRescanInterval = 1000 * time.Millisecond

// -------------------- Key mapping --------------------

// keyForNote maps a MIDI note to a keyboard index, base being the note
// played by key 0. Notes off the 25-key range are dropped.
func keyForNote(note, base, keys int) (int, bool) {
	k := note - base
	if k < 0 || k >= keys {
		return 0, false
	}
	return k, true
}

// -------------------- MIDIWatcher --------------------

// MIDIHandler receives input from the connected controller.
type MIDIHandler struct {
	Note       func(on bool, note int)
	Control    func(controller, value uint8)
	Disconnect func() // called from its own goroutine
}

// MIDIWatcher keeps a connection to the preferred MIDI controller and
// forwards its notes and control changes. It survives the controller being
// unplugged and plugged back in.
type MIDIWatcher struct {
	mu           sync.Mutex
	drv          *rtmididrv.Driver
	inPort       drivers.In
	stopFn       func()
	connected    bool
	selectedName string
	lastRescanAt time.Time

	h MIDIHandler
}

// NewMIDIWatcher initialises the rtmidi driver. Call Close when done.
func NewMIDIWatcher(h MIDIHandler) (*MIDIWatcher, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	return &MIDIWatcher{drv: drv, h: h}, nil
}

// Close shuts down the active connection and the driver.
func (m *MIDIWatcher) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeConn()
	m.drv.Close()
}

// Tick rescans ports at most once per midiRescanInterval, connecting to a
// preferred controller and noticing when the current one disappears.
func (m *MIDIWatcher) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if !m.lastRescanAt.IsZero() && now.Sub(m.lastRescanAt) < midiRescanInterval {
		return
	}
	m.lastRescanAt = now

	inputs := m.listInputs()

	if m.connected {
		for _, n := range inputs {
			if n == m.selectedName {
				return
			}
		}
		logger.Warn("midi: device disappeared", "device", m.selectedName)
		m.closeConn()
		m.lastRescanAt = time.Time{}
		if m.h.Disconnect != nil {
			go m.h.Disconnect()
		}
		return
	}

	cand, ok := pickPreferred(inputs)
	if !ok {
		return
	}
	if err := m.openByName(cand); err != nil {
		logger.Error("midi: connect failed", "device", cand, "err", err)
	}
}

// -------------------- internal --------------------

func (m *MIDIWatcher) listInputs() []string {
	ins, err := m.drv.Ins()
	if err != nil {
		logger.Error("midi: list inputs failed", "err", err)
		return nil
	}
	var names []string
	for _, in := range ins {
		name := in.String()
		if matchesAny(name, excludedPorts) {
			logger.Debug("midi: input excluded", "device", name)
			continue
		}
		names = append(names, name)
	}
	logger.Debug("midi: inputs found", "count", len(names), "devices", strings.Join(names, ", "))
	return names
}

func pickPreferred(inputs []string) (string, bool) {
	for _, pat := range preferredPorts {
		for _, name := range inputs {
			if containsCI(name, pat) {
				return name, true
			}
		}
	}
	if len(inputs) == 1 {
		return inputs[0], true
	}
	return "", false
}

func (m *MIDIWatcher) closeConn() {
	if m.stopFn != nil {
		m.stopFn()
		m.stopFn = nil
	}
	if m.inPort != nil {
		_ = m.inPort.Close()
		m.inPort = nil
	}
	m.connected = false
	m.selectedName = ""
}

func (m *MIDIWatcher) openByName(name string) error {
	ins, err := m.drv.Ins()
	if err != nil {
		return err
	}
	var found drivers.In
	for _, in := range ins {
		if in.String() == name {
			found = in
			break
		}
	}
	if found == nil {
		return fmt.Errorf("input %q not found", name)
	}
	if err := found.Open(); err != nil {
		return fmt.Errorf("open %q: %w", name, err)
	}

	stop, err := midi.ListenTo(found, m.dispatch, midi.HandleError(func(listenErr error) {
		logger.Warn("midi: listener error", "device", name, "err", listenErr)
		// closeConn stops the listener, so it cannot run on the listener's
		// own goroutine.
		go func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.connected && m.selectedName == name {
				m.closeConn()
				m.lastRescanAt = time.Time{}
				if m.h.Disconnect != nil {
					go m.h.Disconnect()
				}
			}
		}()
	}))
	if err != nil {
		_ = found.Close()
		return fmt.Errorf("listen %q: %w", name, err)
	}

	m.inPort = found
	m.stopFn = stop
	m.connected = true
	m.selectedName = name
	logger.Info("midi: connected", "device", name)
	return nil
}

func (m *MIDIWatcher) dispatch(msg midi.Message, _ int32) {
	var ch, key, vel, ctl, val uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		logger.Debug("midi: note on", "ch", ch, "key", key, "vel", vel)
		if m.h.Note != nil {
			m.h.Note(true, int(key))
		}
	case msg.GetNoteEnd(&ch, &key):
		logger.Debug("midi: note off", "ch", ch, "key", key)
		if m.h.Note != nil {
			m.h.Note(false, int(key))
		}
	case msg.GetControlChange(&ch, &ctl, &val):
		logger.Debug("midi: control change", "ch", ch, "controller", ctl, "value", val)
		if m.h.Control != nil {
			m.h.Control(ctl, val)
		}
	default:
		logger.Debug("midi: unhandled message", "msg", msg.String())
	}
}

// -------------------- utility --------------------

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func matchesAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if containsCI(s, p) {
			return true
		}
	}
	return false
}
