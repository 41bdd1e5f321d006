package midi

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"beatgrid/debug"
)

// DeviceEvent is emitted when controllers connect/disconnect
type DeviceEvent struct {
	Type       DeviceEventType
	Controller Controller
	ID         string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

// Profile is how a port should be driven
type Profile struct {
	Type    ControllerType
	Channel uint8 // keyboards only, 0 = omni
}

// Classifier decides what a port is from its name
type Classifier func(portName string) Profile

// DeviceManager handles hot-plug detection of MIDI controllers
type DeviceManager struct {
	controllers map[string]Controller
	mu          sync.RWMutex
	events      chan DeviceEvent
	pollRate    time.Duration
	classify    Classifier
}

// NewDeviceManager creates a new device manager. A nil classifier uses
// DefaultClassifier.
func NewDeviceManager(classify Classifier) *DeviceManager {
	if classify == nil {
		classify = DefaultClassifier
	}
	return &DeviceManager{
		controllers: make(map[string]Controller),
		events:      make(chan DeviceEvent, 16),
		pollRate:    time.Second,
		classify:    classify,
	}
}

// Events returns a channel of device connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Controllers returns a snapshot of connected controllers
func (dm *DeviceManager) Controllers() map[string]Controller {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	out := make(map[string]Controller, len(dm.controllers))
	for k, v := range dm.controllers {
		out[k] = v
	}
	return out
}

// GetLaunchpad returns the first connected Launchpad (or nil)
func (dm *DeviceManager) GetLaunchpad() Controller {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	ids := make([]string, 0, len(dm.controllers))
	for id := range dm.controllers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if c := dm.controllers[id]; c.Type() == ControllerLaunchpad {
			return c
		}
	}
	return nil
}

// Run starts the polling loop (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	// Initial scan
	dm.scan()

	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return
		case <-ticker.C:
			dm.scan()
		}
	}
}

// scanTimeout bounds a port listing; CoreMIDI can hang
const scanTimeout = 3 * time.Second

// listPorts returns the current ports, or false when the driver did not
// answer within timeout
func listPorts(timeout time.Duration) ([]drivers.In, []drivers.Out, bool) {
	type result struct {
		in  []drivers.In
		out []drivers.Out
	}
	ch := make(chan result, 1)
	go func() {
		ch <- result{in: gomidi.GetInPorts(), out: gomidi.GetOutPorts()}
	}()
	select {
	case r := <-ch:
		return r.in, r.out, true
	case <-time.After(timeout):
		return nil, nil, false
	}
}

// scan opens newly seen ports and drops vanished ones. Events are sent
// without holding the lock, since the TUI reads controllers while handling
// them.
func (dm *DeviceManager) scan() {
	inPorts, outPorts, ok := listPorts(scanTimeout)
	if !ok {
		debug.Warn("midi", "port scan timed out")
		return
	}

	seen := make(map[string]bool)
	var events []DeviceEvent
	for _, in := range inPorts {
		id := in.String()
		profile := dm.classify(id)
		if profile.Type == ControllerUnknown {
			continue
		}
		seen[id] = true

		dm.mu.RLock()
		_, known := dm.controllers[id]
		dm.mu.RUnlock()
		if known {
			continue
		}

		ctrl, err := dm.open(id, profile, in, outPorts)
		if err != nil {
			debug.WithError("midi", err, "open "+id)
			continue
		}
		dm.mu.Lock()
		dm.controllers[id] = ctrl
		dm.mu.Unlock()
		debug.Log("midi", "connected %s (%s)", id, profile.Type)
		events = append(events, DeviceEvent{Type: DeviceConnected, Controller: ctrl, ID: id})
	}

	dm.mu.Lock()
	var gone []Controller
	for _, id := range staleIDs(dm.controllers, seen) {
		gone = append(gone, dm.controllers[id])
		delete(dm.controllers, id)
		events = append(events, DeviceEvent{Type: DeviceDisconnected, ID: id})
	}
	dm.mu.Unlock()

	for _, c := range gone {
		if err := c.Close(); err != nil {
			debug.WithError("midi", err, "close "+c.ID())
		}
		debug.Log("midi", "disconnected %s", c.ID())
	}
	for _, ev := range events {
		dm.events <- ev
	}
}

func (dm *DeviceManager) open(id string, profile Profile, in drivers.In, outPorts []drivers.Out) (Controller, error) {
	if profile.Type == ControllerKeyboard {
		return NewKeyboardController(id, in, profile.Channel)
	}

	// Find matching output port
	var out drivers.Out
	for _, op := range outPorts {
		if strings.EqualFold(op.String(), id) {
			out = op
			break
		}
	}
	return NewLaunchpadController(id, in, out)
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, c := range dm.controllers {
		c.Close()
	}
	dm.controllers = make(map[string]Controller)
}

// staleIDs lists connected controllers whose port vanished, sorted
func staleIDs(current map[string]Controller, seen map[string]bool) []string {
	var out []string
	for id := range current {
		if !seen[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// DefaultClassifier treats Launchpad MIDI ports as grids and any other
// input as a keyboard, skipping virtual through ports and Launchpad DAW ports.
func DefaultClassifier(name string) Profile {
	lower := strings.ToLower(name)
	switch {
	case isLaunchpad(lower):
		return Profile{Type: ControllerLaunchpad}
	case strings.Contains(lower, "launchpad"),
		strings.Contains(lower, "through"),
		strings.Contains(lower, "thru"):
		return Profile{Type: ControllerUnknown}
	}
	return Profile{Type: ControllerKeyboard}
}

func isLaunchpad(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(name, "launchpad") && strings.Contains(name, "midi")
}
