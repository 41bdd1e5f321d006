package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gopkg.in/alecthomas/kingpin.v2"

	"beatgrid/editor"
	"beatgrid/midi"
	"beatgrid/theme"
	"beatgrid/widgets"
)

var (
	app = kingpin.New("miditest", "Probe MIDI controllers for beatgrid")

	listCmd = app.Command("list", "List MIDI ports and how beatgrid would drive them")

	pollCmd  = app.Command("poll", "Watch controllers connect and print the tracks their input maps to")
	pollSnap = pollCmd.Flag("snap", "Snap used to map pad columns to beats").Default("0.5").Float64()

	ledsCmd = app.Command("leds", "Light a demo pattern on the first Launchpad")
	ledsFor = ledsCmd.Flag("for", "How long to keep the pattern lit").Default("5s").Duration()
)

func main() {
	switch kingpin.MustParse(app.Parse(os.Args[1:])) {
	case listCmd.FullCommand():
		listPorts()
	case pollCmd.FullCommand():
		pollDevices(*pollSnap)
	case ledsCmd.FullCommand():
		testLEDs(*ledsFor)
	}
}

func ports() ([]drivers.In, []drivers.Out, bool) {
	type result struct {
		ins  []drivers.In
		outs []drivers.Out
	}
	ch := make(chan result, 1)
	go func() {
		ch <- result{ins: gomidi.GetInPorts(), outs: gomidi.GetOutPorts()}
	}()

	select {
	case r := <-ch:
		return r.ins, r.outs, true
	case <-time.After(3 * time.Second):
		fmt.Println("TIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return nil, nil, false
	}
}

func listPorts() {
	fmt.Println("(waiting up to 3 seconds...)")
	ins, outs, ok := ports()
	if !ok {
		return
	}

	fmt.Println("=== MIDI Input Ports ===")
	for i, p := range ins {
		fmt.Printf("  %d: %-32s %s\n", i, p.String(), midi.DefaultClassifier(p.String()).Type)
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, p := range outs {
		fmt.Printf("  %d: %s\n", i, p.String())
	}
}

func pollDevices(snap float64) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	dm := midi.NewDeviceManager(nil)
	go dm.Run(ctx)

	fmt.Println("Polling for controllers, ctrl+c to stop")
	for ev := range dm.Events() {
		switch ev.Type {
		case midi.DeviceConnected:
			fmt.Printf("+ %s (%s)\n", ev.ID, ev.Controller.Type())
			go printInput(ev.Controller, snap)
		case midi.DeviceDisconnected:
			fmt.Printf("- %s\n", ev.ID)
		}
	}
}

func printInput(c midi.Controller, snap float64) {
	pads, notes := c.PadEvents(), c.NoteEvents()
	for pads != nil || notes != nil {
		select {
		case p, ok := <-pads:
			if !ok {
				pads = nil
				continue
			}
			if track, ok := midi.PadToTrack(p.Row); ok {
				fmt.Printf("  pad (%d,%d) -> %s at beat +%.2f\n", p.Row, p.Col, track, midi.PadBeat(p.Col, 0, snap))
			} else {
				fmt.Printf("  pad (%d,%d) -> control\n", p.Row, p.Col)
			}
		case n, ok := <-notes:
			if !ok {
				notes = nil
				continue
			}
			fmt.Printf("  note %d ch%d -> %s\n", n.Note, n.Channel+1, midi.NoteToTrack(n.Note))
		}
	}
}

func testLEDs(hold time.Duration) {
	ins, outs, ok := ports()
	if !ok {
		return
	}

	var in drivers.In
	var out drivers.Out
	for _, p := range ins {
		if midi.DefaultClassifier(p.String()).Type == midi.ControllerLaunchpad {
			in = p
			break
		}
	}
	if in == nil {
		fmt.Println("Launchpad not found")
		return
	}
	for _, p := range outs {
		if p.String() == in.String() {
			out = p
		}
	}

	lp, err := midi.NewLaunchpadController(in.String(), in, out)
	if err != nil {
		fmt.Println("ERROR:", err)
		return
	}
	defer lp.Close()

	// a diagonal of events across all tracks
	store := editor.NewStore(editor.DefaultSettings())
	store.SetClipboardWriter(nil)
	for i, t := range editor.Tracks {
		store.PlaceEvent(t.ID, float64(i)*store.SnapTo())
	}

	th := theme.New(theme.MustBuiltin(theme.DefaultPalette))
	bridge := midi.NewBridge(store, th)
	if err := bridge.Sync(lp); err != nil {
		fmt.Println("ERROR:", err)
		return
	}

	// show what the pads should look like
	var preview [8][8]theme.RGB
	frame := bridge.Frame()
	for row := range frame {
		for col := range frame[row] {
			preview[row][col] = frame[row][col].Color
		}
	}
	fmt.Println(widgets.RenderPadGrid(preview))
	fmt.Printf("Holding for %s...\n", hold)
	time.Sleep(hold)
}
