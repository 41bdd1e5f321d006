package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"gopkg.in/alecthomas/kingpin.v2"

	"beatgrid/config"
	"beatgrid/debug"
	"beatgrid/editor"
	"beatgrid/history"
	"beatgrid/midi"
	"beatgrid/theme"
	"beatgrid/tui"
)

var (
	file       = kingpin.Arg("file", "Lighting file to edit (created on first save)").String()
	configPath = kingpin.Flag("config", "Config file").Short('c').String()
	snapTo     = kingpin.Flag("snap", "Snap quantum in beats, overrides config").Short('s').Float64()
	zoomLevel  = kingpin.Flag("zoom", "Initial zoom level, overrides config").Short('z').Int()
	palette    = kingpin.Flag("palette", "Builtin palette name or .gpl file").Short('p').String()
	debugLog   = kingpin.Flag("debug", "Write debug.log to the config directory").Short('d').Bool()
	restore    = kingpin.Flag("restore", "Start from the latest autosave of file").Bool()
	noHistory  = kingpin.Flag("no-history", "Disable autosave snapshots").Bool()
	noMIDI     = kingpin.Flag("no-midi", "Do not open MIDI controllers").Bool()
)

func main() {
	kingpin.Version("0.1.0")
	kingpin.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", tui.ErrorText(err))
		debug.WithError("main", err, "exit")
		debug.Disable()
		os.Exit(1)
	}
	debug.Disable()
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *snapTo != 0 {
		cfg.Editor.SnapTo = *snapTo
	}
	if *zoomLevel != 0 {
		cfg.Editor.ZoomLevel = *zoomLevel
	}
	if *palette != "" {
		cfg.UI.Palette = *palette
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if *debugLog || cfg.UI.LogLevel != "" {
		level := debug.ParseLevel(cfg.UI.LogLevel)
		if *debugLog {
			level = debug.LevelDebug
		}
		dir, err := config.ConfigDir()
		if err == nil {
			err = debug.Enable(dir, level)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "logging disabled: %v\n", err)
		}
	}

	pal, err := theme.Resolve(cfg.UI.Palette)
	if err != nil {
		debug.WithError("main", err, "palette "+cfg.UI.Palette)
		pal = theme.MustBuiltin(theme.DefaultPalette)
	}
	th := theme.New(pal)

	store := editor.NewStore(cfg.ToSettings())
	if *file != "" {
		if err := store.LoadFile(*file); err != nil {
			return err
		}
	}

	var snapshots tui.Snapshots
	if !*noHistory {
		path := cfg.History.Path
		if path == "" {
			path = history.DefaultPath()
		}
		hist, err := history.Open(path)
		if err != nil {
			debug.WithError("main", err, "open history")
		} else {
			defer hist.Close()
			snapshots = hist
			if *restore {
				if err := restoreLatest(hist, store); err != nil {
					return err
				}
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var deviceMgr *midi.DeviceManager
	var bridge *midi.Bridge
	if !*noMIDI && cfg.MIDI.AutoConnect {
		deviceMgr = midi.NewDeviceManager(classifier(cfg))
		bridge = midi.NewBridge(store, th)
		go deviceMgr.Run(ctx)
	}

	z := zone.New()
	defer z.Close()

	m := tui.NewModel(tui.Options{
		Doc:         store,
		Updates:     store.UpdateChan,
		Devices:     deviceMgr,
		Bridge:      bridge,
		History:     snapshots,
		Keep:        cfg.History.Keep,
		Theme:       th,
		Zone:        z,
		PrefixWidth: cfg.Editor.PrefixWidth,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion())

	if err := watchConfig(ctx, *configPath, p); err != nil {
		debug.WithError("main", err, "watch config")
	}

	_, err = p.Run()
	return err
}

func restoreLatest(hist *history.Store, store *editor.Store) error {
	name := store.Path()
	if name == "" {
		name = "untitled"
	} else if abs, err := filepath.Abs(name); err == nil {
		name = abs
	}
	snap, err := hist.Latest(context.Background(), name)
	if err != nil {
		return err
	}
	debug.Log("main", "restoring snapshot %d", snap.ID)
	return store.Restore(snap.Data)
}

// classifier prefers the configured controller for a port and falls back to
// name matching for ports the config does not list
func classifier(cfg *config.Config) midi.Classifier {
	known := make(map[string]config.ControllerConfig)
	for _, c := range cfg.MIDI.Controllers {
		known[c.PortName] = c
	}
	return func(name string) midi.Profile {
		c, ok := known[name]
		if !ok {
			return midi.DefaultClassifier(name)
		}
		switch {
		case !c.AutoConnect:
			return midi.Profile{Type: midi.ControllerUnknown}
		case c.Type == config.ControllerKeyboard:
			return midi.Profile{Type: midi.ControllerKeyboard, Channel: uint8(c.InputChannel)}
		}
		return midi.Profile{Type: midi.ControllerLaunchpad}
	}
}

// watchConfig forwards valid config edits to the running program
func watchConfig(ctx context.Context, path string, p *tea.Program) error {
	if path == "" {
		var err error
		if path, err = config.ConfigPath(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	w, err := config.NewWatcher(path, func(cfg *config.Config) {
		debug.SetLevel(debug.ParseLevel(cfg.UI.LogLevel))
		p.Send(tui.SettingsMsg{Settings: cfg.ToSettings(), PrefixWidth: cfg.Editor.PrefixWidth})
	})
	if err != nil {
		return err
	}
	go func() {
		defer w.Close()
		if err := w.Run(ctx); err != nil {
			debug.WithError("config", err, "watcher stopped")
		}
	}()
	return nil
}
