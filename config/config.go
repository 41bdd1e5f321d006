package config

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"

	"beatgrid/debug"
	"beatgrid/editor"
	"beatgrid/theme"
)

// ControllerType identifies the kind of controller
type ControllerType string

const (
	ControllerLaunchpadX    ControllerType = "launchpad-x"
	ControllerLaunchpadMini ControllerType = "launchpad-mini"
	ControllerLaunchpadPro  ControllerType = "launchpad-pro"
	ControllerKeyboard      ControllerType = "keyboard"
)

// ControllerConfig defines a saved controller configuration
type ControllerConfig struct {
	PortName     string         `json:"portName"`
	Type         ControllerType `json:"type"`
	AutoConnect  bool           `json:"autoConnect"`
	InputChannel int            `json:"inputChannel,omitempty"` // for keyboards
}

// EditorConfig seeds the editor store
type EditorConfig struct {
	SnapTo      float64 `json:"snapTo"`
	ZoomLevel   int     `json:"zoomLevel"`
	PrefixWidth int     `json:"prefixWidth"`
	NoteTick    bool    `json:"noteTick"`
	Metronome   bool    `json:"metronome"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	Palette  string `json:"palette,omitempty"`
	LogLevel string `json:"logLevel,omitempty"`
}

// MIDIConfig lists known controllers
type MIDIConfig struct {
	Controllers []ControllerConfig `json:"controllers,omitempty"`
	AutoConnect bool               `json:"autoConnect"`
}

// HistoryConfig controls autosave snapshots
type HistoryConfig struct {
	Path string `json:"path,omitempty"`
	Keep int    `json:"keep"`
}

// Config is the main configuration structure
type Config struct {
	Editor  EditorConfig  `json:"editor"`
	UI      UIConfig      `json:"ui,omitempty"`
	MIDI    MIDIConfig    `json:"midi,omitempty"`
	History HistoryConfig `json:"history,omitempty"`
}

// DefaultPrefixWidth is the track label column width of the events grid
const DefaultPrefixWidth = 18

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	set := editor.DefaultSettings()
	return &Config{
		Editor: EditorConfig{
			SnapTo:      set.SnapTo,
			ZoomLevel:   set.ZoomLevel,
			PrefixWidth: DefaultPrefixWidth,
		},
		UI: UIConfig{
			Palette:  theme.DefaultPalette,
			LogLevel: "info",
		},
		MIDI: MIDIConfig{
			Controllers: []ControllerConfig{
				{
					PortName:    "Launchpad X LPX MIDI",
					Type:        ControllerLaunchpadX,
					AutoConnect: true,
				},
			},
			AutoConnect: true,
		},
		History: HistoryConfig{Keep: 20},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "beatgrid"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config at path, or returns defaults if it does not exist.
// Fields missing from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			debug.Log("config", "no config at %s, using defaults", path)
			return cfg, nil
		}
		return nil, fault.Wrap(err, fmsg.WithDesc("read config", "Could not read "+path))
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fault.Wrap(err,
			ftag.With(ftag.InvalidArgument),
			fmsg.WithDesc("parse config", path+" is not valid JSON"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return fault.Wrap(err, fmsg.With("config path"))
		}
		path = p
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fault.Wrap(err, fmsg.WithDesc("create config dir", "Could not create "+filepath.Dir(path)))
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fault.Wrap(err, fmsg.With("encode config"))
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fault.Wrap(err, fmsg.WithDesc("write config", "Could not write "+path))
	}
	return nil
}

func invalid(msg, desc string) error {
	return fault.New(msg, ftag.With(ftag.InvalidArgument), fmsg.WithDesc(msg, desc))
}

// Validate rejects settings the editor cannot work with
func (c *Config) Validate() error {
	e := c.Editor
	if !(e.SnapTo > 0) || math.IsInf(e.SnapTo, 0) {
		return invalid("invalid snapTo", "editor.snapTo must be a positive number of beats")
	}
	if e.ZoomLevel < editor.MinZoom || e.ZoomLevel > len(editor.ZoomBeats) {
		return invalid("invalid zoomLevel", "editor.zoomLevel is out of range")
	}
	if e.PrefixWidth < 0 {
		return invalid("invalid prefixWidth", "editor.prefixWidth cannot be negative")
	}
	switch strings.ToLower(c.UI.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return invalid("invalid logLevel", "ui.logLevel must be debug, info, warn or error")
	}
	if c.History.Keep < 0 {
		return invalid("invalid keep", "history.keep cannot be negative")
	}
	for _, ctrl := range c.MIDI.Controllers {
		switch ctrl.Type {
		case ControllerLaunchpadX, ControllerLaunchpadMini, ControllerLaunchpadPro, ControllerKeyboard:
		default:
			return invalid("invalid controller type", "Unknown controller type "+string(ctrl.Type))
		}
	}
	return nil
}

// ToSettings returns the editor portion as store settings
func (c *Config) ToSettings() editor.Settings {
	return editor.Settings{
		SnapTo:    c.Editor.SnapTo,
		ZoomLevel: c.Editor.ZoomLevel,
		NoteTick:  c.Editor.NoteTick,
		Metronome: c.Editor.Metronome,
	}
}

// FindController finds a controller config by port name
func (c *Config) FindController(portName string) *ControllerConfig {
	for i := range c.MIDI.Controllers {
		if c.MIDI.Controllers[i].PortName == portName {
			return &c.MIDI.Controllers[i]
		}
	}
	return nil
}

// AddController adds or updates a controller config
func (c *Config) AddController(ctrl ControllerConfig) {
	for i := range c.MIDI.Controllers {
		if c.MIDI.Controllers[i].PortName == ctrl.PortName {
			c.MIDI.Controllers[i] = ctrl
			return
		}
	}
	c.MIDI.Controllers = append(c.MIDI.Controllers, ctrl)
}

// AutoConnectControllers returns controllers with autoConnect enabled
func (c *Config) AutoConnectControllers() []ControllerConfig {
	if !c.MIDI.AutoConnect {
		return nil
	}
	var result []ControllerConfig
	for _, ctrl := range c.MIDI.Controllers {
		if ctrl.AutoConnect {
			result = append(result, ctrl)
		}
	}
	return result
}
