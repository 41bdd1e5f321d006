package tui

import (
	"bytes"
	"context"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"beatgrid/debug"
	"beatgrid/editor"
	"beatgrid/history"
	"beatgrid/midi"
	"beatgrid/theme"
	"beatgrid/widgets"
)

// Document is the editor state the TUI drives
type Document interface {
	editor.StateReader
	editor.Dispatcher
	Save() error
	Snapshot() ([]byte, error)
	Restore(data []byte) error
	Apply(set editor.Settings) error
}

// Snapshots keeps autosaves
type Snapshots interface {
	Record(ctx context.Context, name string, data []byte) (int64, error)
	Latest(ctx context.Context, name string) (history.Snapshot, error)
	Prune(ctx context.Context, name string, keep int) (int64, error)
}

// Options wires the model to the rest of the program. Devices, Bridge and
// History may be nil.
type Options struct {
	Doc         Document
	Updates     <-chan struct{}
	Devices     *midi.DeviceManager
	Bridge      *midi.Bridge
	History     Snapshots
	Keep        int
	Autosave    time.Duration
	Theme       *theme.Theme
	Zone        *zone.Manager
	PrefixWidth int
}

const (
	DefaultAutosave = 30 * time.Second
	panelWidth      = 28
)

// SnapSteps are the quanta the snap keys step through
var SnapSteps = []float64{1.0 / 16, 1.0 / 8, 1.0 / 4, 1.0 / 2, 1, 2, 4}

type UpdateMsg struct{}

type DeviceEventMsg midi.DeviceEvent

// SettingsMsg carries editor settings from a reloaded config file
type SettingsMsg struct {
	Settings    editor.Settings
	PrefixWidth int
}

type autosaveTickMsg struct{}

type autosavedMsg struct {
	id  int64
	err error
}

type savedMsg struct{ err error }

type restoredMsg struct{ err error }

// autosaveState remembers the last snapshot so unchanged documents are not
// recorded again; autosave commands run off the Update goroutine
type autosaveState struct {
	mu   sync.Mutex
	last []byte
}

type Model struct {
	opts      Options
	doc       Document
	grid      *EventsGrid
	selection *SelectionInfo
	status    *StatusBar
	keys      keyMap
	help      help.Model
	autosave  *autosaveState

	controllers map[string]midi.Controller
	launchpad   midi.Controller

	view     editor.View
	showHelp bool
	width    int
	height   int
	quitting bool
}

func NewModel(opts Options) Model {
	if opts.Autosave <= 0 {
		opts.Autosave = DefaultAutosave
	}
	doc, th, z := opts.Doc, opts.Theme, opts.Zone
	return Model{
		opts:        opts,
		doc:         doc,
		grid:        NewEventsGrid(doc, doc, th, z, opts.PrefixWidth),
		selection:   NewSelectionInfo(doc, doc, th, z),
		status:      NewStatusBar(doc, doc, th, z),
		keys:        defaultKeyMap(),
		help:        help.New(),
		autosave:    &autosaveState{},
		controllers: make(map[string]midi.Controller),
		view:        editor.EventsView,
	}
}

func ListenForUpdates(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return nil
		}
		return UpdateMsg{}
	}
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	if deviceMgr == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-deviceMgr.Events()
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

func (m Model) autosaveTick() tea.Cmd {
	return tea.Tick(m.opts.Autosave, func(time.Time) tea.Msg { return autosaveTickMsg{} })
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{ListenForUpdates(m.opts.Updates)}
	cmds = append(cmds, ListenForDevices(m.opts.Devices))
	if m.opts.History != nil {
		cmds = append(cmds, m.autosaveTick())
	}
	return tea.Batch(cmds...)
}

func (m Model) gridWidth() int {
	return max(0, m.width-panelWidth-2)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.grid.SetSize(m.gridWidth())

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		m.grid.HandleMouse(msg)
		_, cmd := m.selection.HandleMouse(msg)
		m.status.HandleMouse(msg)
		return m, cmd

	case tooltipMsg:
		m.selection.showTooltip(msg)

	case UpdateMsg:
		m.syncLaunchpad()
		return m, ListenForUpdates(m.opts.Updates)

	case DeviceEventMsg:
		m.handleDevice(midi.DeviceEvent(msg))
		return m, ListenForDevices(m.opts.Devices)

	case SettingsMsg:
		m.status.Err = m.doc.Apply(msg.Settings)
		m.grid.SetPrefixWidth(msg.PrefixWidth)
		m.grid.refresh()

	case autosaveTickMsg:
		return m, tea.Batch(m.autosaveCmd(false), m.autosaveTick())

	case autosavedMsg:
		if msg.err != nil {
			m.status.Err = msg.err
			debug.WithError("autosave", msg.err, "record snapshot")
		} else if msg.id > 0 {
			debug.Debug("autosave", "snapshot %d", msg.id)
		}

	case savedMsg:
		m.status.Err = msg.err

	case restoredMsg:
		m.status.Err = msg.err
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.doc
	var err error

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.grid.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, m.keys.Save):
		return m, m.saveCmd()
	case key.Matches(msg, m.keys.Restore):
		return m, m.restoreCmd()
	case key.Matches(msg, m.keys.View):
		if m.view == editor.EventsView {
			m.view = editor.NotesView
		} else {
			m.view = editor.EventsView
		}

	case key.Matches(msg, m.keys.ScrollBack):
		d.ScrollBeats(-1)
	case key.Matches(msg, m.keys.ScrollForward):
		d.ScrollBeats(1)
	case key.Matches(msg, m.keys.ZoomIn):
		err = d.SetZoomLevel(d.ZoomLevel() + 1)
	case key.Matches(msg, m.keys.ZoomOut):
		err = d.SetZoomLevel(d.ZoomLevel() - 1)
	case key.Matches(msg, m.keys.SnapFiner):
		err = d.SetSnapTo(StepSnap(d.SnapTo(), true))
	case key.Matches(msg, m.keys.SnapCoarser):
		err = d.SetSnapTo(StepSnap(d.SnapTo(), false))
	case key.Matches(msg, m.keys.SeekBack):
		d.SeekTo(math.Max(0, d.SongBeat()-d.SnapTo()))
	case key.Matches(msg, m.keys.SeekForward):
		d.SeekTo(d.SongBeat() + d.SnapTo())

	case key.Matches(msg, m.keys.ToolOn):
		d.SetTool(editor.EventOn)
	case key.Matches(msg, m.keys.ToolOff):
		d.SetTool(editor.EventOff)
	case key.Matches(msg, m.keys.ToolFlash):
		d.SetTool(editor.EventFlash)
	case key.Matches(msg, m.keys.ToolFade):
		d.SetTool(editor.EventFade)
	case key.Matches(msg, m.keys.Red):
		d.SetColor(editor.ColorRed)
	case key.Matches(msg, m.keys.Blue):
		d.SetColor(editor.ColorBlue)
	case key.Matches(msg, m.keys.SpeedDown):
		d.SetLaserSpeed(d.LaserSpeed() - 1)
	case key.Matches(msg, m.keys.SpeedUp):
		d.SetLaserSpeed(d.LaserSpeed() + 1)
	case key.Matches(msg, m.keys.NoteTick):
		d.SetNoteTick(!d.NoteTick())
	case key.Matches(msg, m.keys.Metronome):
		d.SetMetronome(!d.Metronome())

	case key.Matches(msg, m.keys.SelectAll):
		d.SelectAllInRange(m.view)
	case key.Matches(msg, m.keys.Deselect):
		d.DeselectAll(m.view)
	case key.Matches(msg, m.keys.SwapH):
		d.SwapSelectedNotes(editor.Horizontal)
	case key.Matches(msg, m.keys.SwapV):
		d.SwapSelectedNotes(editor.Vertical)
	case key.Matches(msg, m.keys.NudgeFwd):
		d.NudgeSelection(editor.Forwards, m.view)
	case key.Matches(msg, m.keys.NudgeBack):
		d.NudgeSelection(editor.Backwards, m.view)
	case key.Matches(msg, m.keys.Cut):
		d.CutSelection(m.view)
	case key.Matches(msg, m.keys.Copy):
		d.CopySelection(m.view)
	case key.Matches(msg, m.keys.Paste):
		d.PasteSelection(m.view)
	default:
		return m, nil
	}

	m.status.Err = err
	m.grid.refresh()
	return m, nil
}

// StepSnap returns the next finer or coarser quantum from SnapSteps
func StepSnap(current float64, finer bool) float64 {
	i := sort.SearchFloat64s(SnapSteps, current-1e-9)
	if finer {
		return SnapSteps[max(0, i-1)]
	}
	if i < len(SnapSteps) && math.Abs(SnapSteps[i]-current) < 1e-9 {
		i++
	}
	return SnapSteps[min(i, len(SnapSteps)-1)]
}

func snapshotName(path string) string {
	if path == "" {
		return "untitled"
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// autosaveCmd records a snapshot when the document changed since the last
// one. force records even a clean document.
func (m Model) autosaveCmd(force bool) tea.Cmd {
	doc, hist, keep, state := m.doc, m.opts.History, m.opts.Keep, m.autosave
	if hist == nil {
		return nil
	}
	return func() tea.Msg {
		if !force && !doc.Dirty() {
			return autosavedMsg{}
		}
		data, err := doc.Snapshot()
		if err != nil {
			return autosavedMsg{err: err}
		}

		state.mu.Lock()
		defer state.mu.Unlock()
		if bytes.Equal(data, state.last) {
			return autosavedMsg{}
		}

		ctx := context.Background()
		name := snapshotName(doc.Path())
		id, err := hist.Record(ctx, name, data)
		if err != nil {
			return autosavedMsg{err: err}
		}
		state.last = data
		if keep > 0 {
			if _, err := hist.Prune(ctx, name, keep); err != nil {
				return autosavedMsg{id: id, err: err}
			}
		}
		return autosavedMsg{id: id}
	}
}

func (m Model) saveCmd() tea.Cmd {
	doc := m.doc
	save := func() tea.Msg {
		return savedMsg{err: doc.Save()}
	}
	if record := m.autosaveCmd(true); record != nil {
		return tea.Sequence(save, record)
	}
	return save
}

func (m Model) restoreCmd() tea.Cmd {
	doc, hist := m.doc, m.opts.History
	if hist == nil {
		return nil
	}
	return func() tea.Msg {
		snap, err := hist.Latest(context.Background(), snapshotName(doc.Path()))
		if err != nil {
			return restoredMsg{err: err}
		}
		debug.Log("autosave", "restoring snapshot %d from %s", snap.ID, snap.CreatedAt.Format(time.DateTime))
		return restoredMsg{err: doc.Restore(snap.Data)}
	}
}

func (m *Model) handleDevice(ev midi.DeviceEvent) {
	switch ev.Type {
	case midi.DeviceConnected:
		m.controllers[ev.ID] = ev.Controller
		if m.opts.Bridge != nil {
			// Listen for pad and note events from the controller
			go m.opts.Bridge.Listen(ev.Controller)
		}
		if m.launchpad == nil && ev.Controller.Type() == midi.ControllerLaunchpad {
			m.launchpad = ev.Controller
		}
	case midi.DeviceDisconnected:
		delete(m.controllers, ev.ID)
		if m.launchpad != nil && m.launchpad.ID() == ev.ID {
			m.launchpad = nil
			if m.opts.Devices != nil {
				m.launchpad = m.opts.Devices.GetLaunchpad()
			}
		}
	}

	m.status.Devices = m.status.Devices[:0]
	for id := range m.controllers {
		m.status.Devices = append(m.status.Devices, id)
	}
	sort.Strings(m.status.Devices)
	m.syncLaunchpad()
}

func (m Model) syncLaunchpad() {
	if m.launchpad == nil || m.opts.Bridge == nil {
		return
	}
	if err := m.opts.Bridge.Sync(m.launchpad); err != nil {
		debug.WithError("midi", err, "sync leds")
	}
}

func (m Model) launchpadPreview() string {
	if m.launchpad == nil || m.opts.Bridge == nil {
		return ""
	}
	frame := m.opts.Bridge.Frame()
	var colors [8][8]theme.RGB
	for row := range frame {
		for col := range frame[row] {
			colors[row][col] = frame[row][col].Color
		}
	}
	return widgets.Heading(m.opts.Theme, "Launchpad") + "\n" + widgets.RenderPadGrid(colors)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	th := m.opts.Theme
	dim := lipgloss.NewStyle().Foreground(th.Muted())

	side := m.selection.View()
	if lp := m.launchpadPreview(); lp != "" {
		side += "\n\n" + lp
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.grid.View(),
		"  ",
		lipgloss.NewStyle().Width(panelWidth).Render(side))

	var out strings.Builder
	out.WriteString(m.status.View())
	out.WriteString("\n\n")
	out.WriteString(body)
	out.WriteString("\n")

	if tip := m.selection.Tooltip(); tip != "" {
		out.WriteString(widgets.Tooltip(th, tip))
	}
	out.WriteString("\n")

	out.WriteString(dim.Render("selection acts on " + string(m.view)))
	out.WriteString("\n")
	if m.showHelp {
		out.WriteString(widgets.RenderKeyHelp(m.keys.sections()))
	} else {
		out.WriteString(m.help.View(m.keys))
	}

	if m.opts.Zone != nil {
		return m.opts.Zone.Scan(out.String())
	}
	return out.String()
}
