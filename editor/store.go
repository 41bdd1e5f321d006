package editor

import (
	"math"
	"sync"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"

	"beatgrid/debug"
	"beatgrid/grid"
)

// View selects which kind of items a selection action applies to
type View string

const (
	NotesView  View = "notes"
	EventsView View = "events"
)

// Direction for nudging a selection through time
type Direction int

const (
	Forwards Direction = iota
	Backwards
)

// Axis for swapping selected notes
type Axis int

const (
	Horizontal Axis = iota
	Vertical
)

// ZoomBeats is the number of beats visible at each zoom level (1-based)
var ZoomBeats = []float64{32, 24, 16, 12, 8, 6, 4, 2}

const (
	MinZoom     = 1
	DefaultZoom = 3
	MaxLaser    = 8
)

// beatEpsilon treats two beats as the same position
const beatEpsilon = 1e-6

// Settings seeds a new store
type Settings struct {
	SnapTo    float64
	ZoomLevel int
	NoteTick  bool
	Metronome bool
}

// DefaultSettings match a fresh install
func DefaultSettings() Settings {
	return Settings{SnapTo: 0.5, ZoomLevel: DefaultZoom}
}

// StateReader is the read side of the store that views consume
type StateReader interface {
	StartBeat() float64
	EndBeat() float64
	Window() grid.Range
	SnapTo() float64
	ZoomLevel() int
	IsLoading() bool
	SongBeat() float64

	EventsInRange(trackID string, from, to float64) []Event
	EventAt(trackID string, beat float64) (Event, bool)
	SelectionCounts() (notes, obstacles int)
	SelectedEventCount() int
	SelectedObstacle() (Obstacle, bool)
	HasCopiedNotes() bool
	HasCopiedEvents() bool

	Tool() EventType
	Color() LightColor
	LaserSpeed() int
	NoteTick() bool
	Metronome() bool

	Path() string
	Dirty() bool
}

// Dispatcher is the command side of the store
type Dispatcher interface {
	PlaceEvent(trackID string, beat float64) (Event, error)
	ToggleEventAt(trackID string, beat float64) (Event, bool, error)
	ToggleEventSelected(id int)
	DeleteEvent(id int)

	DeselectAll(view View)
	SelectAllInRange(view View)
	SelectNotesAt(beat float64)
	SwapSelectedNotes(axis Axis)
	NudgeSelection(dir Direction, view View)
	CutSelection(view View)
	CopySelection(view View)
	PasteSelection(view View)
	AdjustSelectedObstacle(durationDelta float64, widthDelta int)

	SetSnapTo(q float64) error
	SetZoomLevel(level int) error
	ScrollBeats(delta int)
	SeekTo(beat float64)

	SetTool(t EventType)
	SetColor(c LightColor)
	SetLaserSpeed(speed int)
	SetNoteTick(on bool)
	SetMetronome(on bool)
	SetLoading(loading bool)
}

type clip struct {
	notes     []Note
	obstacles []Obstacle
	events    []Event
}

// Store is the single source of truth for the editor. Views read it through
// StateReader and change it through Dispatcher; MIDI goroutines dispatch into
// it concurrently.
type Store struct {
	mu sync.RWMutex

	beatmap *Beatmap
	path    string
	dirty   bool
	nextID  int
	// rev counts document edits; Save only clears dirty if it is unchanged
	rev uint64

	startBeat float64
	zoomLevel int
	snapTo    float64
	songBeat  float64
	loading   bool

	tool       EventType
	color      LightColor
	laserSpeed int
	noteTick   bool
	metronome  bool

	clip clip

	// writes copied items to the system clipboard
	clipboardWriter func(string) error

	// Notify TUI of updates
	UpdateChan chan struct{}
}

// NewStore creates a store with an empty beatmap
func NewStore(s Settings) *Store {
	if s.SnapTo <= 0 || math.IsNaN(s.SnapTo) {
		s.SnapTo = DefaultSettings().SnapTo
	}
	if s.ZoomLevel < MinZoom || s.ZoomLevel > len(ZoomBeats) {
		s.ZoomLevel = DefaultZoom
	}
	return &Store{
		beatmap:         NewBeatmap(),
		nextID:          1,
		zoomLevel:       s.ZoomLevel,
		snapTo:          s.SnapTo,
		tool:            EventOn,
		color:           ColorRed,
		noteTick:        s.NoteTick,
		metronome:       s.Metronome,
		clipboardWriter: CopyToClipboard,
		UpdateChan:      make(chan struct{}, 1),
	}
}

// SetClipboardWriter replaces the system clipboard sink (nil disables export)
func (s *Store) SetClipboardWriter(fn func(string) error) {
	s.mu.Lock()
	s.clipboardWriter = fn
	s.mu.Unlock()
}

func (s *Store) notifyUpdate() {
	select {
	case s.UpdateChan <- struct{}{}:
	default:
	}
}

// touchLocked marks the document edited
func (s *Store) touchLocked() {
	s.dirty = true
	s.rev++
}

// mutate runs fn under the write lock and notifies listeners afterwards
func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	fn()
	s.mu.Unlock()
	s.notifyUpdate()
}

// Reader side

func (s *Store) StartBeat() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startBeat
}

func (s *Store) EndBeat() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.endBeatLocked()
}

func (s *Store) endBeatLocked() float64 {
	return s.startBeat + ZoomBeats[s.zoomLevel-1]
}

func (s *Store) Window() grid.Range {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return grid.Range{Start: s.startBeat, End: s.endBeatLocked()}
}

func (s *Store) SnapTo() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapTo
}

func (s *Store) ZoomLevel() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.zoomLevel
}

func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) SongBeat() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.songBeat
}

func (s *Store) Tool() EventType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tool
}

func (s *Store) Color() LightColor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.color
}

func (s *Store) LaserSpeed() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.laserSpeed
}

func (s *Store) NoteTick() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.noteTick
}

func (s *Store) Metronome() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metronome
}

func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// EventsInRange returns copies of the track's events with from <= beat < to
func (s *Store) EventsInRange(trackID string, from, to float64) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range s.beatmap.Events {
		if e.TrackID == trackID && e.Beat >= from && e.Beat < to {
			out = append(out, e)
		}
	}
	return out
}

// EventAt finds the event on a track at beat
func (s *Store) EventAt(trackID string, beat float64) (Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.eventIndexAt(trackID, beat); i >= 0 {
		return s.beatmap.Events[i], true
	}
	return Event{}, false
}

func (s *Store) eventIndexAt(trackID string, beat float64) int {
	for i, e := range s.beatmap.Events {
		if e.TrackID == trackID && math.Abs(e.Beat-beat) < beatEpsilon {
			return i
		}
	}
	return -1
}

func (s *Store) eventIndex(id int) int {
	for i, e := range s.beatmap.Events {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) SelectionCounts() (notes, obstacles int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.beatmap.Notes {
		if n.Selected {
			notes++
		}
	}
	for _, o := range s.beatmap.Obstacles {
		if o.Selected {
			obstacles++
		}
	}
	return notes, obstacles
}

func (s *Store) SelectedEventCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.beatmap.Events {
		if e.Selected {
			n++
		}
	}
	return n
}

// SelectedObstacle returns the obstacle when it is the only selected item
func (s *Store) SelectedObstacle() (Obstacle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.soleObstacleLocked()
	if i < 0 {
		return Obstacle{}, false
	}
	return s.beatmap.Obstacles[i], true
}

func (s *Store) soleObstacleLocked() int {
	for _, n := range s.beatmap.Notes {
		if n.Selected {
			return -1
		}
	}
	idx := -1
	for i, o := range s.beatmap.Obstacles {
		if o.Selected {
			if idx >= 0 {
				return -1
			}
			idx = i
		}
	}
	return idx
}

func (s *Store) HasCopiedNotes() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clip.notes) > 0 || len(s.clip.obstacles) > 0
}

func (s *Store) HasCopiedEvents() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clip.events) > 0
}

// Dispatcher side

// PlaceEvent puts an event of the current tool on a track, replacing any
// event already at that beat.
func (s *Store) PlaceEvent(trackID string, beat float64) (Event, error) {
	track, err := checkPlacement(trackID, beat)
	if err != nil {
		return Event{}, err
	}

	var placed Event
	s.mutate(func() {
		placed = s.placeLocked(track, beat)
	})
	debug.Debug("store", "placed %s on %s at %.3f", placed.Type, trackID, beat)
	return placed, nil
}

// ToggleEventAt deletes the event at beat on a track, or places one when the
// slot is empty, in a single step. placed reports which happened.
func (s *Store) ToggleEventAt(trackID string, beat float64) (e Event, placed bool, err error) {
	track, err := checkPlacement(trackID, beat)
	if err != nil {
		return Event{}, false, err
	}

	s.mutate(func() {
		if i := s.eventIndexAt(trackID, beat); i >= 0 {
			e = s.beatmap.Events[i]
			s.beatmap.Events = append(s.beatmap.Events[:i], s.beatmap.Events[i+1:]...)
			s.touchLocked()
			return
		}
		e, placed = s.placeLocked(track, beat), true
	})
	return e, placed, nil
}

func checkPlacement(trackID string, beat float64) (Track, error) {
	track, ok := TrackByID(trackID)
	if !ok {
		return Track{}, fault.New("unknown track "+trackID, ftag.With(ftag.InvalidArgument))
	}
	if beat < 0 || math.IsNaN(beat) || math.IsInf(beat, 0) {
		return Track{}, fault.New("event beat out of range",
			ftag.With(ftag.InvalidArgument),
			fmsg.WithDesc("event beat out of range", "Events cannot be placed before the song starts"))
	}
	return track, nil
}

// placeLocked builds an event from the current tool and stores it, keeping
// the id of an event it replaces
func (s *Store) placeLocked(track Track, beat float64) Event {
	placed := Event{TrackID: track.ID, Beat: beat}
	switch {
	case track.ID == "largeRing":
		placed.Type = EventRotate
	case track.ID == "smallRing":
		placed.Type = EventZoom
	default:
		placed.Type = s.tool
		if placed.Type != EventOff {
			placed.Color = s.color
		}
		if track.Type == TrackSideLaser {
			placed.LaserSpeed = s.laserSpeed
		}
	}

	if i := s.eventIndexAt(track.ID, beat); i >= 0 {
		placed.ID = s.beatmap.Events[i].ID
		s.beatmap.Events[i] = placed
	} else {
		placed.ID = s.nextID
		s.nextID++
		s.beatmap.Events = append(s.beatmap.Events, placed)
		s.beatmap.sort()
	}
	s.touchLocked()
	return placed
}

func (s *Store) ToggleEventSelected(id int) {
	s.mutate(func() {
		if i := s.eventIndex(id); i >= 0 {
			s.beatmap.Events[i].Selected = !s.beatmap.Events[i].Selected
		}
	})
}

func (s *Store) DeleteEvent(id int) {
	s.mutate(func() {
		if i := s.eventIndex(id); i >= 0 {
			s.beatmap.Events = append(s.beatmap.Events[:i], s.beatmap.Events[i+1:]...)
			s.touchLocked()
		}
	})
}

func validSnap(q float64) error {
	if !(q > 0) || math.IsInf(q, 0) {
		return fault.New("invalid snap",
			ftag.With(ftag.InvalidArgument),
			fmsg.WithDesc("invalid snap", "Snap must be a positive number of beats"))
	}
	return nil
}

func validZoom(level int) error {
	if level < MinZoom || level > len(ZoomBeats) {
		return fault.New("invalid zoom level",
			ftag.With(ftag.InvalidArgument),
			fmsg.WithDesc("invalid zoom level", "Zoom is already at its limit"))
	}
	return nil
}

// SetSnapTo changes the snapping quantum. Non-positive values are rejected
// here so the mapper never sees them.
func (s *Store) SetSnapTo(q float64) error {
	if err := validSnap(q); err != nil {
		return err
	}
	s.mutate(func() { s.snapTo = q })
	return nil
}

func (s *Store) SetZoomLevel(level int) error {
	if err := validZoom(level); err != nil {
		return err
	}
	s.mutate(func() { s.zoomLevel = level })
	return nil
}

// ScrollBeats moves the visible window by whole beats, never before beat 0
func (s *Store) ScrollBeats(delta int) {
	s.mutate(func() {
		s.startBeat = math.Max(0, math.Floor(s.startBeat)+float64(delta))
	})
}

// SeekTo moves the song position, scrolling the window when it leaves view
func (s *Store) SeekTo(beat float64) {
	s.mutate(func() {
		s.songBeat = math.Max(0, beat)
		if s.songBeat < s.startBeat || s.songBeat >= s.endBeatLocked() {
			s.startBeat = math.Floor(s.songBeat)
		}
	})
}

func (s *Store) SetTool(t EventType) {
	s.mutate(func() { s.tool = t })
}

func (s *Store) SetColor(c LightColor) {
	s.mutate(func() { s.color = c })
}

func (s *Store) SetLaserSpeed(speed int) {
	s.mutate(func() {
		s.laserSpeed = min(max(speed, 0), MaxLaser)
	})
}

func (s *Store) SetNoteTick(on bool) {
	s.mutate(func() { s.noteTick = on })
}

func (s *Store) SetMetronome(on bool) {
	s.mutate(func() { s.metronome = on })
}

func (s *Store) SetLoading(loading bool) {
	s.mutate(func() { s.loading = loading })
}

// Document

// Load replaces the beatmap and remembers where it came from
func (s *Store) Load(b *Beatmap, path string) {
	s.mutate(func() {
		s.beatmap = b
		s.path = path
		s.dirty = false
		s.nextID = b.maxEventID() + 1
		s.startBeat = 0
		s.songBeat = 0
	})
}

// LoadFile reads path into the store. Pointer input is suppressed while the
// file loads. A missing file starts an empty beatmap at that path.
func (s *Store) LoadFile(path string) error {
	s.SetLoading(true)
	defer s.SetLoading(false)

	b, err := ReadBeatmap(path)
	if err != nil {
		if ftag.Get(err) == ftag.NotFound {
			s.Load(NewBeatmap(), path)
			debug.Log("store", "new beatmap at %s", path)
			return nil
		}
		return err
	}
	s.Load(b, path)
	debug.Log("store", "loaded %s (%d events)", path, len(b.Events))
	return nil
}

// Save writes the beatmap to its path
func (s *Store) Save() error {
	s.mu.RLock()
	path := s.path
	s.mu.RUnlock()
	if path == "" {
		return fault.New("no file",
			ftag.With(ftag.InvalidArgument),
			fmsg.WithDesc("no file", "Start beatgrid with a file to save to"))
	}

	s.mu.RLock()
	doc, rev := s.beatmapLocked(), s.rev
	s.mu.RUnlock()

	if err := WriteBeatmap(path, doc); err != nil {
		return err
	}
	s.mutate(func() {
		// edits made while writing are not on disk yet
		if s.rev == rev {
			s.dirty = false
		}
	})
	debug.Log("store", "saved %s", path)
	return nil
}

// Snapshot serializes the current beatmap
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.beatmap.Encode()
}

// Restore replaces the beatmap with a snapshot, keeping the file path
func (s *Store) Restore(data []byte) error {
	b, err := DecodeBeatmap(data)
	if err != nil {
		return err
	}
	s.mutate(func() {
		s.beatmap = b
		s.nextID = b.maxEventID() + 1
		s.touchLocked()
	})
	return nil
}

// Beatmap returns a deep copy of the document
func (s *Store) Beatmap() *Beatmap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.beatmapLocked()
}

func (s *Store) beatmapLocked() *Beatmap {
	return &Beatmap{
		Version:   s.beatmap.Version,
		Notes:     append([]Note(nil), s.beatmap.Notes...),
		Obstacles: append([]Obstacle(nil), s.beatmap.Obstacles...),
		Events:    append([]Event(nil), s.beatmap.Events...),
	}
}

// Apply settings that arrive from a reloaded config file. Nothing changes
// unless every value is valid.
func (s *Store) Apply(set Settings) error {
	if err := validSnap(set.SnapTo); err != nil {
		return err
	}
	if err := validZoom(set.ZoomLevel); err != nil {
		return err
	}
	s.mutate(func() {
		s.snapTo = set.SnapTo
		s.zoomLevel = set.ZoomLevel
		s.noteTick = set.NoteTick
		s.metronome = set.Metronome
	})
	return nil
}
