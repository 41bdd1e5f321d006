package editor

import (
	"encoding/json"
	"math"

	"beatgrid/debug"
)

// Lanes and layers of the note grid
const (
	NumLanes  = 4
	NumLayers = 3
)

var horizontalFlip = map[int]int{
	DirLeft:      DirRight,
	DirRight:     DirLeft,
	DirUpLeft:    DirUpRight,
	DirUpRight:   DirUpLeft,
	DirDownLeft:  DirDownRight,
	DirDownRight: DirDownLeft,
}

var verticalFlip = map[int]int{
	DirUp:        DirDown,
	DirDown:      DirUp,
	DirUpLeft:    DirDownLeft,
	DirDownLeft:  DirUpLeft,
	DirUpRight:   DirDownRight,
	DirDownRight: DirUpRight,
}

func flip(table map[int]int, dir int) int {
	if d, ok := table[dir]; ok {
		return d
	}
	return dir
}

func (s *Store) DeselectAll(view View) {
	s.mutate(func() {
		switch view {
		case NotesView:
			for i := range s.beatmap.Notes {
				s.beatmap.Notes[i].Selected = false
			}
			for i := range s.beatmap.Obstacles {
				s.beatmap.Obstacles[i].Selected = false
			}
		case EventsView:
			for i := range s.beatmap.Events {
				s.beatmap.Events[i].Selected = false
			}
		}
	})
}

// SelectAllInRange selects every item of the view inside the visible window
func (s *Store) SelectAllInRange(view View) {
	s.mutate(func() {
		from, to := s.startBeat, s.endBeatLocked()
		in := func(b float64) bool { return b >= from && b < to }
		switch view {
		case NotesView:
			for i := range s.beatmap.Notes {
				if in(s.beatmap.Notes[i].Beat) {
					s.beatmap.Notes[i].Selected = true
				}
			}
			for i := range s.beatmap.Obstacles {
				if in(s.beatmap.Obstacles[i].Beat) {
					s.beatmap.Obstacles[i].Selected = true
				}
			}
		case EventsView:
			for i := range s.beatmap.Events {
				if in(s.beatmap.Events[i].Beat) {
					s.beatmap.Events[i].Selected = true
				}
			}
		}
	})
}

// SwapSelectedNotes mirrors selected notes and obstacles across an axis
func (s *Store) SwapSelectedNotes(axis Axis) {
	s.mutate(func() {
		for i := range s.beatmap.Notes {
			n := &s.beatmap.Notes[i]
			if !n.Selected {
				continue
			}
			switch axis {
			case Horizontal:
				n.LineIndex = NumLanes - 1 - n.LineIndex
				n.Direction = flip(horizontalFlip, n.Direction)
			case Vertical:
				n.LineLayer = NumLayers - 1 - n.LineLayer
				n.Direction = flip(verticalFlip, n.Direction)
			}
			s.touchLocked()
		}

		// Walls span lanes, so only the horizontal swap moves them
		if axis == Horizontal {
			for i := range s.beatmap.Obstacles {
				o := &s.beatmap.Obstacles[i]
				if o.Selected {
					o.LineIndex = NumLanes - o.LineIndex - o.Width
					s.touchLocked()
				}
			}
		}
	})
}

// NudgeSelection moves the view's selection by one snap step
func (s *Store) NudgeSelection(dir Direction, view View) {
	s.mutate(func() {
		delta := s.snapTo
		if dir == Backwards {
			delta = -delta
		}
		moved := 0
		switch view {
		case NotesView:
			for i := range s.beatmap.Notes {
				if s.beatmap.Notes[i].Selected {
					s.beatmap.Notes[i].Beat = math.Max(0, s.beatmap.Notes[i].Beat+delta)
					moved++
				}
			}
			for i := range s.beatmap.Obstacles {
				if s.beatmap.Obstacles[i].Selected {
					s.beatmap.Obstacles[i].Beat = math.Max(0, s.beatmap.Obstacles[i].Beat+delta)
					moved++
				}
			}
		case EventsView:
			moved = s.nudgeEventsLocked(delta)
		}
		if moved > 0 {
			s.beatmap.sort()
			s.touchLocked()
		}
	})
}

type eventSlot struct {
	track string
	beat  float64
}

func (e Event) slot() eventSlot { return eventSlot{e.TrackID, e.Beat} }

func (a eventSlot) same(b eventSlot) bool {
	return a.track == b.track && math.Abs(a.beat-b.beat) < beatEpsilon
}

// nudgeEventsLocked moves the selected events by delta. A moved event
// replaces an unselected one at its new slot. When two moved events would
// share a slot, which only happens when clamping at beat 0, nothing moves.
func (s *Store) nudgeEventsLocked(delta float64) int {
	var targets []eventSlot
	for _, e := range s.beatmap.Events {
		if !e.Selected {
			continue
		}
		t := eventSlot{e.TrackID, math.Max(0, e.Beat+delta)}
		for _, other := range targets {
			if t.same(other) {
				debug.Debug("store", "nudge would stack events on %s at %.3f", t.track, t.beat)
				return 0
			}
		}
		targets = append(targets, t)
	}
	if len(targets) == 0 {
		return 0
	}

	kept := s.beatmap.Events[:0]
	for _, e := range s.beatmap.Events {
		if e.Selected {
			e.Beat = math.Max(0, e.Beat+delta)
		} else if occupied(targets, e.slot()) {
			continue
		}
		kept = append(kept, e)
	}
	s.beatmap.Events = kept
	return len(targets)
}

func occupied(slots []eventSlot, s eventSlot) bool {
	for _, t := range slots {
		if t.same(s) {
			return true
		}
	}
	return false
}

// copyLocked fills the clipboard with the view's selection, beats relative
// to the earliest selected item. It returns false when nothing is selected.
func (s *Store) copyLocked(view View) bool {
	switch view {
	case NotesView:
		var notes []Note
		var obstacles []Obstacle
		for _, n := range s.beatmap.Notes {
			if n.Selected {
				notes = append(notes, n)
			}
		}
		for _, o := range s.beatmap.Obstacles {
			if o.Selected {
				obstacles = append(obstacles, o)
			}
		}
		if len(notes) == 0 && len(obstacles) == 0 {
			return false
		}

		earliest := math.Inf(1)
		for _, n := range notes {
			earliest = math.Min(earliest, n.Beat)
		}
		for _, o := range obstacles {
			earliest = math.Min(earliest, o.Beat)
		}
		for i := range notes {
			notes[i].Beat -= earliest
			notes[i].Selected = false
		}
		for i := range obstacles {
			obstacles[i].Beat -= earliest
			obstacles[i].Selected = false
		}
		s.clip.notes = notes
		s.clip.obstacles = obstacles

	case EventsView:
		var events []Event
		for _, e := range s.beatmap.Events {
			if e.Selected {
				events = append(events, e)
			}
		}
		if len(events) == 0 {
			return false
		}
		earliest := events[0].Beat
		for _, e := range events {
			earliest = math.Min(earliest, e.Beat)
		}
		for i := range events {
			events[i].Beat -= earliest
			events[i].Selected = false
			events[i].ID = 0
		}
		s.clip.events = events
	}
	return true
}

// clipJSON renders the clipboard for export; assumes the lock is held
func (s *Store) clipJSON(view View) string {
	var payload any
	switch view {
	case NotesView:
		payload = struct {
			Notes     []Note     `json:"notes"`
			Obstacles []Obstacle `json:"obstacles"`
		}{s.clip.notes, s.clip.obstacles}
	case EventsView:
		payload = struct {
			Events []Event `json:"events"`
		}{s.clip.events}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(data)
}

func (s *Store) exportClip(view View) {
	s.mu.RLock()
	writer := s.clipboardWriter
	text := s.clipJSON(view)
	s.mu.RUnlock()

	if writer == nil || text == "" {
		return
	}
	if err := writer(text); err != nil {
		debug.WithError("clipboard", err, "export selection")
	}
}

func (s *Store) CopySelection(view View) {
	copied := false
	s.mutate(func() { copied = s.copyLocked(view) })
	if copied {
		s.exportClip(view)
	}
}

// CutSelection copies the selection and removes it from the beatmap
func (s *Store) CutSelection(view View) {
	copied := false
	s.mutate(func() {
		copied = s.copyLocked(view)
		if !copied {
			return
		}
		switch view {
		case NotesView:
			notes := s.beatmap.Notes[:0]
			for _, n := range s.beatmap.Notes {
				if !n.Selected {
					notes = append(notes, n)
				}
			}
			s.beatmap.Notes = notes
			obstacles := s.beatmap.Obstacles[:0]
			for _, o := range s.beatmap.Obstacles {
				if !o.Selected {
					obstacles = append(obstacles, o)
				}
			}
			s.beatmap.Obstacles = obstacles
		case EventsView:
			events := s.beatmap.Events[:0]
			for _, e := range s.beatmap.Events {
				if !e.Selected {
					events = append(events, e)
				}
			}
			s.beatmap.Events = events
		}
		s.touchLocked()
	})
	if copied {
		s.exportClip(view)
	}
}

// PasteSelection inserts the clipboard at the song position. The previous
// selection is cleared and the pasted items become the new selection.
func (s *Store) PasteSelection(view View) {
	s.mutate(func() {
		at := s.songBeat
		switch view {
		case NotesView:
			if len(s.clip.notes) == 0 && len(s.clip.obstacles) == 0 {
				return
			}
			for i := range s.beatmap.Notes {
				s.beatmap.Notes[i].Selected = false
			}
			for i := range s.beatmap.Obstacles {
				s.beatmap.Obstacles[i].Selected = false
			}
			for _, n := range s.clip.notes {
				n.Beat += at
				n.Selected = true
				s.beatmap.Notes = append(s.beatmap.Notes, n)
			}
			for _, o := range s.clip.obstacles {
				o.Beat += at
				o.Selected = true
				s.beatmap.Obstacles = append(s.beatmap.Obstacles, o)
			}
		case EventsView:
			if len(s.clip.events) == 0 {
				return
			}
			for i := range s.beatmap.Events {
				s.beatmap.Events[i].Selected = false
			}
			for _, e := range s.clip.events {
				e.Beat += at
				e.Selected = true
				// Pasted events replace whatever sits on the same track and beat
				if i := s.eventIndexAt(e.TrackID, e.Beat); i >= 0 {
					e.ID = s.beatmap.Events[i].ID
					s.beatmap.Events[i] = e
					continue
				}
				e.ID = s.nextID
				s.nextID++
				s.beatmap.Events = append(s.beatmap.Events, e)
			}
		}
		s.beatmap.sort()
		s.touchLocked()
	})
}

// AdjustSelectedObstacle resizes the only selected obstacle. Duration never
// drops below one snap step and the wall always stays inside the lanes.
func (s *Store) AdjustSelectedObstacle(durationDelta float64, widthDelta int) {
	s.mutate(func() {
		i := s.soleObstacleLocked()
		if i < 0 {
			return
		}
		o := &s.beatmap.Obstacles[i]
		o.Duration = math.Max(s.snapTo, o.Duration+durationDelta)
		o.Width = min(max(o.Width+widthDelta, 1), NumLanes-o.LineIndex)
		s.touchLocked()
	})
}

// SelectNotesAt toggles selection of every note and obstacle starting at beat
func (s *Store) SelectNotesAt(beat float64) {
	s.mutate(func() {
		for i := range s.beatmap.Notes {
			if math.Abs(s.beatmap.Notes[i].Beat-beat) < beatEpsilon {
				s.beatmap.Notes[i].Selected = !s.beatmap.Notes[i].Selected
			}
		}
		for i := range s.beatmap.Obstacles {
			if math.Abs(s.beatmap.Obstacles[i].Beat-beat) < beatEpsilon {
				s.beatmap.Obstacles[i].Selected = !s.beatmap.Obstacles[i].Selected
			}
		}
	})
}
