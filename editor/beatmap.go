package editor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// FormatVersion is written to every saved beatmap
const FormatVersion = "1"

// TrackType decides which event kinds a track accepts
type TrackType string

const (
	TrackSideLaser   TrackType = "side-laser"
	TrackCenterLaser TrackType = "center-laser"
	TrackNeons       TrackType = "track-neons"
	TrackRing        TrackType = "ring"
)

// Track is one row of the events grid
type Track struct {
	ID    string
	Label string
	Type  TrackType
}

// Tracks are the lighting tracks of the events grid, top to bottom
var Tracks = []Track{
	{ID: "laserLeft", Label: "Left laser", Type: TrackSideLaser},
	{ID: "laserRight", Label: "Right laser", Type: TrackSideLaser},
	{ID: "laserBack", Label: "Back laser", Type: TrackCenterLaser},
	{ID: "primaryLight", Label: "Primary light", Type: TrackCenterLaser},
	{ID: "trackNeons", Label: "Track neons", Type: TrackNeons},
	{ID: "largeRing", Label: "Large ring", Type: TrackRing},
	{ID: "smallRing", Label: "Small ring", Type: TrackRing},
}

// TrackByID returns the track with the given id
func TrackByID(id string) (Track, bool) {
	for _, t := range Tracks {
		if t.ID == id {
			return t, true
		}
	}
	return Track{}, false
}

// EventType is what a lighting event does
type EventType string

const (
	EventOn     EventType = "on"
	EventOff    EventType = "off"
	EventFlash  EventType = "flash"
	EventFade   EventType = "fade"
	EventRotate EventType = "rotate"
	EventZoom   EventType = "zoom"
)

// LightTools are the event types a user can pick for light tracks
var LightTools = []EventType{EventOn, EventOff, EventFlash, EventFade}

// LightColor is the color of a light event or note
type LightColor string

const (
	ColorRed  LightColor = "red"
	ColorBlue LightColor = "blue"
)

// Event is a lighting event on a track
type Event struct {
	ID         int        `json:"id"`
	TrackID    string     `json:"trackId"`
	Beat       float64    `json:"beat"`
	Type       EventType  `json:"type"`
	Color      LightColor `json:"color,omitempty"`
	LaserSpeed int        `json:"laserSpeed,omitempty"`
	Selected   bool       `json:"-"`
}

// Cut directions
const (
	DirUp = iota
	DirDown
	DirLeft
	DirRight
	DirUpLeft
	DirUpRight
	DirDownLeft
	DirDownRight
	DirAny
)

// Note is a block the player cuts
type Note struct {
	Beat      float64    `json:"beat"`
	LineIndex int        `json:"lineIndex"` // 0..3, left to right
	LineLayer int        `json:"lineLayer"` // 0..2, bottom to top
	Color     LightColor `json:"color"`
	Direction int        `json:"direction"`
	Selected  bool       `json:"-"`
}

// ObstacleType distinguishes walls from ceilings
type ObstacleType string

const (
	ObstacleWall    ObstacleType = "wall"
	ObstacleCeiling ObstacleType = "ceiling"
)

// Obstacle is a wall spanning Duration beats and Width lanes
type Obstacle struct {
	Beat      float64      `json:"beat"`
	Duration  float64      `json:"duration"`
	LineIndex int          `json:"lineIndex"`
	Width     int          `json:"width"`
	Type      ObstacleType `json:"type"`
	Selected  bool         `json:"-"`
}

// Beatmap is the document being edited
type Beatmap struct {
	Version   string     `json:"version"`
	Notes     []Note     `json:"notes"`
	Obstacles []Obstacle `json:"obstacles"`
	Events    []Event    `json:"events"`
}

// NewBeatmap returns an empty beatmap
func NewBeatmap() *Beatmap {
	return &Beatmap{
		Version:   FormatVersion,
		Notes:     []Note{},
		Obstacles: []Obstacle{},
		Events:    []Event{},
	}
}

func (b *Beatmap) sort() {
	sort.SliceStable(b.Notes, func(i, j int) bool { return b.Notes[i].Beat < b.Notes[j].Beat })
	sort.SliceStable(b.Obstacles, func(i, j int) bool { return b.Obstacles[i].Beat < b.Obstacles[j].Beat })
	sort.SliceStable(b.Events, func(i, j int) bool { return b.Events[i].Beat < b.Events[j].Beat })
}

// maxEventID returns the highest event id in use
func (b *Beatmap) maxEventID() int {
	max := 0
	for _, e := range b.Events {
		if e.ID > max {
			max = e.ID
		}
	}
	return max
}

// DecodeBeatmap parses and normalizes beatmap JSON
func DecodeBeatmap(data []byte) (*Beatmap, error) {
	b := NewBeatmap()
	if err := json.Unmarshal(data, b); err != nil {
		return nil, fault.Wrap(err,
			ftag.With(ftag.InvalidArgument),
			fmsg.WithDesc("decode beatmap", "The beatmap file is not valid JSON"))
	}
	if b.Version == "" {
		b.Version = FormatVersion
	}

	// Events written by hand may lack ids
	next := b.maxEventID()
	for i := range b.Events {
		if b.Events[i].ID == 0 {
			next++
			b.Events[i].ID = next
		}
	}
	b.sort()
	return b, nil
}

// Encode serializes the beatmap for saving
func (b *Beatmap) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With("encode beatmap"))
	}
	return data, nil
}

// ReadBeatmap loads a beatmap file. A missing file is reported as not found
// so callers can start a new document at that path.
func ReadBeatmap(path string) (*Beatmap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fault.Wrap(err,
				ftag.With(ftag.NotFound),
				fmsg.WithDesc("read beatmap", "No beatmap at "+path))
		}
		return nil, fault.Wrap(err, fmsg.WithDesc("read beatmap", "Could not read "+path))
	}
	return DecodeBeatmap(data)
}

// WriteBeatmap saves b to path, creating parent directories
func WriteBeatmap(path string, b *Beatmap) error {
	data, err := b.Encode()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fault.Wrap(err, fmsg.WithDesc("create beatmap dir", "Could not create "+filepath.Dir(path)))
	}

	// Write to a temp file first so a crash never leaves half a beatmap
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fault.Wrap(err, fmsg.WithDesc("write beatmap", "Could not write "+path))
	}
	if err := os.Rename(tmp, path); err != nil {
		return fault.Wrap(err, fmsg.WithDesc("rename beatmap", "Could not write "+path))
	}
	return nil
}
