// Package mapview keeps a server-side model of the workout map: its viewport and markers.
package mapview

import (
	"sync"

	"example.com/workouts/internal/domain"
)

// Marker is a pin with an always-open popup.
type Marker struct {
	WorkoutID domain.ID     `json:"workout_id"`
	Coords    domain.Coords `json:"coords"`
	Popup     string        `json:"popup"`
	ClassName string        `json:"class_name"`
}

// MarkerFor builds the marker rendered for w.
func MarkerFor(w domain.Workout) Marker {
	return Marker{
		WorkoutID: w.ID(),
		Coords:    w.Coords(),
		Popup:     w.Popup(),
		ClassName: string(w.Type()) + "-popup",
	}
}

// Snapshot is a copy of the board state.
type Snapshot struct {
	Ready   bool           `json:"ready"`
	Center  *domain.Coords `json:"center,omitempty"`
	Zoom    int            `json:"zoom,omitempty"`
	Markers []Marker       `json:"markers"`
}

// Board records the commands issued to the map. It is safe for concurrent use.
type Board struct {
	mu      sync.RWMutex
	ready   bool
	center  domain.Coords
	zoom    int
	markers []Marker
}

// NewBoard returns an uninitialised board.
func NewBoard() *Board {
	return &Board{}
}

// SetView centres the map. The first call marks the board ready.
func (b *Board) SetView(center domain.Coords, zoom int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ready = true
	b.center = center
	b.zoom = zoom
}

// AddMarker pins m to the map.
func (b *Board) AddMarker(m Marker) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.markers = append(b.markers, m)
}

// Reset removes every marker and forgets the viewport.
func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ready = false
	b.center = domain.Coords{}
	b.zoom = 0
	b.markers = nil
}

// Snapshot returns the current state.
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := Snapshot{Ready: b.ready, Markers: make([]Marker, len(b.markers))}
	copy(s.Markers, b.markers)
	if b.ready {
		center := b.center
		s.Center = &center
		s.Zoom = b.zoom
	}
	return s
}
