// Package events defines concrete event payloads for the dispatcher.
// Each payload declares its kind with a constant tag.
package events

import "github.com/zjrosen/pulse/internal/event"

// Kind tags for the payloads in this package.
const (
	KindGame        event.Kind = "game"
	KindTick        event.Kind = "tick"
	KindWaveEnded   event.Kind = "wave.ended"
	KindTowerPlaced event.Kind = "tower.placed"
)

// GameEvent is a payload-free game notification.
type GameEvent struct{}

// Kind implements event.Event.
func (GameEvent) Kind() event.Kind { return KindGame }

// Tick marks one cycle of a frame loop.
type Tick struct {
	Frame uint64
}

// Kind implements event.Event.
func (Tick) Kind() event.Kind { return KindTick }

// WaveEnded reports that a wave of enemies has been cleared.
type WaveEnded struct {
	Wave int
}

// Kind implements event.Event.
func (WaveEnded) Kind() event.Kind { return KindWaveEnded }

// TowerPlaced reports a tower built at a grid position.
type TowerPlaced struct {
	TowerID string
	X, Y    int
}

// Kind implements event.Event.
func (TowerPlaced) Kind() event.Kind { return KindTowerPlaced }

// Signal is an event whose kind is chosen at construction.
// Scenario files use it so that they can name arbitrary kinds.
type Signal struct {
	Tag  event.Kind
	ID   string
	Data map[string]any
}

// Kind implements event.Event.
func (s Signal) Kind() event.Kind { return s.Tag }
