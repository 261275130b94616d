// Package sim holds the mutable orbital state and the frame loop that
// advances it.
package sim

import (
	"math"
	"math/rand"
	"strings"

	"solar-system-ai/internal/celestial"
)

// OrbitState is the per-body mutable state. Angles are radians and are never
// wrapped; they only feed trigonometric functions.
type OrbitState struct {
	Body     celestial.Body
	Angle    float64
	Rotation float64
	Position celestial.Vector3
}

// State is the whole simulation: one OrbitState per registered body plus the
// two process-wide flags.
type State struct {
	Bodies        []OrbitState
	Moving        bool
	OrbitsVisible bool
	SunRotation   float64
	Frame         uint64
}

// NewState creates one OrbitState per body with a uniformly random initial
// angle drawn from rng. Movement and orbit guides start enabled.
func NewState(bodies []celestial.Body, rng *rand.Rand) *State {
	s := &State{
		Bodies:        make([]OrbitState, 0, len(bodies)),
		Moving:        true,
		OrbitsVisible: true,
	}
	for _, b := range bodies {
		angle := rng.Float64() * 2 * math.Pi
		s.Bodies = append(s.Bodies, OrbitState{
			Body:     b,
			Angle:    angle,
			Position: celestial.OrbitPosition(b.OrbitRadius, angle),
		})
	}
	return s
}

// Tick advances the simulation by one frame. When movement is disabled no
// OrbitState is touched; the sun keeps spinning either way.
func (s *State) Tick() {
	s.Frame++
	s.SunRotation += celestial.SunRotationStep

	if !s.Moving {
		return
	}
	for i := range s.Bodies {
		o := &s.Bodies[i]
		o.Angle += o.Body.OrbitSpeed
		o.Position = celestial.OrbitPosition(o.Body.OrbitRadius, o.Angle)
		o.Rotation += o.Body.RotationSpeed
	}
}

// ToggleMovement flips the movement flag and returns the new value
func (s *State) ToggleMovement() bool {
	s.Moving = !s.Moving
	return s.Moving
}

// MovementLabel is the caption for the movement toggle control
func (s *State) MovementLabel() string {
	if s.Moving {
		return "Stop Movement"
	}
	return "Start Movement"
}

// SetOrbitsVisible sets the orbit guide flag. It has no effect on the simulation.
func (s *State) SetOrbitsVisible(visible bool) {
	s.OrbitsVisible = visible
}

// Find returns the state for a body name (case-insensitive)
func (s *State) Find(name string) (*OrbitState, bool) {
	for i := range s.Bodies {
		if strings.EqualFold(s.Bodies[i].Body.Name, name) {
			return &s.Bodies[i], true
		}
	}
	return nil, false
}

// BodySnapshot is the serialisable view of one body at a frame
type BodySnapshot struct {
	Name     string            `json:"name"`
	Radius   float64           `json:"radius"`
	Angle    float64           `json:"angle"`
	Rotation float64           `json:"rotation"`
	Position celestial.Vector3 `json:"position"`
}

// Snapshot is the serialisable view of the whole state at a frame
type Snapshot struct {
	Frame         uint64         `json:"frame"`
	Moving        bool           `json:"moving"`
	OrbitsVisible bool           `json:"orbits_visible"`
	SunRotation   float64        `json:"sun_rotation"`
	Bodies        []BodySnapshot `json:"bodies"`
}

// Snapshot copies the current state so it can leave the loop goroutine
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Frame:         s.Frame,
		Moving:        s.Moving,
		OrbitsVisible: s.OrbitsVisible,
		SunRotation:   s.SunRotation,
		Bodies:        make([]BodySnapshot, 0, len(s.Bodies)),
	}
	for _, o := range s.Bodies {
		snap.Bodies = append(snap.Bodies, BodySnapshot{
			Name:     o.Body.Name,
			Radius:   o.Body.Radius,
			Angle:    o.Angle,
			Rotation: o.Rotation,
			Position: o.Position,
		})
	}
	return snap
}
