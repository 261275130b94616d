package celestial

import (
	"errors"
	"math"
	"strings"
)

// ErrUnknownBody is returned when a name does not match any registered body
var ErrUnknownBody = errors.New("unknown celestial body")

// Sun parameters. The sun sits at the origin and is never picked.
const (
	SunName         = "Sun"
	SunRadius       = 5.0
	SunRotationStep = 0.01 // radians per tick, independent of the movement flag
)

// Body is the static description of one orbiting body.
// Sizes and distances are scene units; speeds are radians per tick.
type Body struct {
	Name          string  `json:"name" yaml:"name"`
	Radius        float64 `json:"radius" yaml:"radius"`                 // visual radius
	OrbitRadius   float64 `json:"orbit_radius" yaml:"orbit_radius"`     // distance from the sun
	OrbitSpeed    float64 `json:"orbit_speed" yaml:"orbit_speed"`       // orbital angle advanced per tick
	RotationSpeed float64 `json:"rotation_speed" yaml:"rotation_speed"` // self-rotation advanced per tick
	Texture       string  `json:"texture" yaml:"texture"`               // asset path used by renderers
}

// InitSolarSystemObjects returns the planets in order from the sun
func InitSolarSystemObjects() []Body {
	return []Body{
		{
			Name:          "Mercury",
			Radius:        0.5,
			OrbitRadius:   10,
			OrbitSpeed:    0.008,
			RotationSpeed: 0.016,
			Texture:       "textures/mercury.jpg",
		},
		{
			Name:          "Venus",
			Radius:        0.9,
			OrbitRadius:   15,
			OrbitSpeed:    0.0064,
			RotationSpeed: 0.008,
			Texture:       "textures/venus.jpg",
		},
		{
			Name:          "Earth",
			Radius:        1.0,
			OrbitRadius:   20,
			OrbitSpeed:    0.0048,
			RotationSpeed: 0.008,
			Texture:       "textures/earth.jpg",
		},
		{
			Name:          "Mars",
			Radius:        0.8,
			OrbitRadius:   25,
			OrbitSpeed:    0.004,
			RotationSpeed: 0.0096,
			Texture:       "textures/mars.jpg",
		},
		{
			Name:          "Jupiter",
			Radius:        2.5,
			OrbitRadius:   35,
			OrbitSpeed:    0.0024,
			RotationSpeed: 0.004,
			Texture:       "textures/jupiter.jpg",
		},
		{
			Name:          "Saturn",
			Radius:        2.0,
			OrbitRadius:   45,
			OrbitSpeed:    0.002,
			RotationSpeed: 0.0032,
			Texture:       "textures/saturn.jpg",
		},
		{
			Name:          "Uranus",
			Radius:        1.5,
			OrbitRadius:   55,
			OrbitSpeed:    0.0016,
			RotationSpeed: 0.0024,
			Texture:       "textures/uranus.jpg",
		},
		{
			Name:          "Neptune",
			Radius:        1.3,
			OrbitRadius:   65,
			OrbitSpeed:    0.0012,
			RotationSpeed: 0.0024,
			Texture:       "textures/neptune.jpg",
		},
	}
}

// FindObjectByName looks a body up case-insensitively
func FindObjectByName(bodies []Body, name string) (Body, bool) {
	for _, b := range bodies {
		if strings.EqualFold(b.Name, name) {
			return b, true
		}
	}
	return Body{}, false
}

// OrbitPosition places a body on its circular orbit in the XZ plane
func OrbitPosition(radius, angle float64) Vector3 {
	return Vector3{
		X: radius * math.Cos(angle),
		Y: 0,
		Z: radius * math.Sin(angle),
	}
}

// OrbitPath returns segments+1 points tracing the orbit guide; the last point
// closes the loop on the first.
func OrbitPath(radius float64, segments int) []Vector3 {
	if segments < 3 {
		segments = 3
	}
	points := make([]Vector3, 0, segments+1)
	for i := 0; i <= segments; i++ {
		theta := float64(i) / float64(segments) * 2 * math.Pi
		points = append(points, OrbitPosition(radius, theta))
	}
	return points
}
