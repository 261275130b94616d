// Package camera implements a perspective camera with orbit-style controls
// and an eased zoom transition toward a body.
package camera

import (
	"math"

	"solar-system-ai/internal/celestial"
)

// Perspective defaults
const (
	DefaultFOV  = 75.0 // vertical field of view, degrees
	DefaultNear = 0.1
	DefaultFar  = 2000.0

	minOrbitDistance = 1.0
	polarEpsilon     = 1e-3
)

// DefaultPosition is where the camera starts, looking at the origin
var DefaultPosition = celestial.Vec3(0, 30, 100)

var worldUp = celestial.Vec3(0, 1, 0)

// Camera is a perspective camera looking from Position at Target
type Camera struct {
	Position celestial.Vector3
	Target   celestial.Vector3
	FOV      float64
	Aspect   float64
	Near     float64
	Far      float64
}

// New returns a camera at DefaultPosition looking at the origin
func New(aspect float64) *Camera {
	if aspect <= 0 {
		aspect = 1
	}
	return &Camera{
		Position: DefaultPosition,
		FOV:      DefaultFOV,
		Aspect:   aspect,
		Near:     DefaultNear,
		Far:      DefaultFar,
	}
}

// SetAspect updates the viewport aspect ratio after a resize
func (c *Camera) SetAspect(aspect float64) {
	if aspect > 0 {
		c.Aspect = aspect
	}
}

// basis returns the forward, right and up unit vectors of the view
func (c *Camera) basis() (forward, right, up celestial.Vector3) {
	forward = c.Target.Subtract(c.Position).Normalize()
	right = forward.CrossProduct(worldUp).Normalize()
	if right.Magnitude() == 0 {
		// looking straight up or down
		right = celestial.Vec3(1, 0, 0)
	}
	up = right.CrossProduct(forward)
	return forward, right, up
}

func (c *Camera) tanHalfFOV() float64 {
	return math.Tan(c.FOV * math.Pi / 360)
}

// Ray returns the ray from the camera through a point in normalized device
// coordinates, both axes in [-1, 1] with +Y up.
func (c *Camera) Ray(ndcX, ndcY float64) celestial.Ray {
	forward, right, up := c.basis()
	th := c.tanHalfFOV()
	dir := forward.
		Add(right.Scale(ndcX * th * c.Aspect)).
		Add(up.Scale(ndcY * th))
	return celestial.NewRay(c.Position, dir)
}

// Project maps a world point to normalized device coordinates. ok is false
// when the point lies outside the near/far range.
func (c *Camera) Project(p celestial.Vector3) (ndcX, ndcY, depth float64, ok bool) {
	forward, right, up := c.basis()
	rel := p.Subtract(c.Position)
	depth = rel.DotProduct(forward)
	if depth < c.Near || depth > c.Far {
		return 0, 0, depth, false
	}
	th := c.tanHalfFOV()
	ndcX = rel.DotProduct(right) / (depth * th * c.Aspect)
	ndcY = rel.DotProduct(up) / (depth * th)
	return ndcX, ndcY, depth, true
}

// ProjectedRadius returns the apparent radius in NDC-Y units of a sphere of
// radius r at the given depth
func (c *Camera) ProjectedRadius(r, depth float64) float64 {
	if depth <= 0 {
		return 0
	}
	return r / (depth * c.tanHalfFOV())
}

// Orbit rotates the camera around its target by the given azimuth and
// elevation deltas in radians. The elevation is clamped short of the poles.
func (c *Camera) Orbit(dAzimuth, dElevation float64) {
	offset := c.Position.Subtract(c.Target)
	r := offset.Magnitude()
	if r == 0 {
		return
	}
	theta := math.Atan2(offset.X, offset.Z)
	phi := math.Acos(clamp(offset.Y/r, -1, 1))

	theta += dAzimuth
	phi = clamp(phi-dElevation, polarEpsilon, math.Pi-polarEpsilon)

	c.Position = c.Target.Add(celestial.Vec3(
		r*math.Sin(phi)*math.Sin(theta),
		r*math.Cos(phi),
		r*math.Sin(phi)*math.Cos(theta),
	))
}

// Dolly scales the distance to the target by factor, keeping the camera
// between one unit and half the far plane from its target.
func (c *Camera) Dolly(factor float64) {
	if factor <= 0 {
		return
	}
	offset := c.Position.Subtract(c.Target)
	r := offset.Magnitude()
	if r == 0 {
		return
	}
	nr := clamp(r*factor, minOrbitDistance, c.Far/2)
	c.Position = c.Target.Add(offset.Scale(nr / r))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
