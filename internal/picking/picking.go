// Package picking maps pointer clicks to bodies by casting a ray from the
// camera and keeps track of the current selection.
package picking

import (
	"sort"

	"solar-system-ai/internal/camera"
	"solar-system-ai/internal/celestial"
	"solar-system-ai/internal/sim"
)

// NDC converts a pixel position in a width x height viewport to normalized
// device coordinates with +Y up.
func NDC(px, py, width, height float64) (x, y float64) {
	x = (px/width)*2 - 1
	y = -(py/height)*2 + 1
	return x, y
}

// Hit is one intersection of a pick ray with a body
type Hit struct {
	Name     string
	Distance float64
	Point    celestial.Vector3
}

// Intersector tests a ray against the pickable bodies. Hits must be sorted
// nearest first.
type Intersector interface {
	Intersect(ray celestial.Ray) []Hit
}

// SphereIntersector treats every body in a simulation state as a sphere of
// its visual radius at its current position.
type SphereIntersector struct {
	State *sim.State
}

// Intersect implements Intersector
func (si SphereIntersector) Intersect(ray celestial.Ray) []Hit {
	var hits []Hit
	for _, o := range si.State.Bodies {
		d, ok := ray.IntersectSphere(o.Position, o.Body.Radius)
		if !ok {
			continue
		}
		hits = append(hits, Hit{Name: o.Body.Name, Distance: d, Point: ray.At(d)})
	}
	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	return hits
}

// Opener is told which body was selected. The chat panel implements it.
type Opener interface {
	Open(body string)
}

// Controller holds the current selection. It is driven from the frame loop
// goroutine and is not safe for concurrent use.
type Controller struct {
	Camera      *camera.Camera
	Intersector Intersector
	Opener      Opener

	// OnSelect, when set, runs after each successful pick
	OnSelect func(body string)

	width, height float64
	selected      string
}

// NewController creates a controller for a width x height viewport
func NewController(cam *camera.Camera, in Intersector, opener Opener, width, height float64) *Controller {
	c := &Controller{
		Camera:      cam,
		Intersector: in,
		Opener:      opener,
	}
	c.Resize(width, height)
	return c
}

// Resize records the viewport size used for NDC conversion
func (c *Controller) Resize(width, height float64) {
	if width > 0 && height > 0 {
		c.width, c.height = width, height
	}
}

// Selection returns the selected body name, or "" when nothing is selected
func (c *Controller) Selection() string {
	return c.selected
}

// Click picks at pixel (px, py). On a hit the nearest body becomes the
// selection and the panel opens for it. A miss changes nothing.
func (c *Controller) Click(px, py float64) (string, bool) {
	if c.width == 0 || c.height == 0 {
		return "", false
	}
	x, y := NDC(px, py, c.width, c.height)
	hits := c.Intersector.Intersect(c.Camera.Ray(x, y))
	if len(hits) == 0 {
		return "", false
	}

	c.selected = hits[0].Name
	if c.Opener != nil {
		c.Opener.Open(c.selected)
	}
	if c.OnSelect != nil {
		c.OnSelect(c.selected)
	}
	return c.selected, true
}
