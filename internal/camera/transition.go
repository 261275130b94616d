package camera

import (
	"solar-system-ai/internal/celestial"
)

// Zoom parameters
const (
	ZoomDuration = 2.0 // simulated seconds
	ZoomMargin   = 5.0 // offset toward the viewer along +Z
)

// Focus reports the live position of the zoom target. It is evaluated on
// every step so a moving body stays centred.
type Focus func() celestial.Vector3

// Transition is an in-flight zoom. Elapsed is advanced by the caller-supplied
// frame step, never by wall-clock time.
type Transition struct {
	StartPosition celestial.Vector3
	EndPosition   celestial.Vector3
	StartTarget   celestial.Vector3
	Focus         Focus
	Elapsed       float64
	Duration      float64
}

// Progress returns elapsed/duration, unclamped
func (t *Transition) Progress() float64 {
	if t.Duration <= 0 {
		return 1
	}
	return t.Elapsed / t.Duration
}

// PositionAt is the camera position at progress p
func (t *Transition) PositionAt(p float64) celestial.Vector3 {
	if p >= 1 {
		return t.EndPosition
	}
	return celestial.Lerp(t.StartPosition, t.EndPosition, p)
}

// TargetAt is the view target at progress p for a focus at focusPos
func (t *Transition) TargetAt(p float64, focusPos celestial.Vector3) celestial.Vector3 {
	if p >= 1 {
		return focusPos
	}
	return celestial.Lerp(t.StartTarget, focusPos, p)
}

// Controller owns a camera and at most one zoom transition
type Controller struct {
	Camera     *Camera
	transition *Transition
}

// NewController wraps cam
func NewController(cam *Camera) *Controller {
	return &Controller{Camera: cam}
}

// ZoomTo starts a transition toward focus, replacing any transition already
// in flight. The end position is captured now; the view target follows focus.
func (c *Controller) ZoomTo(focus Focus) *Transition {
	pos := focus()
	c.transition = &Transition{
		StartPosition: c.Camera.Position,
		EndPosition:   pos.Add(celestial.Vec3(0, 0, ZoomMargin)),
		StartTarget:   c.Camera.Target,
		Focus:         focus,
		Duration:      ZoomDuration,
	}
	return c.transition
}

// Active returns the in-flight transition, or nil when idle
func (c *Controller) Active() *Transition {
	return c.transition
}

// Cancel drops any in-flight transition, leaving the camera where it is
func (c *Controller) Cancel() {
	c.transition = nil
}

// Step advances the transition by dt seconds and reports whether it is still
// running afterwards. On completion the view target snaps to the focus.
func (c *Controller) Step(dt float64) bool {
	tr := c.transition
	if tr == nil {
		return false
	}

	tr.Elapsed += dt
	p := tr.Progress()
	focusPos := tr.Focus()

	c.Camera.Position = tr.PositionAt(p)
	c.Camera.Target = tr.TargetAt(p, focusPos)

	if p >= 1 {
		c.transition = nil
		return false
	}
	return true
}

// Orbit applies a manual rotation. Manual input takes over from any zoom.
func (c *Controller) Orbit(dAzimuth, dElevation float64) {
	c.Cancel()
	c.Camera.Orbit(dAzimuth, dElevation)
}

// Dolly applies a manual zoom. Manual input takes over from any zoom.
func (c *Controller) Dolly(factor float64) {
	c.Cancel()
	c.Camera.Dolly(factor)
}
