package celestial

import (
	"math"
)

// Vector3 represents a 3D vector in scene units
type Vector3 struct {
	X, Y, Z float64
}

// Vec3 is shorthand for constructing a Vector3
func Vec3(x, y, z float64) Vector3 {
	return Vector3{X: x, Y: y, Z: z}
}

// Add returns the sum of two vectors
func (v Vector3) Add(other Vector3) Vector3 {
	return Vector3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Subtract returns the difference of two vectors
func (v Vector3) Subtract(other Vector3) Vector3 {
	return Vector3{
		X: v.X - other.X,
		Y: v.Y - other.Y,
		Z: v.Z - other.Z,
	}
}

// Scale returns the vector multiplied by a scalar
func (v Vector3) Scale(factor float64) Vector3 {
	return Vector3{
		X: v.X * factor,
		Y: v.Y * factor,
		Z: v.Z * factor,
	}
}

// Magnitude returns the magnitude (length) of the vector
func (v Vector3) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// DotProduct returns the dot product of two vectors
func (v Vector3) DotProduct(other Vector3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// CrossProduct returns the cross product of two vectors
func (v Vector3) CrossProduct(other Vector3) Vector3 {
	return Vector3{
		X: v.Y*other.Z - v.Z*other.Y,
		Y: v.Z*other.X - v.X*other.Z,
		Z: v.X*other.Y - v.Y*other.X,
	}
}

// Normalize returns the normalized vector (unit length)
func (v Vector3) Normalize() Vector3 {
	mag := v.Magnitude()
	if mag < 1e-10 {
		return Vector3{0, 0, 0}
	}
	return Vector3{
		X: v.X / mag,
		Y: v.Y / mag,
		Z: v.Z / mag,
	}
}

// DistanceTo returns the euclidean distance between two points
func (v Vector3) DistanceTo(other Vector3) float64 {
	return other.Subtract(v).Magnitude()
}

// Lerp returns start + t*(end-start). t is not clamped.
func Lerp(start, end Vector3, t float64) Vector3 {
	return start.Add(end.Subtract(start).Scale(t))
}

// Ray is a half-line from Origin along the unit vector Direction
type Ray struct {
	Origin    Vector3
	Direction Vector3
}

// NewRay builds a ray, normalizing the direction
func NewRay(origin, direction Vector3) Ray {
	return Ray{Origin: origin, Direction: direction.Normalize()}
}

// At returns the point at distance d along the ray
func (r Ray) At(d float64) Vector3 {
	return r.Origin.Add(r.Direction.Scale(d))
}

// IntersectSphere reports the distance along the ray to the nearest surface
// point of the sphere. Spheres behind the origin never hit; an origin inside
// the sphere hits at the exit point.
func (r Ray) IntersectSphere(center Vector3, radius float64) (float64, bool) {
	// Same construction as the line-of-sight occlusion test: project the
	// center onto the ray and compare the perpendicular distance with the radius.
	toCenter := center.Subtract(r.Origin)
	projection := toCenter.DotProduct(r.Direction)
	perpendicular := toCenter.Subtract(r.Direction.Scale(projection))
	perpSq := perpendicular.DotProduct(perpendicular)
	rSq := radius * radius
	if perpSq > rSq {
		return 0, false
	}

	half := math.Sqrt(rSq - perpSq)
	near := projection - half
	far := projection + half
	if far < 0 {
		return 0, false
	}
	if near < 0 {
		return far, true
	}
	return near, true
}
