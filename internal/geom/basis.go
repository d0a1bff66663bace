package geom

import "math"

// PlaneBasis is an orthonormal (u, v) basis spanning a plane, used to
// project 3D inlier points into the plane's 2D parameter space for alpha
// shape extraction and line detection, and to lift 2D results back to 3D.
type PlaneBasis struct {
	Origin Vector3
	U, V   Vector3
	Plane  Plane3
}

// NewPlaneBasis builds a basis for plane anchored at origin. U is chosen as
// the component of the world X axis (or Y, if the plane is near-vertical to
// X) orthogonal to the normal, and V completes the right-handed frame.
func NewPlaneBasis(plane Plane3, origin Vector3) PlaneBasis {
	n := plane.Normal()
	ref := Vector3{1, 0, 0}
	if math.Abs(n.Dot(ref)) > 0.9 {
		ref = Vector3{0, 1, 0}
	}
	u := ref.Sub(n.Scale(n.Dot(ref))).Normalize()
	v := n.Cross(u).Normalize()
	return PlaneBasis{Origin: origin, U: u, V: v, Plane: plane}
}

// Project maps a 3D point onto the basis's 2D parameter space.
func (b PlaneBasis) Project(p Vector3) Vector2 {
	d := p.Sub(b.Origin)
	return Vector2{d.Dot(b.U), d.Dot(b.V)}
}

// Unproject lifts a 2D parameter-space point back onto the plane in 3D.
func (b PlaneBasis) Unproject(p Vector2) Vector3 {
	return b.Origin.Add(b.U.Scale(p.X)).Add(b.V.Scale(p.Y))
}
