package geom

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Plane3 is the (a,b,c,d) coefficients of a plane a*x+b*y+c*z+d=0 with
// (a,b,c) a unit normal (the id and inlier list are domain concerns
// layered on top by core/reconstruct).
type Plane3 struct {
	A, B, C, D float64
}

// Normal returns the plane's unit normal.
func (p Plane3) Normal() Vector3 { return Vector3{p.A, p.B, p.C} }

// SignedDistance returns the signed distance from v to the plane, positive
// on the side the normal points to.
func (p Plane3) SignedDistance(v Vector3) float64 {
	return p.A*v.X + p.B*v.Y + p.C*v.Z + p.D
}

// ElevationAt solves the plane equation for z given (x,y); the caller must
// ensure C is not ~0 (near-vertical planes are never used this way by the
// pipeline).
func (p Plane3) ElevationAt(x, y float64) float64 {
	return -(p.A*x + p.B*y + p.D) / p.C
}

// OrientOutward flips the plane so its normal has a positive dot product
// with ref.
func (p Plane3) OrientOutward(ref Vector3) Plane3 {
	if p.Normal().Dot(ref) < 0 {
		return Plane3{-p.A, -p.B, -p.C, -p.D}
	}
	return p
}

// FitPlanePCA fits a plane through pts by total least squares: the normal
// is the eigenvector of the 3x3 scatter (covariance) matrix with the
// smallest eigenvalue, and d is solved so the plane passes through the
// centroid, expressed with gonum's symmetric eigendecomposition instead of
// a hand-rolled 3x3 solver.
//
// Returns the fitted plane, the centroid used, and the RMS point-to-plane
// residual (useful as a fit-quality / epsilon gate by callers).
func FitPlanePCA(pts []Vector3) (Plane3, Vector3, float64) {
	n := float64(len(pts))
	var centroid Vector3
	for _, p := range pts {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Scale(1 / n)

	var sxx, sxy, sxz, syy, syz, szz float64
	for _, p := range pts {
		d := p.Sub(centroid)
		sxx += d.X * d.X
		sxy += d.X * d.Y
		sxz += d.X * d.Z
		syy += d.Y * d.Y
		syz += d.Y * d.Z
		szz += d.Z * d.Z
	}

	cov := mat.NewSymDense(3, []float64{
		sxx, sxy, sxz,
		sxy, syy, syz,
		sxz, syz, szz,
	})

	var eig mat.EigenSym
	ok := eig.Factorize(cov, true)
	normal := Vector3{0, 0, 1}
	if ok {
		values := eig.Values(nil)
		var vectors mat.Dense
		eig.VectorsTo(&vectors)
		// Smallest eigenvalue's eigenvector is the best-fit plane normal.
		minIdx := 0
		for i := 1; i < len(values); i++ {
			if values[i] < values[minIdx] {
				minIdx = i
			}
		}
		normal = Vector3{
			vectors.At(0, minIdx),
			vectors.At(1, minIdx),
			vectors.At(2, minIdx),
		}.Normalize()
	}

	d := -normal.Dot(centroid)
	plane := Plane3{normal.X, normal.Y, normal.Z, d}

	var sse float64
	for _, p := range pts {
		dist := plane.SignedDistance(p)
		sse += dist * dist
	}
	rms := 0.0
	if n > 0 {
		rms = math.Sqrt(sse / n)
	}
	return plane, centroid, rms
}
