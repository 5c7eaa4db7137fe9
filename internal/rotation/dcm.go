// Package rotation provides Euler-angle attitude transforms.
package rotation

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// InertialToBody returns the 3x3 direction-cosine matrix that transforms
// inertial-frame vectors into the body frame, using the aerospace 3-2-1
// (yaw-pitch-roll) Euler convention. Valid for all finite angles; the
// matrix itself has no singularity (Siouris pp.22).
func InertialToBody(phi, theta, psi float64) *mat.Dense {
	cphi, sphi := math.Cos(phi), math.Sin(phi)
	cthe, sthe := math.Cos(theta), math.Sin(theta)
	cpsi, spsi := math.Cos(psi), math.Sin(psi)

	return mat.NewDense(3, 3, []float64{
		cpsi * cthe, cthe * spsi, -sthe,
		sphi*sthe*cpsi - cphi*spsi, sphi*sthe*spsi + cphi*cpsi, sphi * cthe,
		cphi*sthe*cpsi + sphi*spsi, cphi*sthe*spsi - sphi*cpsi, cthe * cphi,
	})
}

// ToBody applies a DCM from InertialToBody to an inertial-frame vector.
func ToBody(r *mat.Dense, v [3]float64) [3]float64 {
	var out mat.VecDense
	out.MulVec(r, mat.NewVecDense(3, v[:]))
	return [3]float64{out.AtVec(0), out.AtVec(1), out.AtVec(2)}
}
