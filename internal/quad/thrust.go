package quad

import (
	"fmt"
	"math"

	"github.com/davidglickman/drone-6-dof/internal/dynamo"
	"github.com/davidglickman/drone-6-dof/internal/solve"
)

// ThrustSolveError reports a propeller induced-velocity solve that failed
// to converge. It is fatal to the current step; the caller must abort or
// retry with a different guess, never substitute a default thrust.
type ThrustSolveError struct {
	Prop int     // propeller number, 1-4 (0 when solved standalone)
	RPM  float64 // commanded speed
	Err  error
}

func (e *ThrustSolveError) Error() string {
	return fmt.Sprintf("thrust solve failed for propeller %d at %.0f RPM: %v", e.Prop, e.RPM, e.Err)
}

func (e *ThrustSolveError) Unwrap() error {
	return e.Err
}

// rpmToRadPerSec converts a commanded propeller speed to angular rate.
func rpmToRadPerSec(rpm float64) float64 {
	return rpm * 2 * math.Pi / 60
}

// Thrust computes the net thrust (N) of one propeller at arm offset
// (dx, dy) from the center of mass, given the current body-frame state and
// the commanded speed in RPM.
//
// The local airflow at the hub is [U,V,W] = [u,v,w] + [p,q,r] x [dx,dy,0].
// The induced velocity vi is found by equating the blade-element thrust
// averaged over one revolution with the momentum-theory mass flow rate
// times velocity change, a single nonlinear scalar equation solved by
// internal/solve. Thrust is then recomputed from the converged vi.
//
// The sign of the result is not clamped: descent and high-airspeed
// conditions can legitimately produce negative thrust.
func Thrust(geom PropGeometry, x dynamo.State, rpm, dx, dy float64, opt solve.Options) (float64, error) {
	u, v, w := x[StateU], x[StateV], x[StateW]
	p, q, r := x[StateP], x[StateQ], x[StateR]

	bigU := u - r*dy
	bigV := v + r*dx
	bigW := w - q*dx + p*dy

	omega := rpmToRadPerSec(rpm)
	theta0, theta1 := geom.TwistCoeffs()
	area := geom.DiskArea()
	rho := geom.AirDensity

	resultant := func(vi float64) float64 {
		return math.Sqrt(bigU*bigU + bigV*bigV + (bigW-vi)*(bigW-vi))
	}

	// Blade-element thrust averaged over one revolution, as a function of vi.
	bladeThrust := func(vi float64) float64 {
		or := omega * geom.Radius
		return 0.25 * rho * geom.LiftSlope * float64(geom.Blades) * geom.Chord * geom.Radius *
			((bigW-vi)*or + 2.0/3.0*or*or*(theta0+0.75*theta1) +
				(bigU*bigU+bigV*bigV)*(theta0+0.5*theta1))
	}

	residual := func(vi float64) float64 {
		return geom.Efficiency*2*vi*rho*area*resultant(vi) - bladeThrust(vi)
	}

	vi, err := solve.Scalar(residual, opt)
	if err != nil {
		return 0, &ThrustSolveError{RPM: rpm, Err: err}
	}

	return geom.Efficiency * 2 * vi * rho * area * resultant(vi), nil
}
