package quad

import (
	"errors"
	"fmt"
	"math"

	"github.com/davidglickman/drone-6-dof/internal/dynamo"
	"github.com/davidglickman/drone-6-dof/internal/solve"
)

// Quadrotor is the 12-state rigid-body truth model. It implements
// dynamo.System; all fields are fixed for the duration of a run.
type Quadrotor struct {
	Vehicle VehicleParams
	Prop    PropGeometry
	Solver  solve.Options
}

func New(vehicle VehicleParams, prop PropGeometry) (*Quadrotor, error) {
	if err := vehicle.Validate(); err != nil {
		return nil, err
	}
	if err := prop.Validate(); err != nil {
		return nil, err
	}
	return &Quadrotor{
		Vehicle: vehicle,
		Prop:    prop,
		Solver:  solve.DefaultOptions(),
	}, nil
}

func (d *Quadrotor) StateDim() int   { return StateDim }
func (d *Quadrotor) ControlDim() int { return ControlDim }

// reactionTorque returns the yaw torque about the cg contributed by one
// propeller's aerodynamic drag. The reference model leaves this
// unimplemented and so does this one: it always returns zero. Filling in
// the real relation needs the propeller torque coefficient, which the
// reference never supplied.
func (d *Quadrotor) reactionTorque(thrust float64) float64 {
	return 0
}

// Derive evaluates the nonlinear equations of motion.
//
// Propellers sit at the four quadrant corners: 1 at (+dx,+dy), 2 at
// (-dx,-dy), 3 at (+dx,-dy), 4 at (-dx,+dy). The attitude-rate equations
// divide by cos(theta) and are undefined at theta = +/-90 deg; callers are
// expected to treat proximity to that bound as a domain violation.
func (d *Quadrotor) Derive(x dynamo.State, u dynamo.Control, t float64) (dynamo.State, error) {
	if len(x) != StateDim {
		return nil, fmt.Errorf("quad: state dimension %d, want %d", len(x), StateDim)
	}
	if len(u) != ControlDim {
		return nil, fmt.Errorf("quad: control dimension %d, want %d", len(u), ControlDim)
	}

	dx, dy := d.Vehicle.ArmX, d.Vehicle.ArmY

	arms := [ControlDim][2]float64{
		{dx, dy},   // 1: front-right
		{-dx, -dy}, // 2: rear-left
		{dx, -dy},  // 3: front-left
		{-dx, dy},  // 4: rear-right
	}
	var f [ControlDim]float64
	for i, arm := range arms {
		thrust, err := Thrust(d.Prop, x, u[i], arm[0], arm[1], d.Solver)
		if err != nil {
			var tse *ThrustSolveError
			if errors.As(err, &tse) {
				tse.Prop = i + 1
			}
			return nil, err
		}
		f[i] = thrust
	}

	fz := f[0] + f[1] + f[2] + f[3]
	roll := (f[1]+f[2])*dy - (f[0]+f[3])*dy
	pitch := (f[0]+f[2])*dx - (f[1]+f[3])*dx
	yaw := -d.reactionTorque(f[0]) - d.reactionTorque(f[1]) +
		d.reactionTorque(f[2]) + d.reactionTorque(f[3])

	ub, vb, wb := x[StateU], x[StateV], x[StateW]
	p, q, r := x[StateP], x[StateQ], x[StateR]

	cphi, sphi := math.Cos(x[StatePhi]), math.Sin(x[StatePhi])
	cthe, sthe := math.Cos(x[StateTheta]), math.Sin(x[StateTheta])
	cpsi, spsi := math.Cos(x[StatePsi]), math.Sin(x[StatePsi])

	m := d.Vehicle.Mass
	g := d.Vehicle.Gravity
	ixx, iyy, izz := d.Vehicle.Ixx, d.Vehicle.Iyy, d.Vehicle.Izz

	xdot := make(dynamo.State, StateDim)

	// Translational dynamics, body axes, gravity resolved via attitude.
	xdot[StateU] = -g*sthe + r*vb - q*wb
	xdot[StateV] = g*sphi*cthe - r*ub + p*wb
	xdot[StateW] = -fz/m + g*cphi*cthe + q*ub - p*vb

	// Rotational dynamics with inertia cross-coupling.
	xdot[StateP] = (roll + (iyy-izz)*q*r) / ixx
	xdot[StateQ] = (pitch + (izz-ixx)*p*r) / iyy
	xdot[StateR] = (yaw + (ixx-iyy)*p*q) / izz

	// Euler-angle rate kinematics, singular at theta = +/-90 deg.
	xdot[StatePhi] = p + (q*sphi+r*cphi)*sthe/cthe
	xdot[StateTheta] = q*cphi - r*sphi
	xdot[StatePsi] = (q*sphi + r*cphi) / cthe

	// Inertial position rates: body velocity through the transposed DCM,
	// written out directly because height is positive up while the body z
	// axis points down.
	xdot[StateX] = cthe*cpsi*ub + (-cphi*spsi+sphi*sthe*cpsi)*vb +
		(sphi*spsi+cphi*sthe*cpsi)*wb
	xdot[StateY] = cthe*spsi*ub + (cphi*cpsi+sphi*sthe*spsi)*vb +
		(-sphi*cpsi+cphi*sthe*spsi)*wb
	xdot[StateH] = -(-sthe*ub + sphi*cthe*vb + cphi*cthe*wb)

	return xdot, nil
}

// Energy reports the total mechanical energy of the vehicle.
func (d *Quadrotor) Energy(x dynamo.State) float64 {
	if len(x) != StateDim {
		return 0
	}
	ke := 0.5 * d.Vehicle.Mass *
		(x[StateU]*x[StateU] + x[StateV]*x[StateV] + x[StateW]*x[StateW])
	keRot := 0.5 * (d.Vehicle.Ixx*x[StateP]*x[StateP] +
		d.Vehicle.Iyy*x[StateQ]*x[StateQ] +
		d.Vehicle.Izz*x[StateR]*x[StateR])
	pe := d.Vehicle.Mass * d.Vehicle.Gravity * x[StateH]
	return ke + keRot + pe
}

// HoverRPM solves for the per-propeller commanded speed at which the four
// thrusts balance gravity with the vehicle at rest.
func (d *Quadrotor) HoverRPM() (float64, error) {
	rest := make(dynamo.State, StateDim)
	balance := func(rpm float64) float64 {
		thrust, err := Thrust(d.Prop, rest, rpm, d.Vehicle.ArmX, d.Vehicle.ArmY, d.Solver)
		if err != nil {
			return math.NaN()
		}
		return 4*thrust - d.Vehicle.Mass*d.Vehicle.Gravity
	}
	opt := d.Solver
	opt.Guess = 3000
	rpm, err := solve.Scalar(balance, opt)
	if err != nil {
		return 0, fmt.Errorf("quad: hover trim solve: %w", err)
	}
	return rpm, nil
}

func (d *Quadrotor) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":    d.Vehicle.Mass,
		"ixx":     d.Vehicle.Ixx,
		"iyy":     d.Vehicle.Iyy,
		"izz":     d.Vehicle.Izz,
		"arm_x":   d.Vehicle.ArmX,
		"arm_y":   d.Vehicle.ArmY,
		"gravity": d.Vehicle.Gravity,
	}
}

func (d *Quadrotor) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		d.Vehicle.Mass = value
	case "ixx":
		d.Vehicle.Ixx = value
	case "iyy":
		d.Vehicle.Iyy = value
	case "izz":
		d.Vehicle.Izz = value
	case "arm_x":
		d.Vehicle.ArmX = value
	case "arm_y":
		d.Vehicle.ArmY = value
	case "gravity":
		d.Vehicle.Gravity = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return d.Vehicle.Validate()
}
