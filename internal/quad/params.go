package quad

import (
	"fmt"
	"math"
)

// State vector layout, shared by dynamics, sensors and the driver:
// body velocities, body rates, Euler attitude, inertial position.
const (
	StateU = iota // body x velocity, m/s
	StateV        // body y velocity, m/s
	StateW        // body z velocity, m/s (positive down)
	StateP        // roll rate, rad/s
	StateQ        // pitch rate, rad/s
	StateR        // yaw rate, rad/s
	StatePhi      // roll, rad
	StateTheta    // pitch, rad
	StatePsi      // yaw, rad
	StateX        // inertial north position, m
	StateY        // inertial east position, m
	StateH        // height above launch, m (positive up)

	StateDim = 12
)

// ControlDim is the number of commanded propeller speeds (RPM).
const ControlDim = 4

// VehicleParams holds the rigid-body constants of the airframe. Immutable
// for the duration of a run.
type VehicleParams struct {
	Mass    float64 // kg
	Ixx     float64 // kg m^2
	Iyy     float64 // kg m^2
	Izz     float64 // kg m^2
	ArmX    float64 // propeller offset along body x, m
	ArmY    float64 // propeller offset along body y, m
	Gravity float64 // m/s^2
}

func DefaultVehicle() VehicleParams {
	ixx := 0.00062
	iyy := 0.00113
	return VehicleParams{
		Mass: 0.1,
		Ixx:  ixx,
		Iyy:  iyy,
		Izz:  0.9 * (ixx + iyy), // nearly flat body, z extent ~0
		ArmX: 0.114,
		ArmY: 0.0825,
		Gravity: 9.81,
	}
}

func (p VehicleParams) Validate() error {
	switch {
	case p.Mass <= 0:
		return fmt.Errorf("quad: mass must be positive, got %g", p.Mass)
	case p.Ixx <= 0 || p.Iyy <= 0 || p.Izz <= 0:
		return fmt.Errorf("quad: moments of inertia must be positive, got (%g, %g, %g)", p.Ixx, p.Iyy, p.Izz)
	case p.ArmX <= 0 || p.ArmY <= 0:
		return fmt.Errorf("quad: arm offsets must be positive, got (%g, %g)", p.ArmX, p.ArmY)
	case p.Gravity <= 0:
		return fmt.Errorf("quad: gravity must be positive, got %g", p.Gravity)
	}
	return nil
}

// PropGeometry describes one propeller; all four propellers share it, only
// the sign of the arm offsets differs per quadrant.
type PropGeometry struct {
	Radius     float64 // blade length / disk radius, m
	Blades     int
	Chord      float64 // mean chord, m
	LiftSlope  float64 // blade lift curve slope (Stevens & Lewis)
	Efficiency float64
	DiameterIn float64 // manufacturer spec, inches
	PitchIn    float64 // manufacturer spec, inches
	AirDensity float64 // kg/m^3
}

func DefaultProp() PropGeometry {
	return PropGeometry{
		Radius:     0.0762,
		Blades:     2,
		Chord:      0.0274,
		LiftSlope:  5.7,
		Efficiency: 1.0,
		DiameterIn: 6,
		PitchIn:    3,
		AirDensity: 1.225, // MSL
	}
}

func (g PropGeometry) Validate() error {
	switch {
	case g.Radius <= 0 || g.Chord <= 0:
		return fmt.Errorf("quad: propeller radius and chord must be positive, got (%g, %g)", g.Radius, g.Chord)
	case g.Blades <= 0:
		return fmt.Errorf("quad: blade count must be positive, got %d", g.Blades)
	case g.Efficiency <= 0 || g.Efficiency > 1:
		return fmt.Errorf("quad: efficiency must be in (0, 1], got %g", g.Efficiency)
	case g.DiameterIn <= 0 || g.PitchIn <= 0:
		return fmt.Errorf("quad: diameter and pitch spec must be positive, got (%g, %g)", g.DiameterIn, g.PitchIn)
	case g.AirDensity <= 0:
		return fmt.Errorf("quad: air density must be positive, got %g", g.AirDensity)
	}
	return nil
}

func (g PropGeometry) DiskArea() float64 {
	return math.Pi * g.Radius * g.Radius
}

// TwistCoeffs derives the linear blade-twist coefficients from the
// manufacturer diameter x pitch spec, evaluated at 3/4 blade radius.
func (g PropGeometry) TwistCoeffs() (theta0, theta1 float64) {
	twist := math.Atan2(g.PitchIn, 2*math.Pi*0.75*g.DiameterIn/2)
	return 2 * twist, -4.0 / 3.0 * twist
}
