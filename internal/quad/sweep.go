package quad

import (
	"context"
	"fmt"
	"sync"

	"github.com/davidglickman/drone-6-dof/internal/dynamo"
)

// SweepConfig describes a thrust-vs-RPM sweep across vertical airspeed
// conditions.
type SweepConfig struct {
	RPMMin    float64
	RPMMax    float64
	Samples   int
	Airspeeds []float64 // vertical airspeed, m/s, positive up
}

func DefaultSweep() SweepConfig {
	return SweepConfig{
		RPMMin:    1000,
		RPMMax:    6000,
		Samples:   200,
		Airspeeds: []float64{-2, -1, 0, 1, 2},
	}
}

// SweepCurve holds one airspeed condition's thrust curve. Ratio is total
// thrust of all four propellers normalized by vehicle weight, so 1.0 marks
// the hover boundary.
type SweepCurve struct {
	Airspeed float64
	RPM      []float64
	Ratio    []float64
}

// ThrustSweep evaluates the propeller model over an RPM range for each
// airspeed condition. Conditions are independent, so each one runs in its
// own goroutine.
func ThrustSweep(ctx context.Context, d *Quadrotor, cfg SweepConfig) ([]SweepCurve, error) {
	if cfg.Samples < 2 || cfg.RPMMax <= cfg.RPMMin {
		return nil, fmt.Errorf("quad: invalid sweep range [%g, %g] with %d samples", cfg.RPMMin, cfg.RPMMax, cfg.Samples)
	}

	curves := make([]SweepCurve, len(cfg.Airspeeds))
	errs := make([]error, len(cfg.Airspeeds))

	var wg sync.WaitGroup
	for i, airspeed := range cfg.Airspeeds {
		wg.Add(1)
		go func(idx int, vz float64) {
			defer wg.Done()
			curves[idx], errs[idx] = d.sweepCurve(ctx, vz, cfg)
		}(i, airspeed)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return curves, nil
}

func (d *Quadrotor) sweepCurve(ctx context.Context, airspeed float64, cfg SweepConfig) (SweepCurve, error) {
	curve := SweepCurve{
		Airspeed: airspeed,
		RPM:      make([]float64, cfg.Samples),
		Ratio:    make([]float64, cfg.Samples),
	}

	// Climbing at +vz means air flows down past the disk: body w is
	// positive-down, so w = -airspeed.
	x := make(dynamo.State, StateDim)
	x[StateW] = -airspeed

	weight := d.Vehicle.Mass * d.Vehicle.Gravity
	step := (cfg.RPMMax - cfg.RPMMin) / float64(cfg.Samples-1)

	for i := 0; i < cfg.Samples; i++ {
		select {
		case <-ctx.Done():
			return curve, ctx.Err()
		default:
		}

		rpm := cfg.RPMMin + float64(i)*step
		thrust, err := Thrust(d.Prop, x, rpm, d.Vehicle.ArmX, d.Vehicle.ArmY, d.Solver)
		if err != nil {
			return curve, fmt.Errorf("sweep at airspeed %g m/s: %w", airspeed, err)
		}
		curve.RPM[i] = rpm
		curve.Ratio[i] = 4 * thrust / weight
	}
	return curve, nil
}
