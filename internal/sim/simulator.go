// Package sim drives the step-sequential simulation loop: control input,
// one integrator step, then sensor sampling on the just-integrated state.
package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/davidglickman/drone-6-dof/internal/dynamo"
	"github.com/davidglickman/drone-6-dof/internal/quad"
	"github.com/davidglickman/drone-6-dof/internal/sensors"
)

// Config holds the per-run simulation settings.
type Config struct {
	Dt       float64
	Duration float64
	Seed     int64

	// ValidateState aborts the run when the state picks up NaN/Inf.
	ValidateState bool

	// PitchGuard is the |theta| threshold (rad) beyond which a
	// kinematic-singularity warning is attached to the step. The
	// attitude-rate equations blow up at pi/2; the guard reports
	// proximity without aborting. Zero disables the check.
	PitchGuard float64
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.02,
		Duration:      30.0,
		ValidateState: true,
		PitchGuard:    85 * math.Pi / 180,
	}
}

func (c Config) validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("sim: dt must be positive, got %g", c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("sim: duration must be positive, got %g", c.Duration)
	}
	return nil
}

// Warning is a non-fatal condition attached to a step.
type Warning struct {
	Step    int
	Time    float64
	Message string
}

// Result holds the per-step trajectories. Slices are indexed by step;
// States and Times carry one extra leading entry for the initial state.
type Result struct {
	Times    []float64
	States   []dynamo.State
	Controls []dynamo.Control
	Sensors  []sensors.Record
	Metrics  map[string]float64
	Warnings []Warning

	StepsTaken  int
	EnergyDrift float64
}

// Simulator owns one run's components. It is not safe for concurrent use;
// parallel sweeps build one Simulator per run (see Ensemble).
type Simulator struct {
	dyn        dynamo.System
	stepper    dynamo.Stepper
	controller dynamo.Controller
	suite      *sensors.Suite
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
}

func New(dyn dynamo.System, stepper dynamo.Stepper, controller dynamo.Controller) *Simulator {
	return &Simulator{
		dyn:        dyn,
		stepper:    stepper,
		controller: controller,
	}
}

// WithSensors attaches a sensor suite; without one the run produces only
// state trajectories.
func (s *Simulator) WithSensors(suite *sensors.Suite) *Simulator {
	s.suite = suite
	return s
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

// Run integrates from x0 for the configured duration. Step failures are
// returned as a dynamo.SimError carrying the failing step index, together
// with the Result prefix completed so far; the state sequence never
// contains a partially updated entry.
func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, cfg Config) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	steps := int(cfg.Duration / cfg.Dt)
	result := &Result{
		Times:    make([]float64, 0, steps+1),
		States:   make([]dynamo.State, 0, steps+1),
		Controls: make([]dynamo.Control, 0, steps),
		Metrics:  make(map[string]float64),
	}
	if s.suite != nil {
		result.Sensors = make([]sensors.Record, 0, steps)
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0.Clone()
	t := 0.0

	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)

	initialEnergy := s.energy(x)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		u := s.controller.Compute(x, t)

		for _, m := range s.metrics {
			m.Observe(x, u, t)
		}
		for _, obs := range s.observers {
			obs.OnStep(x, u, t)
		}

		newX, err := s.stepper.Step(s.dyn, x, u, t, cfg.Dt)
		if err != nil {
			return result, &dynamo.SimError{Step: i, Time: t, Err: err}
		}
		if cfg.ValidateState && !newX.IsValid() {
			return result, &dynamo.SimError{Step: i, Time: t, Err: dynamo.ErrInvalidState}
		}

		x = newX
		t += cfg.Dt
		result.StepsTaken++

		if cfg.PitchGuard > 0 && len(x) > quad.StateTheta &&
			math.Abs(x[quad.StateTheta]) >= cfg.PitchGuard {
			result.Warnings = append(result.Warnings, Warning{
				Step: i, Time: t,
				Message: fmt.Sprintf("pitch %.1f deg approaching attitude-rate singularity", x[quad.StateTheta]*180/math.Pi),
			})
		}

		result.States = append(result.States, x.Clone())
		result.Times = append(result.Times, t)
		result.Controls = append(result.Controls, u.Clone())

		if s.suite != nil {
			xdot, err := s.dyn.Derive(x, u, t)
			if err != nil {
				return result, &dynamo.SimError{Step: i, Time: t, Err: err}
			}
			result.Sensors = append(result.Sensors, s.suite.Sample(x, xdot))
		}
	}

	if finalEnergy := s.energy(x); initialEnergy != 0 {
		result.EnergyDrift = math.Abs(finalEnergy-initialEnergy) / math.Abs(initialEnergy)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

func (s *Simulator) energy(x dynamo.State) float64 {
	if ec, ok := s.dyn.(dynamo.Hamiltonian); ok {
		return ec.Energy(x)
	}
	return 0
}
