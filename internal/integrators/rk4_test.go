package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/davidglickman/drone-6-dof/internal/dynamo"
)

type oscillator struct{}

func (o *oscillator) Derive(x dynamo.State, u dynamo.Control, t float64) (dynamo.State, error) {
	return dynamo.State{x[1], -x[0]}, nil
}

func (o *oscillator) StateDim() int   { return 2 }
func (o *oscillator) ControlDim() int { return 0 }

type constantRate struct{ c float64 }

func (d *constantRate) Derive(x dynamo.State, u dynamo.Control, t float64) (dynamo.State, error) {
	return dynamo.State{d.c}, nil
}

func (d *constantRate) StateDim() int   { return 1 }
func (d *constantRate) ControlDim() int { return 0 }

type failingDynamics struct{}

var errBoom = errors.New("derivative failed")

func (d *failingDynamics) Derive(x dynamo.State, u dynamo.Control, t float64) (dynamo.State, error) {
	return nil, errBoom
}

func (d *failingDynamics) StateDim() int   { return 1 }
func (d *failingDynamics) ControlDim() int { return 0 }

func TestRK4Accuracy(t *testing.T) {
	dyn := &oscillator{}
	integ := NewRK4()

	x := dynamo.State{1.0, 0.0}
	u := dynamo.Control{}
	dt := 0.01
	steps := 100

	var err error
	for i := 0; i < steps; i++ {
		x, err = integ.Step(dyn, x, u, float64(i)*dt, dt)
		if err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], expectedX)
	}
	if math.Abs(x[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], expectedV)
	}
}

func TestRK4ExactForConstantRate(t *testing.T) {
	dyn := &constantRate{c: 3.0}
	integ := NewRK4()

	x, err := integ.Step(dyn, dynamo.State{1.0}, dynamo.Control{}, 0, 0.5)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if math.Abs(x[0]-2.5) > 1e-15 {
		t.Errorf("expected 2.5, got %.15f", x[0])
	}
}

func TestRK4PropagatesError(t *testing.T) {
	integ := NewRK4()

	x0 := dynamo.State{1.0}
	x, err := integ.Step(&failingDynamics{}, x0, dynamo.Control{}, 0, 0.1)
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
	if x != nil {
		t.Error("failed step should not return a state")
	}
	if x0[0] != 1.0 {
		t.Error("failed step must leave the input state untouched")
	}
}

func TestRK4Deterministic(t *testing.T) {
	dyn := &oscillator{}
	integ := NewRK4()

	x0 := dynamo.State{0.7, -0.2}
	a, err := integ.Step(dyn, x0, dynamo.Control{}, 0, 0.02)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	b, err := integ.Step(dyn, x0, dynamo.Control{}, 0, 0.02)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("state %d differs between identical steps: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestEulerFirstOrder(t *testing.T) {
	dyn := &oscillator{}
	integ := NewEuler()

	x, err := integ.Step(dyn, dynamo.State{1.0, 0.0}, dynamo.Control{}, 0, 0.1)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	// Single explicit Euler step: x += dt * f(x).
	if math.Abs(x[0]-1.0) > 1e-15 || math.Abs(x[1]+0.1) > 1e-15 {
		t.Errorf("unexpected euler step result: %v", x)
	}
}

func TestEulerPropagatesError(t *testing.T) {
	integ := NewEuler()
	if _, err := integ.Step(&failingDynamics{}, dynamo.State{1.0}, dynamo.Control{}, 0, 0.1); !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
}

func TestRK4MoreAccurateThanEuler(t *testing.T) {
	dyn := &oscillator{}
	dt := 0.05
	steps := 200

	run := func(integ dynamo.Stepper) dynamo.State {
		x := dynamo.State{1.0, 0.0}
		for i := 0; i < steps; i++ {
			var err error
			x, err = integ.Step(dyn, x, dynamo.Control{}, float64(i)*dt, dt)
			if err != nil {
				t.Fatalf("step failed: %v", err)
			}
		}
		return x
	}

	exact := math.Cos(float64(steps) * dt)
	rk4Err := math.Abs(run(NewRK4())[0] - exact)
	eulerErr := math.Abs(run(NewEuler())[0] - exact)

	if rk4Err >= eulerErr {
		t.Errorf("rk4 error %.2e should beat euler error %.2e", rk4Err, eulerErr)
	}
}
