package dynamo

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

type Control []float64

func (c Control) Clone() Control {
	d := make(Control, len(c))
	copy(d, c)
	return d
}

// System is an ODE system dX/dt = f(X, u, t). Derive returns a freshly
// allocated derivative vector; it never mutates x or u. An error means the
// derivative could not be evaluated (e.g. a thrust solve failed) and the
// step must be abandoned.
type System interface {
	Derive(x State, u Control, t float64) (State, error)
	StateDim() int
	ControlDim() int
}

// Stepper advances the state by one fixed time step. On error the caller's
// state is untouched; no partially updated state is ever returned.
type Stepper interface {
	Step(dyn System, x State, u Control, t, dt float64) (State, error)
}

type Controller interface {
	Compute(x State, t float64) Control
}

type Metric interface {
	Name() string
	Observe(x State, u Control, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, u Control, t float64)
}

// Hamiltonian is implemented by systems that can report total energy.
type Hamiltonian interface {
	Energy(x State) float64
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}
