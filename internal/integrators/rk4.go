package integrators

import "github.com/davidglickman/drone-6-dof/internal/dynamo"

// RK4 is the classical fourth-order Runge-Kutta fixed-step integrator.
// It retains no state between calls; identical inputs give identical
// outputs. On derivative failure the error is returned and the caller's
// state is left untouched.
type RK4 struct{}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) (dynamo.State, error) {
	n := len(x)
	scratch := make(dynamo.State, n)

	k1, err := dyn.Derive(x, u, t)
	if err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		scratch[i] = x[i] + 0.5*dt*k1[i]
	}
	k2, err := dyn.Derive(scratch, u, t+0.5*dt)
	if err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		scratch[i] = x[i] + 0.5*dt*k2[i]
	}
	k3, err := dyn.Derive(scratch, u, t+0.5*dt)
	if err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		scratch[i] = x[i] + dt*k3[i]
	}
	k4, err := dyn.Derive(scratch, u, t+dt)
	if err != nil {
		return nil, err
	}

	result := make(dynamo.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
	}
	return result, nil
}
