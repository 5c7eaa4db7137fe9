// Package dynamo provides the core primitives for numerical simulation of
// ordinary differential equations:
//
//   - [State], [Control]: plain float64 vectors
//   - [System]: the ODE dX/dt = f(X, u, t), with explicit error returns
//   - [Stepper]: fixed-step numerical integrator
//   - [Controller]: maps (state, time) to a control input
//
// Simulation orchestration lives in internal/sim; dynamo holds only the
// contracts shared between dynamics, integrators, controllers and metrics.
package dynamo
