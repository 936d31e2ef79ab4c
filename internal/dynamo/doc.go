// Package dynamo provides core simulation primitives for the cart-pole lab.
//
// The package defines the fundamental interfaces and types shared by the
// physics model, the integrators, the controllers and the engine:
//
//   - [State]: vector representing system state ([x, ẋ, θ, θ̇, mouse])
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical stepper interface
//   - [Controller]: feedback controller interface
//   - [Coupled]: position/velocity index pairs for symplectic stepping
//
// # Errors
//
// Precondition failures are reported with the sentinel errors in this
// package ([ErrNotReset], [ErrInvalidAction], ...). Use errors.Is to match
// them through wrapping.
package dynamo
