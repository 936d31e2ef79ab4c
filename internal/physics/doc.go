// Package physics provides the cart-pole dynamics.
//
// [CartPole] implements [dynamo.System], returning the time derivative of the
// five-component state. It also implements [dynamo.Coupled] so symplectic
// integrators know the position/velocity layout, [dynamo.Hamiltonian] for
// energy monitoring, and [dynamo.Configurable] for runtime tuning.
//
// # Energy
//
//	cp := physics.NewCartPole()
//	e := cp.Energy(state)
//
// Pole friction dissipates energy, so drift is expected unless
// PoleFriction is zero.
package physics
