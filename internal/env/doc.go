// Package env implements the cart-pole environment: a Reset/Step interface
// over the [physics.CartPole] dynamics with a stacked-observation history and
// a mouse-target input channel.
//
// # Usage
//
//	eng, err := env.New(env.DefaultConfig(), env.WithRenderer(r))
//	obs := eng.Reset()
//	obs, err = eng.Step(env.ActionRight)
//	eng.UpdateMousePosition(0.4)
//	eng.Render(20 * time.Millisecond)
//
// The state is [x, ẋ, θ, θ̇, mouse]. The mouse component is written only by
// UpdateMousePosition; Step carries it forward unchanged.
//
// # Thread Safety
//
// Engine instances are NOT thread-safe. One goroutine owns an engine.
package env
