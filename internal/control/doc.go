// Package control provides policies that drive the cart-pole's binary action.
//
// Policies implement [dynamo.Controller]; their continuous output is mapped to
// an [env.Action] with [Discretize]:
//
//   - [MouseFollow]: balance while steering towards the mouse target
//   - [LQR]: balance at the track centre
//   - [Random]: coin flip
//   - [Manual]: last human choice
//   - [Constant]: always left or always right
//
// # Usage
//
//	pol, _ := control.New("mouse", nil, nil)
//	a := control.Discretize(pol.Compute(eng.State(), eng.Time()))
//	obs, err := eng.Step(a)
package control
