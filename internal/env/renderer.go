package env

import (
	"math/rand"
	"time"
)

// Renderer reflects engine state on some drawing surface. Positions are in
// physical units; angles in radians with zero meaning upright. The engine
// only ever reads state to feed these calls.
type Renderer interface {
	DrawCart(x float64)
	DrawPole(x, theta float64)
	DrawMouseIndicator(x float64)
	AnimateTo(x, theta float64, d time.Duration)
}

// RandSource supplies uniform samples in [0, 1). *rand.Rand satisfies it.
type RandSource interface {
	Float64() float64
}

func defaultRandSource() RandSource {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
