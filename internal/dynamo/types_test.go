package dynamo

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_CloneIsIndependent(t *testing.T) {
	src := State{1, 2, 3, 4, 5}
	c := src.Clone()
	c[0] = 99
	if src[0] == 99 {
		t.Error("Clone did not create independent copy")
	}
	if !src.Equal(State{1, 2, 3, 4, 5}) {
		t.Errorf("source modified: %v", src)
	}
}

func TestState_SubNorm(t *testing.T) {
	a := State{4, 6}
	b := State{1, 2}
	if got := a.Sub(b).Norm(); math.Abs(got-5) > 1e-12 {
		t.Errorf("Sub/Norm = %v, want 5", got)
	}
}

func TestWrapAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{1, 1},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi, math.Pi},
		{3.2, 3.2 - 2*math.Pi},
		{-4, -4 + 2*math.Pi},
		{7, 7 - 2*math.Pi},
	}

	for _, tt := range tests {
		got := WrapAngle(tt.in)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("WrapAngle(%v) = %v, want %v", tt.in, got, tt.want)
		}
		if got <= -math.Pi || got > math.Pi {
			t.Errorf("WrapAngle(%v) = %v outside (-π, π]", tt.in, got)
		}
	}
}

func TestSimulationError_Unwrap(t *testing.T) {
	err := fmt.Errorf("run: %w", &SimulationError{Step: 3, Wrapped: ErrInvalidState})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected errors.Is to see ErrInvalidState through %v", err)
	}
}

func TestSimError(t *testing.T) {
	err := SimError{Time: 1.5, Step: 150, Message: "test error"}
	expected := "step 150 (t=1.5000): test error"
	if err.Error() != expected {
		t.Errorf("SimError.Error() = %q, want %q", err.Error(), expected)
	}
}
