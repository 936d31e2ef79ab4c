package env

import "fmt"

// Action is the discrete control input: push the cart left or right with the
// configured force magnitude.
type Action int

const (
	ActionLeft  Action = 0
	ActionRight Action = 1
)

func (a Action) Valid() bool {
	return a == ActionLeft || a == ActionRight
}

func (a Action) String() string {
	switch a {
	case ActionLeft:
		return "left"
	case ActionRight:
		return "right"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}
