// Package viz is the terminal front end: a braille [Canvas], a
// [CanvasRenderer] that the engine draws into, and the bubbletea [Model]
// that steps the engine and reads the mouse column as the target.
//
// # Key Bindings
//
//	mouse  - move the target
//	←/→    - take over with a left/right push
//	p      - cycle policy
//	space  - pause/resume
//	r      - reset the episode
//	t      - cycle themes
//	q      - quit
package viz
