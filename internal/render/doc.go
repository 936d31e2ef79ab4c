// Package render draws the cart-pole scene as SVG. A Scene fixes the
// geometry and element ids of the page; an SVGRenderer turns the engine's
// draw calls into element updates the browser applies by id.
package render
