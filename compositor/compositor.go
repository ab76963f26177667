// Package compositor resolves each physical LED's ordered pattern stack
// down to a single color every tick, and packs the eight results into the
// wire frame.
package compositor

import (
	"tinygo.org/x/ledstrip/colorspace"
	"tinygo.org/x/ledstrip/frame"
	"tinygo.org/x/ledstrip/vm"
)

// Channels is the number of physical LEDs driven by one frame.
const Channels = 8

// Black is the color shown on an LED with an empty pattern stack.
var Black = colorspace.RGB12{}

// Lookup resolves a pattern id to its live VM state. It returns false if
// the id no longer refers to a live pattern.
type Lookup func(id uint16) (*vm.Pattern, bool)

// Resolve picks the visible color for one LED's pattern stack: the
// topmost pattern if it is visible, otherwise the next one down, and so
// on; the bottom of the stack (index 0) is always treated as opaque
// regardless of its own Visible flag, since there is nothing further to
// reveal underneath it.
func Resolve(stack []uint16, lookup Lookup) colorspace.RGB12 {
	for i := len(stack) - 1; i >= 0; i-- {
		p, ok := lookup(stack[i])
		if !ok {
			continue
		}
		if p.Visible || i == 0 {
			return p.CurrentColor
		}
	}
	return Black
}

// Compose resolves all eight LED stacks and packs the result into a wire
// frame.
func Compose(stacks [Channels][]uint16, lookup Lookup) [frame.Size]byte {
	var colors [Channels]colorspace.RGB12
	for n := 0; n < Channels; n++ {
		if len(stacks[n]) == 0 {
			colors[n] = Black
			continue
		}
		colors[n] = Resolve(stacks[n], lookup)
	}
	return frame.Pack(colors)
}
