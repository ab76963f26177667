package compositor

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"tinygo.org/x/ledstrip/colorspace"
	"tinygo.org/x/ledstrip/vm"
)

func patternSet(patterns ...*vm.Pattern) Lookup {
	byID := make(map[uint16]*vm.Pattern, len(patterns))
	for _, p := range patterns {
		byID[p.ID] = p
	}
	return func(id uint16) (*vm.Pattern, bool) {
		p, ok := byID[id]
		return p, ok
	}
}

// Transparency layering: a visible top layer wins; an invisible top layer
// reveals the layer below it.
func TestResolveTransparencyLayering(t *testing.T) {
	c := qt.New(t)

	bottom := vm.New(1, nil)
	bottom.CurrentColor = colorspace.RGB12{R: 100}
	bottom.Visible = true

	top := vm.New(2, nil)
	top.CurrentColor = colorspace.RGB12{R: 200}

	lookup := patternSet(bottom, top)

	top.Visible = false
	c.Assert(Resolve([]uint16{1, 2}, lookup), qt.Equals, bottom.CurrentColor)

	top.Visible = true
	c.Assert(Resolve([]uint16{1, 2}, lookup), qt.Equals, top.CurrentColor)
}

// The bottom of the stack is always opaque, even if its Visible flag says
// otherwise.
func TestResolveBottomAlwaysOpaque(t *testing.T) {
	c := qt.New(t)

	bottom := vm.New(1, nil)
	bottom.CurrentColor = colorspace.RGB12{G: 300}
	bottom.Visible = false

	lookup := patternSet(bottom)
	c.Assert(Resolve([]uint16{1}, lookup), qt.Equals, bottom.CurrentColor)
}

func TestResolveEmptyStackIsBlack(t *testing.T) {
	c := qt.New(t)
	var stacks [Channels][]uint16
	buf := Compose(stacks, patternSet())
	for _, b := range buf {
		c.Assert(b, qt.Equals, byte(0))
	}
}

func TestResolveSkipsMissingPatterns(t *testing.T) {
	c := qt.New(t)
	bottom := vm.New(1, nil)
	bottom.CurrentColor = colorspace.RGB12{B: 400}

	lookup := patternSet(bottom)
	// id 2 no longer exists; resolution should fall through to 1.
	c.Assert(Resolve([]uint16{1, 2}, lookup), qt.Equals, bottom.CurrentColor)
}
