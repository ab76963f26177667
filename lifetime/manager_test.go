package lifetime

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"tinygo.org/x/ledstrip/colorspace"
)

func TestSetThenGetAfterTick(t *testing.T) {
	c := qt.New(t)
	m := NewManager()

	id, err := m.Set([]int{1}, "#FFFF00;")
	c.Assert(err, qt.IsNil)
	c.Assert(m.Exists(id), qt.IsTrue)

	c.Assert(m.Tick(), qt.IsTrue)
	got, err := m.Get(1)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "#FFFF00")
}

func TestSetRejectsUnmappedLedAndRollsBack(t *testing.T) {
	c := qt.New(t)
	m := NewManager()

	entries := [logicalChannels]int8{0, 1, 2, 3, 4, 5, 6, -1}
	c.Assert(m.SetIDMap(entries), qt.IsNil)

	id, err := m.Set([]int{1, 8}, "#FFFFFF;")
	c.Assert(err, qt.ErrorIs, ErrLedNotInMap)
	c.Assert(id, qt.Equals, uint16(0))
	// the rollback must leave no trace: nothing should have been
	// appended to LED 1's map either.
	c.Assert(m.Exists(1), qt.IsFalse)
	c.Assert(m.ledMap[0], qt.HasLen, 0)
}

// Scenario 5: a base pattern, a transparent overlay, then replacing the
// overlay with something opaque and finally transparent again.
func TestScenarioReplaceKeepsIDAndLayering(t *testing.T) {
	c := qt.New(t)
	m := NewManager()

	base, err := m.Set([]int{1}, "#FFFF00;")
	c.Assert(err, qt.IsNil)

	overlay, err := m.Set([]int{1}, "@;")
	c.Assert(err, qt.IsNil)

	m.Tick()
	got, _ := m.Get(1)
	c.Assert(got, qt.Equals, "#FFFF00")

	id, err := m.Replace(overlay, "#0000FF|50@;")
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, overlay)

	for i := 1; i <= 50; i++ {
		m.Tick()
		got, _ = m.Get(1)
		c.Assert(got, qt.Equals, "#0000FF", qt.Commentf("tick %d", i))
	}

	m.Tick() // tick 51: overlay goes transparent, base shows through
	got, _ = m.Get(1)
	c.Assert(got, qt.Equals, "#FFFF00")
	c.Assert(m.Exists(overlay), qt.IsTrue)
	c.Assert(m.Exists(base), qt.IsTrue)
}

func TestDeleteRemovesFromAllLedMaps(t *testing.T) {
	c := qt.New(t)
	m := NewManager()

	id, err := m.Set([]int{1, 2, 3}, "#FFFFFF;")
	c.Assert(err, qt.IsNil)
	m.Tick()

	c.Assert(m.Delete(id), qt.IsTrue)
	c.Assert(m.Exists(id), qt.IsFalse)
	c.Assert(m.Delete(id), qt.IsFalse)

	m.Tick()
	for _, led := range []int{1, 2, 3} {
		got, err := m.Get(led)
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Equals, "#000000")
	}
}

func TestFiniteNaturalTerminationDeletesPattern(t *testing.T) {
	c := qt.New(t)
	m := NewManager()

	id, err := m.Set([]int{1}, "<1[#FFFFFF|1-]")
	c.Assert(err, qt.IsNil)

	terminated := false
	for i := 0; i < 10 && !terminated; i++ {
		m.Tick()
		terminated = !m.Exists(id)
	}
	c.Assert(terminated, qt.IsTrue)
}

func TestReplaceUnknownIDFails(t *testing.T) {
	c := qt.New(t)
	m := NewManager()
	_, err := m.Replace(999, "#FFFFFF;")
	c.Assert(err, qt.ErrorIs, ErrInvalidPatternId)
}

func TestIDAllocationWrapsAndProbesFreeSlot(t *testing.T) {
	c := qt.New(t)
	m := NewManager()
	m.nextID = 65534

	idA, err := m.Set([]int{1}, "#FFFFFF;")
	c.Assert(err, qt.IsNil)
	c.Assert(idA, qt.Equals, uint16(65535))

	idB, err := m.Set([]int{1}, "#000000;")
	c.Assert(err, qt.IsNil)
	c.Assert(idB, qt.Equals, uint16(1))
}

func TestIDAllocationProbesPastLiveCollision(t *testing.T) {
	c := qt.New(t)
	m := NewManager()
	m.nextID = 65535

	// occupy id 1 so the wrap has to probe past it.
	reserved, err := m.Set([]int{1}, "#FFFFFF;")
	c.Assert(err, qt.IsNil)
	c.Assert(reserved, qt.Equals, uint16(1))

	m.nextID = 65535
	next, err := m.Set([]int{1}, "#000000;")
	c.Assert(err, qt.IsNil)
	c.Assert(next, qt.Equals, uint16(2))
}

func TestSetGamutRejectsInvalidRowSum(t *testing.T) {
	c := qt.New(t)
	m := NewManager()

	bad := colorspace.Gamut{{0.7, 0.7, 0}, {0, 1, 0}, {0, 0, 1}}
	err := m.SetGamut(bad)
	c.Assert(err, qt.ErrorIs, colorspace.ErrInvalidGamut)
	c.Assert(m.Gamut(), qt.Equals, colorspace.IdentityGamut)
}

func TestSetIDMapRejectsDuplicatePhysicalChannel(t *testing.T) {
	c := qt.New(t)
	m := NewManager()

	dup := [logicalChannels]int8{0, 0, 2, 3, 4, 5, 6, 7}
	err := m.SetIDMap(dup)
	c.Assert(err, qt.ErrorIs, ErrInvalidIDMap)
	c.Assert(m.IDMap(), qt.Equals, [logicalChannels]int8{0, 1, 2, 3, 4, 5, 6, 7})
}
