// Package lifetime owns the pattern list and per-LED maps: creation,
// mutation, and removal of patterns, safe against a concurrently-running
// tick.
//
// The driver this module descends from runs cooperatively on a single core
// with tick invoked from a timer interrupt: mutators there disable
// interrupts (or bump a plain counter tick checks) around their critical
// section, because nothing can truly preempt them mid-update. Go programs
// are preemptively scheduled across goroutines, so the same "tick skips
// its body while a mutator is in flight" contract is implemented here with
// a real sync.RWMutex instead of a bare counter: Tick attempts TryLock and
// returns immediately if the mutex is already held (mirroring "tick does
// nothing whenever the guard is nonzero"), while mutators take the write
// lock and reads take the read lock.
package lifetime

import (
	"errors"
	"fmt"
	"sync"

	"tinygo.org/x/ledstrip/colorspace"
	"tinygo.org/x/ledstrip/compositor"
	"tinygo.org/x/ledstrip/frame"
	"tinygo.org/x/ledstrip/lang"
	"tinygo.org/x/ledstrip/vm"
)

var (
	// ErrInvalidPatternId is returned when replace is given an id that
	// doesn't refer to a live pattern (Delete reports that case by
	// returning false instead).
	ErrInvalidPatternId = errors.New("lifetime: invalid pattern id")
	// ErrLedNotInMap is returned when set/get is given a logical LED index
	// the id-remap table has no physical channel for.
	ErrLedNotInMap = errors.New("lifetime: led not in map")
	// ErrInvalidIDMap is returned when set_id_map is given an entry
	// outside -1..7, or a mapping that assigns two logical indexes to the
	// same physical channel (breaking the map's injectivity invariant).
	ErrInvalidIDMap = errors.New("lifetime: invalid id map")
	// ErrTypeMismatch corresponds to spec §7's TypeMismatch error kind. Every
	// setter in this package takes a typed Go value, so the dynamic
	// argument-type mismatch the original firmware guards against can never
	// reach this API; the sentinel is declared so the kind stays
	// distinguishable for a caller checking errors.Is against the full set,
	// even though no code path in this package returns it.
	ErrTypeMismatch = errors.New("lifetime: type mismatch")
	// ErrAllocationFailure corresponds to spec §7's AllocationFailure error
	// kind. Go's allocator does not report failure to callers (it panics the
	// whole program on out-of-memory instead of returning one), so there is
	// no path in this package that can observe and return it; the sentinel
	// is declared for the same distinguishability reason as ErrTypeMismatch.
	ErrAllocationFailure = errors.New("lifetime: allocation failure")
)

// logicalChannels is the number of logical LED indexes the id-remap table
// covers (1-based, [1..8]).
const logicalChannels = 8

// Manager owns the pattern list, the per-LED pattern-id stacks, the
// id-remap table, the color-pipeline matrices, and the most recently
// packed frame.
type Manager struct {
	mu sync.RWMutex

	order  []*vm.Pattern
	byID   map[uint16]*vm.Pattern
	nextID uint16

	ledMap [compositor.Channels][]uint16
	idMap  [logicalChannels]int8

	wb    colorspace.WhiteBalance
	gamut colorspace.Gamut

	frame      [frame.Size]byte
	frameDirty bool
}

// NewManager returns an empty manager with the identity id-map, white
// balance and gamut.
func NewManager() *Manager {
	m := &Manager{
		byID:  make(map[uint16]*vm.Pattern),
		wb:    colorspace.IdentityWhiteBalance,
		gamut: colorspace.IdentityGamut,
	}
	for i := range m.idMap {
		m.idMap[i] = int8(i)
	}
	return m
}

func (m *Manager) translate(led int) (int, bool) {
	if led < 1 || led > logicalChannels {
		return 0, false
	}
	phys := m.idMap[led-1]
	if phys < 0 {
		return 0, false
	}
	return int(phys), true
}

// allocateID returns the next pattern id, a monotonic counter in 1..65535
// that wraps back to 1 after 65535. On wrap it probes forward for an id
// not already held by a live pattern, rather than risking a collision —
// the spec's stricter reimplementation option (the other being to widen
// the counter).
func (m *Manager) allocateID() uint16 {
	for {
		m.nextID++
		if m.nextID == 0 {
			m.nextID = 1
		}
		if _, live := m.byID[m.nextID]; !live {
			return m.nextID
		}
	}
}

// Set validates and compiles source, then creates a new pattern and layers
// it onto every LED in leds (1-based logical indexes). Any failure after
// the pattern is created — most commonly an unmapped LED — cascades to
// remove the pattern entirely, leaving no partial state.
func (m *Manager) Set(leds []int, source string) (uint16, error) {
	tokens, err := lang.Parse(source)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.allocateID()
	p := vm.New(id, tokens)
	m.order = append(m.order, p)
	m.byID[id] = p

	assigned := make([]int, 0, len(leds))
	for _, led := range leds {
		phys, ok := m.translate(led)
		if !ok {
			m.cascadeDeleteLocked(id, assigned)
			return 0, fmt.Errorf("%w: logical led %d", ErrLedNotInMap, led)
		}
		m.ledMap[phys] = append(m.ledMap[phys], id)
		assigned = append(assigned, phys)
	}

	m.frameDirty = true
	return id, nil
}

// Replace recompiles source and installs it into the existing pattern id,
// keeping the id and every LED reference to it. The new tokens are parsed
// before the guard is taken, matching the "validate + tokenize first, then
// install" sequencing that avoids holding the lock during the (cheap but
// non-trivial) tokenization work.
func (m *Manager) Replace(id uint16, source string) (uint16, error) {
	tokens, err := lang.Parse(source)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.byID[id]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPatternId, id)
	}
	p.Reset(tokens)
	m.frameDirty = true
	return id, nil
}

// Delete removes a pattern and every per-LED reference to it, reporting
// whether it was found.
func (m *Manager) Delete(id uint16) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteLocked(id)
}

func (m *Manager) deleteLocked(id uint16) bool {
	if _, ok := m.byID[id]; !ok {
		return false
	}
	delete(m.byID, id)
	for i := range m.order {
		if m.order[i].ID == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	for n := range m.ledMap {
		m.ledMap[n] = removeAll(m.ledMap[n], id)
	}
	m.frameDirty = true
	return true
}

// cascadeDeleteLocked undoes a partially-completed Set: it removes the
// pattern id from the LED stacks it was already appended to (in physical
// channels), then deletes the pattern itself.
func (m *Manager) cascadeDeleteLocked(id uint16, assignedPhysical []int) {
	for _, phys := range assignedPhysical {
		m.ledMap[phys] = removeLast(m.ledMap[phys], id)
	}
	delete(m.byID, id)
	for i := range m.order {
		if m.order[i].ID == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func removeLast(stack []uint16, id uint16) []uint16 {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == id {
			return append(stack[:i], stack[i+1:]...)
		}
	}
	return stack
}

func removeAll(stack []uint16, id uint16) []uint16 {
	out := stack[:0]
	for _, v := range stack {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Exists reports whether id currently refers to a live pattern.
func (m *Manager) Exists(id uint16) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byID[id]
	return ok
}

// Get formats the current frame contents for a logical LED as "#RRGGBB".
func (m *Manager) Get(led int) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	phys, ok := m.translate(led)
	if !ok {
		return "", fmt.Errorf("%w: logical led %d", ErrLedNotInMap, led)
	}
	colors := frame.Unpack(m.frame)
	return colors[phys].To8().Hex(), nil
}

// SetWhiteBalance clamps each channel to [0,1] and installs it. Go's
// static typing rules out the dynamic-language TypeMismatch case the
// original firmware guards against at this call (any caller that compiles
// has already passed three float64s), so this method never returns
// ErrTypeMismatch; the sentinel stays declared package-wide (see the var
// block above) for API completeness, and would apply at a scripting
// boundary above this package, which is out of scope (spec §1).
func (m *Manager) SetWhiteBalance(wb colorspace.WhiteBalance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wb = wb.Clamp()
	m.frameDirty = true
}

// WhiteBalance returns the current white-balance matrix.
func (m *Manager) WhiteBalance() colorspace.WhiteBalance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.wb
}

// SetGamut clamps every entry to [0,1] and validates that every row sums
// to at most 1.0; on failure it resets the gamut to identity and returns
// ErrInvalidGamut, never leaving a half-applied matrix installed.
func (m *Manager) SetGamut(g colorspace.Gamut) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clamped := g.Clamp()
	if err := clamped.Validate(); err != nil {
		m.gamut = colorspace.IdentityGamut
		m.frameDirty = true
		return err
	}
	m.gamut = clamped
	m.frameDirty = true
	return nil
}

// Gamut returns the current gamut matrix.
func (m *Manager) Gamut() colorspace.Gamut {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gamut
}

// SetIDMap installs a new logical-to-physical LED remap. Each entry must
// be -1 (absent) or a physical channel in 0..7, and the map must stay
// injective: two logical indexes may not target the same physical
// channel. On violation the map resets to identity and ErrInvalidIDMap is
// returned.
func (m *Manager) SetIDMap(entries [logicalChannels]int8) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[int8]bool, logicalChannels)
	for _, v := range entries {
		if v == -1 {
			continue
		}
		if v < 0 || v >= compositor.Channels || seen[v] {
			m.resetIDMapLocked()
			return ErrInvalidIDMap
		}
		seen[v] = true
	}
	m.idMap = entries
	m.frameDirty = true
	return nil
}

func (m *Manager) resetIDMapLocked() {
	for i := range m.idMap {
		m.idMap[i] = int8(i)
	}
}

// IDMap returns the current logical-to-physical remap table.
func (m *Manager) IDMap() [logicalChannels]int8 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idMap
}

// Tick advances every pattern by one VM step in insertion order, deletes
// any pattern that terminates (naturally or fatally), and — if anything
// changed — rebuilds and packs the frame. It reports whether the frame
// changed, so the driver facade knows whether a transmit is warranted.
// If a mutator currently holds the lock, Tick does nothing and returns
// false, mirroring the embedded guard's "tick does nothing while the
// counter is nonzero" rule.
func (m *Manager) Tick() bool {
	if !m.mu.TryLock() {
		return false
	}
	defer m.mu.Unlock()

	dirty := m.frameDirty
	var terminated []uint16
	for _, p := range m.order {
		changed, done, _ := vm.Step(p, m.wb, m.gamut)
		dirty = dirty || changed
		if done {
			terminated = append(terminated, p.ID)
		}
	}
	for _, id := range terminated {
		m.deleteLocked(id)
		dirty = true
	}

	if !dirty {
		return false
	}

	lookup := func(id uint16) (*vm.Pattern, bool) {
		p, ok := m.byID[id]
		return p, ok
	}
	m.frame = compositor.Compose(m.ledMap, lookup)
	m.frameDirty = false
	return true
}

// Frame returns the most recently packed 36-byte frame.
func (m *Manager) Frame() [frame.Size]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.frame
}
