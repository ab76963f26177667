// Package ledstrip is the hardware-facing driver facade: it owns the
// serial bus and BLANK/XLAT pins, wraps a lifetime.Manager, and exposes the
// public API named in spec §6 (new, tick, blank, set, replace, delete, get,
// exists, set_white_balance, set_gamut, set_id_map).
//
// It is grounded on waveshare-epd/epd2in66b's Device shape: New allocates
// only in-memory state, Configure wires pins and defaults, and transmission
// is a sequence of chip-select/data/latch pulses over a drivers.SPI bus.
package ledstrip

import (
	"encoding/hex"
	"machine"

	"tinygo.org/x/drivers"
	"tinygo.org/x/ledstrip/colorspace"
	"tinygo.org/x/ledstrip/frame"
	"tinygo.org/x/ledstrip/lifetime"
)

const (
	// using numerical values to enable generic tinygo compilation, as the
	// teacher's epd2in66b does for its own default pin set.
	xlatPin  = 10
	blankPin = 11
)

// Baudrate is the default SPI clock used to shift the 288-bit frame; at
// this rate a full frame transmits in well under a millisecond, as spec §5
// requires relative to the tick period.
const Baudrate = 20 * machine.MHz

// Config configures the pins of a Device. The zero value falls back to the
// package defaults, the same "zero means default" contract as
// epd2in66b.Config.
type Config struct {
	XlatPin  machine.Pin
	BlankPin machine.Pin
}

// Device is the driver facade: the serial bus, the BLANK/XLAT lines, and
// the lifetime manager that owns every pattern and the packed frame.
type Device struct {
	bus   drivers.SPI
	xlat  machine.Pin
	blank machine.Pin

	mgr *lifetime.Manager

	blanked bool
}

// New allocates a new device bound to bus. It does not touch any pin or
// send anything over the bus — matching epd2in66b.New, hardware is only
// touched from Configure onward.
func New(bus drivers.SPI) Device {
	return Device{
		bus:   bus,
		xlat:  xlatPin,
		blank: blankPin,
		mgr:   lifetime.NewManager(),
	}
}

// Configure configures the XLAT and BLANK pins, falling back to the
// package defaults for any zero-value field in c.
//
// Default pins are:
//
//	Xlat  = GP10
//	Blank = GP11
func (d *Device) Configure(c Config) error {
	if c.XlatPin > 0 {
		d.xlat = c.XlatPin
	}
	if c.BlankPin > 0 {
		d.blank = c.BlankPin
	}

	d.xlat.Configure(machine.PinConfig{Mode: machine.PinOutput})
	d.blank.Configure(machine.PinConfig{Mode: machine.PinOutput})
	d.xlat.Low()
	d.blank.Low()

	return nil
}

// Blank drives the BLANK line. While asserted, Tick still advances every
// pattern and the compositor, but skips the transmit, per spec §6.
func (d *Device) Blank(v bool) {
	d.blanked = v
	if v {
		d.blank.High()
	} else {
		d.blank.Low()
	}
}

// Tick advances every pattern one VM step, recomposes the frame if
// anything changed, and — unless blanked — transmits it and pulses XLAT.
// It does nothing if a mutator currently holds the lifetime manager's
// guard, per spec §5's tick-guard rule.
func (d *Device) Tick() error {
	changed := d.mgr.Tick()
	if !changed {
		return nil
	}
	if d.blanked {
		return nil
	}
	return d.transmit(d.mgr.Frame())
}

// transmit shifts buf out MSB-first over the bus, then pulses XLAT low
// then high to latch the new grayscale values, per spec §6's latch
// protocol.
func (d *Device) transmit(buf [frame.Size]byte) error {
	if err := d.bus.Tx(buf[:], nil); err != nil {
		return err
	}
	d.xlat.Low()
	d.xlat.High()
	return nil
}

// Set parses source and layers the resulting pattern onto every LED in
// leds (1-based logical indexes), returning its id.
func (d *Device) Set(leds []int, source string) (uint16, error) {
	return d.mgr.Set(leds, source)
}

// Replace recompiles source into the existing pattern id, keeping every
// LED reference to it.
func (d *Device) Replace(id uint16, source string) (uint16, error) {
	return d.mgr.Replace(id, source)
}

// Delete removes a pattern and every per-LED reference to it.
func (d *Device) Delete(id uint16) bool {
	return d.mgr.Delete(id)
}

// Exists reports whether id currently refers to a live pattern.
func (d *Device) Exists(id uint16) bool {
	return d.mgr.Exists(id)
}

// Get formats the current frame contents for a logical LED as "#RRGGBB".
func (d *Device) Get(led int) (string, error) {
	return d.mgr.Get(led)
}

// SetWhiteBalance installs a new white-balance multiplier, clamping each
// channel to [0,1].
func (d *Device) SetWhiteBalance(wb colorspace.WhiteBalance) {
	d.mgr.SetWhiteBalance(wb)
}

// WhiteBalance returns the current white-balance matrix.
func (d *Device) WhiteBalance() colorspace.WhiteBalance {
	return d.mgr.WhiteBalance()
}

// SetGamut installs a new gamut-mixing matrix, clamping entries to [0,1]
// and validating that every row sums to at most 1.0; on failure it resets
// to identity and returns colorspace.ErrInvalidGamut.
func (d *Device) SetGamut(g colorspace.Gamut) error {
	return d.mgr.SetGamut(g)
}

// Gamut returns the current gamut-mixing matrix.
func (d *Device) Gamut() colorspace.Gamut {
	return d.mgr.Gamut()
}

// SetIDMap installs a new logical-to-physical LED remap.
func (d *Device) SetIDMap(entries [8]int8) error {
	return d.mgr.SetIDMap(entries)
}

// IDMap returns the current logical-to-physical remap table.
func (d *Device) IDMap() [8]int8 {
	return d.mgr.IDMap()
}

// DumpFrame returns the most recently packed 36-byte frame as a hex
// string, for bench and debug inspection of what would be shifted out on
// the next non-blanked transmit.
func (d *Device) DumpFrame() string {
	buf := d.mgr.Frame()
	return hex.EncodeToString(buf[:])
}
