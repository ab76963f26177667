// Package frame packs and unpacks the 36-byte shift-register frame shared
// by the eight LED channels of the driver. It repurposes the teacher
// module's "frame" package slot (originally an Ethernet/ARP header codec in
// tinygo.org/x/drivers/frame) for the LED strip's own fixed wire layout:
// structured, nibble-shifted byte (de)serialization instead of network
// header (de)serialization, but the same "encode a fixed struct into raw
// bytes and back" concern.
package frame

import "tinygo.org/x/ledstrip/colorspace"

// Size is the length in bytes of a packed frame: 8 LEDs * 3 channels * 12
// bits = 288 bits = 36 bytes.
const Size = 36

// channels is the number of physical LEDs the frame carries.
const channels = 8

// groupBase is the byte offset of each even/odd LED pair's 9-byte group.
// Two LEDs (4.5 bytes each) share one byte at their boundary, so a pair
// occupies exactly 9 bytes with no overlap between pairs.
func groupBase(pair int) int { return pair * 9 }

// Pack encodes eight 12-bit RGB triples into the 36-byte wire layout.
// Channel ordering per LED is B, G, R. LEDs are packed in pairs (even,
// odd); within a pair the boundary byte's high nibble carries the even
// LED's low R nibble and the low nibble carries the odd LED's high B
// nibble.
func Pack(colors [channels]colorspace.RGB12) [Size]byte {
	var buf [Size]byte
	for pair := 0; pair < channels/2; pair++ {
		e := colors[2*pair]
		o := colors[2*pair+1]
		gb := groupBase(pair)

		buf[gb+0] = byte(e.B >> 4)
		buf[gb+1] = byte((e.B&0xF)<<4) | byte((e.G>>8)&0xF)
		buf[gb+2] = byte(e.G & 0xFF)
		buf[gb+3] = byte(e.R >> 4)
		buf[gb+4] = byte((e.R&0xF)<<4) | byte((o.B>>8)&0xF)
		buf[gb+5] = byte(o.B & 0xFF)
		buf[gb+6] = byte(o.G >> 4)
		buf[gb+7] = byte((o.G&0xF)<<4) | byte((o.R>>8)&0xF)
		buf[gb+8] = byte(o.R & 0xFF)
	}
	return buf
}

// Unpack is the exact inverse of Pack: for any buf produced by Pack,
// Unpack(buf) returns the original eight colors.
func Unpack(buf [Size]byte) [channels]colorspace.RGB12 {
	var colors [channels]colorspace.RGB12
	for pair := 0; pair < channels/2; pair++ {
		gb := groupBase(pair)

		eB := uint16(buf[gb+0])<<4 | uint16(buf[gb+1]>>4)
		eG := uint16(buf[gb+1]&0xF)<<8 | uint16(buf[gb+2])
		eR := uint16(buf[gb+3])<<4 | uint16(buf[gb+4]>>4)
		oB := uint16(buf[gb+4]&0xF)<<8 | uint16(buf[gb+5])
		oG := uint16(buf[gb+6])<<4 | uint16(buf[gb+7]>>4)
		oR := uint16(buf[gb+7]&0xF)<<8 | uint16(buf[gb+8])

		colors[2*pair] = colorspace.RGB12{R: eR, G: eG, B: eB}
		colors[2*pair+1] = colorspace.RGB12{R: oR, G: oG, B: oB}
	}
	return colors
}
