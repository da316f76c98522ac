package sensor

import "encoding/binary"

// calibration holds the factory trimming coefficients read once at Init.
// It is never mutated afterwards.
type calibration struct {
	t1 uint16
	t2 int16
	t3 int16

	p1 uint16
	p2 int16
	p3 int16
	p4 int16
	p5 int16
	p6 int16
	p7 int16
	p8 int16
	p9 int16

	h1 uint8
	h2 int16
	h3 uint8
	h4 int16
	h5 int16
	h6 int8
}

// parseTrimBlock fills the temperature and pressure coefficients from the
// 24-byte little-endian block at 0x88.
func (c *calibration) parseTrimBlock(b []byte) {
	c.t1 = binary.LittleEndian.Uint16(b[0:2])
	c.t2 = int16(binary.LittleEndian.Uint16(b[2:4]))
	c.t3 = int16(binary.LittleEndian.Uint16(b[4:6]))

	c.p1 = binary.LittleEndian.Uint16(b[6:8])
	c.p2 = int16(binary.LittleEndian.Uint16(b[8:10]))
	c.p3 = int16(binary.LittleEndian.Uint16(b[10:12]))
	c.p4 = int16(binary.LittleEndian.Uint16(b[12:14]))
	c.p5 = int16(binary.LittleEndian.Uint16(b[14:16]))
	c.p6 = int16(binary.LittleEndian.Uint16(b[16:18]))
	c.p7 = int16(binary.LittleEndian.Uint16(b[18:20]))
	c.p8 = int16(binary.LittleEndian.Uint16(b[20:22]))
	c.p9 = int16(binary.LittleEndian.Uint16(b[22:24]))
}

// parseHumidityTrim fills dig_H1..dig_H6 from the byte at 0xA1 and the
// 7-byte block at 0xE1. H4 and H5 are 12-bit values packed across shared
// nibbles of 0xE4..0xE6.
func (c *calibration) parseHumidityTrim(h1 byte, b []byte) {
	c.h1 = h1
	c.h2 = int16(binary.LittleEndian.Uint16(b[0:2]))
	c.h3 = b[2]

	h4 := int16(b[3])<<4 | int16(b[4])&0x0F
	if h4 > 2047 {
		h4 -= 4096
	}
	c.h4 = h4

	h5 := int16(b[5])<<4 | int16(b[4])>>4
	if h5 > 2047 {
		h5 -= 4096
	}
	c.h5 = h5

	c.h6 = int8(b[6])
}
