package sensor

// Fixed-point compensation from the Bosch BME280 datasheet, section 4.2.3.
// The operation order is load-bearing: reordering changes the rounding and
// breaks bit-for-bit agreement with the datasheet values.

// compensateTemperature converts a 20-bit raw temperature to centidegrees
// Celsius. It also returns t_fine, the intermediate carrier reused by the
// pressure and humidity compensation.
func (c *calibration) compensateTemperature(adcT int32) (centi int32, tFine int32) {
	var1 := (((adcT >> 3) - (int32(c.t1) << 1)) * int32(c.t2)) >> 11
	var2 := (((((adcT >> 4) - int32(c.t1)) * ((adcT >> 4) - int32(c.t1))) >> 12) * int32(c.t3)) >> 14
	tFine = var1 + var2
	centi = (tFine*5 + 128) >> 8
	return centi, tFine
}

// compensatePressure converts a 20-bit raw pressure to Pascal in Q24.8
// fixed point (divide by 256 for Pa). Returns 0 when the trim data would
// cause a division by zero.
func (c *calibration) compensatePressure(adcP int32, tFine int32) uint32 {
	var1 := int64(tFine) - 128000
	var2 := var1 * var1 * int64(c.p6)
	var2 += (var1 * int64(c.p5)) << 17
	var2 += int64(c.p4) << 35
	var1 = ((var1 * var1 * int64(c.p3)) >> 8) + ((var1 * int64(c.p2)) << 12)
	var1 = ((int64(1)<<47 + var1) * int64(c.p1)) >> 33

	if var1 == 0 {
		return 0
	}

	p := int64(1048576 - adcP)
	p = ((p<<31 - var2) * 3125) / var1
	var1 = (int64(c.p9) * (p >> 13) * (p >> 13)) >> 25
	var2 = (int64(c.p8) * p) >> 19
	p = ((p + var1 + var2) >> 8) + (int64(c.p7) << 4)
	return uint32(p)
}

// compensateHumidity converts a 16-bit raw humidity to %RH in Q22.10 fixed
// point (divide by 1024 for %). The [0,100] clamp is part of the reference
// algorithm, not a policy added here.
func (c *calibration) compensateHumidity(adcH int32, tFine int32) uint32 {
	v := tFine - 76800
	v = ((((adcH<<14 - int32(c.h4)<<20 - int32(c.h5)*v) + 16384) >> 15) *
		(((((((v*int32(c.h6))>>10)*(((v*int32(c.h3))>>11)+32768))>>10)+2097152)*int32(c.h2) + 8192) >> 14))
	v -= ((((v >> 15) * (v >> 15)) >> 7) * int32(c.h1)) >> 4
	if v < 0 {
		v = 0
	}
	if v > 419430400 {
		v = 419430400
	}
	return uint32(v >> 12)
}
