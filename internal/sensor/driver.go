package sensor

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// Variant identifies which part answered the identity probe. The BMP280 is
// the pressure/temperature-only sibling of the BME280.
type Variant string

const (
	VariantBME280 Variant = "bme280"
	VariantBMP280 Variant = "bmp280"
)

// Measurement is one compensated sensor reading. Humidity is nil on BMP280
// parts. Sequence is assigned by the caller that accepted the reading.
type Measurement struct {
	Temperature float64 // °C
	Pressure    float64 // hPa
	Humidity    *float64 // %RH, nil when the part has no humidity sensing
	Sequence    uint64
}

const (
	defaultStatusTimeout = 100 * time.Millisecond
	statusPollInterval   = time.Millisecond
)

// Driver owns the sensor bus. It probes for a BME280 or BMP280, loads the
// factory calibration once, and converts raw register data into compensated
// physical values on demand. Not safe for concurrent use; a single reader
// owns it.
type Driver struct {
	bus     i2c.Bus
	dev     i2c.Dev
	variant Variant
	cal     calibration
	ready   bool

	statusTimeout time.Duration
}

// Opts adjusts driver behaviour. The zero value selects defaults.
type Opts struct {
	// StatusTimeout bounds the wait for a forced conversion to complete.
	StatusTimeout time.Duration
}

func New(bus i2c.Bus, opts Opts) *Driver {
	timeout := opts.StatusTimeout
	if timeout <= 0 {
		timeout = defaultStatusTimeout
	}
	return &Driver{bus: bus, statusTimeout: timeout}
}

// Variant reports which part was detected. Only meaningful after Init.
func (d *Driver) Variant() Variant {
	return d.variant
}

// Init probes the two candidate addresses in order, fixes the compensation
// path from the chip identity, loads the calibration block, and configures
// the part for forced-mode measurements with 1x oversampling.
func (d *Driver) Init() error {
	for _, addr := range []uint16{addrPrimary, addrSecondary} {
		dev := i2c.Dev{Bus: d.bus, Addr: addr}

		var id [1]byte
		if err := dev.Tx([]byte{regChipID}, id[:]); err != nil {
			continue
		}

		switch id[0] {
		case chipIDBME280:
			d.variant = VariantBME280
		case chipIDBMP280:
			d.variant = VariantBMP280
		default:
			continue
		}

		d.dev = dev
		if err := d.loadCalibration(); err != nil {
			return err
		}
		if err := d.configure(); err != nil {
			return err
		}
		d.ready = true
		return nil
	}
	return ErrNotFound
}

func (d *Driver) loadCalibration() error {
	var trim [24]byte
	if err := d.dev.Tx([]byte{regCalib00}, trim[:]); err != nil {
		return fmt.Errorf("%w: read calibration block: %v", ErrTimeout, err)
	}
	d.cal.parseTrimBlock(trim[:])

	if d.variant != VariantBME280 {
		return nil
	}

	var h1 [1]byte
	if err := d.dev.Tx([]byte{regCalibH1}, h1[:]); err != nil {
		return fmt.Errorf("%w: read dig_H1: %v", ErrTimeout, err)
	}
	var hum [7]byte
	if err := d.dev.Tx([]byte{regCalibH2}, hum[:]); err != nil {
		return fmt.Errorf("%w: read humidity calibration: %v", ErrTimeout, err)
	}
	d.cal.parseHumidityTrim(h1[0], hum[:])
	return nil
}

func (d *Driver) configure() error {
	if err := d.dev.Tx([]byte{regConfig, configDefault}, nil); err != nil {
		return fmt.Errorf("%w: write config: %v", ErrTimeout, err)
	}
	return d.forceMeasurement()
}

// forceMeasurement triggers one conversion. On the BME280 the humidity
// oversampling must be written before ctrl_meas to take effect.
func (d *Driver) forceMeasurement() error {
	if d.variant == VariantBME280 {
		if err := d.dev.Tx([]byte{regCtrlHum, ctrlHum1x}, nil); err != nil {
			return fmt.Errorf("%w: write ctrl_hum: %v", ErrTimeout, err)
		}
	}
	if err := d.dev.Tx([]byte{regCtrlMeas, ctrlMeasForced1x}, nil); err != nil {
		return fmt.Errorf("%w: write ctrl_meas: %v", ErrTimeout, err)
	}
	return nil
}

func (d *Driver) waitForConversion() error {
	deadline := time.Now().Add(d.statusTimeout)
	for {
		var status [1]byte
		if err := d.dev.Tx([]byte{regStatus}, status[:]); err != nil {
			return fmt.Errorf("%w: read status: %v", ErrTimeout, err)
		}
		if status[0]&statusBusy == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: conversion not complete after %v", ErrTimeout, d.statusTimeout)
		}
		time.Sleep(statusPollInterval)
	}
}

// Read triggers a forced conversion and returns the compensated result.
// A reading whose raw fields carry the "no new data" sentinel, or whose
// compensated values fall outside the part's operating range, fails with
// ErrInvalidReading rather than returning stale or clamped values.
func (d *Driver) Read() (Measurement, error) {
	if !d.ready {
		return Measurement{}, ErrNotCalibrated
	}

	if err := d.forceMeasurement(); err != nil {
		return Measurement{}, err
	}
	if err := d.waitForConversion(); err != nil {
		return Measurement{}, err
	}

	n := 6
	if d.variant == VariantBME280 {
		n = 8
	}
	buf := make([]byte, n)
	if err := d.dev.Tx([]byte{regData}, buf); err != nil {
		return Measurement{}, fmt.Errorf("%w: read data registers: %v", ErrTimeout, err)
	}

	adcP := int32(buf[0])<<12 | int32(buf[1])<<4 | int32(buf[2])>>4
	adcT := int32(buf[3])<<12 | int32(buf[4])<<4 | int32(buf[5])>>4
	if adcT == rawInvalid20 || adcP == rawInvalid20 {
		return Measurement{}, fmt.Errorf("%w: no new conversion data", ErrInvalidReading)
	}

	var adcH int32 = -1
	if d.variant == VariantBME280 {
		adcH = int32(buf[6])<<8 | int32(buf[7])
		if adcH == rawInvalid16 {
			return Measurement{}, fmt.Errorf("%w: no new humidity data", ErrInvalidReading)
		}
	}

	centi, tFine := d.cal.compensateTemperature(adcT)
	temperature := float64(centi) / 100.0
	if temperature < -40 || temperature > 85 {
		return Measurement{}, fmt.Errorf("%w: temperature %.2f°C out of range", ErrInvalidReading, temperature)
	}

	pressure := float64(d.cal.compensatePressure(adcP, tFine)) / 25600.0
	if pressure < 300 || pressure > 1100 {
		return Measurement{}, fmt.Errorf("%w: pressure %.2fhPa out of range", ErrInvalidReading, pressure)
	}

	m := Measurement{Temperature: temperature, Pressure: pressure}
	if d.variant == VariantBME280 {
		humidity := float64(d.cal.compensateHumidity(adcH, tFine)) / 1024.0
		m.Humidity = &humidity
	}
	return m, nil
}
