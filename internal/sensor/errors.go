package sensor

import "errors"

var (
	// ErrNotFound means no supported chip identity was seen on either
	// candidate bus address.
	ErrNotFound = errors.New("sensor: no bme280/bmp280 found on bus")

	// ErrTimeout covers failed or timed-out bus transactions, including a
	// conversion that never signalled completion.
	ErrTimeout = errors.New("sensor: communication timeout")

	// ErrInvalidReading means the sensor returned the "no new data"
	// sentinel or a compensated value outside the part's operating range.
	ErrInvalidReading = errors.New("sensor: invalid reading")

	// ErrNotCalibrated means Read was called before Init succeeded.
	ErrNotCalibrated = errors.New("sensor: calibration not loaded")
)
