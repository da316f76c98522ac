package sensor

// Bosch BME280/BMP280 register map. Both parts share the temperature and
// pressure registers; the humidity registers exist on the BME280 only.
const (
	addrPrimary   uint16 = 0x76
	addrSecondary uint16 = 0x77

	regChipID   = 0xD0
	regCtrlHum  = 0xF2
	regStatus   = 0xF3
	regCtrlMeas = 0xF4
	regConfig   = 0xF5
	regData     = 0xF7 // press MSB..XLSB, temp MSB..XLSB, hum MSB..LSB

	regCalib00 = 0x88 // dig_T1..dig_P9, 24 bytes
	regCalibH1 = 0xA1 // dig_H1
	regCalibH2 = 0xE1 // dig_H2..dig_H6, 7 bytes

	chipIDBME280 = 0x60
	chipIDBMP280 = 0x58

	// osrs_t=1, osrs_p=1, mode=forced
	ctrlMeasForced1x = 0x25
	// humidity oversampling x1
	ctrlHum1x = 0x01
	// standby 0.5ms, filter off, SPI 3-wire off
	configDefault = 0x00

	// status bits: measuring (bit 3) and im_update (bit 0)
	statusBusy = 0x09

	// "no new data" sentinels produced by a sensor that has not completed
	// a conversion yet
	rawInvalid20 = 0x80000
	rawInvalid16 = 0x8000
)
