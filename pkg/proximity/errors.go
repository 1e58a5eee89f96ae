package proximity

import "errors"

var (
	// ErrInvalidCalibration is returned for non-positive calibration constants.
	ErrInvalidCalibration = errors.New("proximity: invalid calibration")

	// ErrInvalidMeasurement is returned when a calibration measurement cannot be used.
	ErrInvalidMeasurement = errors.New("proximity: invalid calibration measurement")
)
