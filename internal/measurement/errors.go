package measurement

import "errors"

var (
	// ErrInvalidMeasurement is returned when an ingested measurement has no
	// timestamp.
	ErrInvalidMeasurement = errors.New("measurement: invalid")
)
