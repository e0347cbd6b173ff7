package influxdb

import "errors"

var (
	// ErrNotConnected is returned when the client has been closed.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed is returned when the initial ping fails.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled is returned by Connect when the integration is turned off.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
