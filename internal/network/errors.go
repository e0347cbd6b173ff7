package network

import "errors"

// Domain errors for the network package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, network.ErrSensorNotFound) {
//	    // 404
//	}
var (
	// ErrNetworkNotFound is returned when no network has the given code.
	ErrNetworkNotFound = errors.New("network: not found")

	// ErrGatewayNotFound is returned when the gateway does not exist in the given network.
	ErrGatewayNotFound = errors.New("network: gateway not found")

	// ErrSensorNotFound is returned when the sensor does not exist under the given gateway.
	ErrSensorNotFound = errors.New("network: sensor not found")

	// ErrNetworkExists is returned when a network code is already taken.
	ErrNetworkExists = errors.New("network: already exists")

	// ErrGatewayExists is returned when a gateway MAC address is already taken.
	ErrGatewayExists = errors.New("network: gateway already exists")

	// ErrSensorExists is returned when a sensor MAC address is already taken.
	ErrSensorExists = errors.New("network: sensor already exists")

	// ErrInvalidCode is returned when a network code is empty or too long.
	ErrInvalidCode = errors.New("network: invalid code")

	// ErrInvalidMAC is returned when a MAC address is empty or too long.
	ErrInvalidMAC = errors.New("network: invalid mac address")
)
