package network

import (
	"fmt"
	"strings"
)

const (
	maxCodeLength = 64
	maxMACLength  = 64
)

// ValidateNetwork trims the network code and checks it is usable.
func ValidateNetwork(n *Network) error {
	code, err := validIdentifier(n.Code, maxCodeLength, ErrInvalidCode)
	if err != nil {
		return err
	}
	n.Code = code
	return nil
}

// ValidateGateway trims the gateway MAC address and checks it is usable.
func ValidateGateway(g *Gateway) error {
	mac, err := validIdentifier(g.MACAddress, maxMACLength, ErrInvalidMAC)
	if err != nil {
		return err
	}
	g.MACAddress = mac
	return nil
}

// ValidateSensor trims the sensor MAC address and checks it is usable.
func ValidateSensor(s *Sensor) error {
	mac, err := validIdentifier(s.MACAddress, maxMACLength, ErrInvalidMAC)
	if err != nil {
		return err
	}
	s.MACAddress = mac
	return nil
}

// validOptionalIdentifier validates a replacement identifier in a partial
// update. A nil pointer means "unchanged".
func validOptionalIdentifier(v *string, limit int, sentinel error) (*string, error) {
	if v == nil {
		return nil, nil
	}
	s, err := validIdentifier(*v, limit, sentinel)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func validIdentifier(v string, limit int, sentinel error) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("%w: must not be empty", sentinel)
	}
	if len(v) > limit {
		return "", fmt.Errorf("%w: longer than %d characters", sentinel, limit)
	}
	return v, nil
}
