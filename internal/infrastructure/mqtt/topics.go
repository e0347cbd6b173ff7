package mqtt

import (
	"fmt"
	"strings"
)

// Topics builds GeoControl topic names under a configurable prefix.
//
// With prefix "geocontrol":
//
//	geocontrol/networks/NET01/gateways/GW:01/sensors/S:01/measurements   (ingest)
//	geocontrol/events/networks/NET01/gateways/GW:01/sensors/S:01/stored  (event)
//	geocontrol/system/status                                               (status)
type Topics struct {
	Prefix string
}

// SensorMeasurements returns the topic a gateway publishes readings to.
func (t Topics) SensorMeasurements(networkCode, gatewayMAC, sensorMAC string) string {
	return fmt.Sprintf("%s/networks/%s/gateways/%s/sensors/%s/measurements", t.Prefix, networkCode, gatewayMAC, sensorMAC)
}

// MeasurementsStored returns the event topic announced after a batch is stored.
func (t Topics) MeasurementsStored(networkCode, gatewayMAC, sensorMAC string) string {
	return fmt.Sprintf("%s/events/networks/%s/gateways/%s/sensors/%s/stored", t.Prefix, networkCode, gatewayMAC, sensorMAC)
}

// SystemStatus returns the retained online/offline topic.
func (t Topics) SystemStatus() string {
	return t.Prefix + "/system/status"
}

// AllSensorMeasurements matches every ingest topic.
//
// Pattern: <prefix>/networks/+/gateways/+/sensors/+/measurements
func (t Topics) AllSensorMeasurements() string {
	return t.SensorMeasurements("+", "+", "+")
}

// AllEvents matches every event topic.
//
// Pattern: <prefix>/events/#
func (t Topics) AllEvents() string {
	return t.Prefix + "/events/#"
}

// ParseSensorMeasurements extracts the hierarchy path from an ingest topic.
// It reports false for any topic that does not have the ingest shape.
func (t Topics) ParseSensorMeasurements(topic string) (networkCode, gatewayMAC, sensorMAC string, ok bool) {
	rest, found := strings.CutPrefix(topic, t.Prefix+"/")
	if !found {
		return "", "", "", false
	}

	// networks/<nc>/gateways/<gw>/sensors/<s>/measurements
	parts := strings.Split(rest, "/")
	if len(parts) != 7 || parts[0] != "networks" || parts[2] != "gateways" || parts[4] != "sensors" || parts[6] != "measurements" { //nolint:mnd // topic layout
		return "", "", "", false
	}
	if parts[1] == "" || parts[3] == "" || parts[5] == "" {
		return "", "", "", false
	}
	return parts[1], parts[3], parts[5], true
}
