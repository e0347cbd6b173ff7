package influxdb

import (
	"context"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/geocontrol/internal/measurement"
)

// measurementName is the InfluxDB measurement every reading is written to.
const measurementName = "sensor_measurements"

// WriteMeasurement queues one reading, tagged with its place in the
// hierarchy and stamped with its own creation time.
func (c *Client) WriteMeasurement(ref measurement.SensorRef, m measurement.Measurement) {
	if !c.IsConnected() {
		return
	}
	c.writer.WritePoint(newPoint(ref, m))
}

func newPoint(ref measurement.SensorRef, m measurement.Measurement) *write.Point {
	return write.NewPoint(
		measurementName,
		map[string]string{
			"network": ref.NetworkCode,
			"gateway": ref.GatewayMAC,
			"sensor":  ref.SensorMAC,
		},
		map[string]any{
			"value": m.Value,
		},
		m.CreatedAt,
	)
}

// Name identifies the client as a measurement sink.
func (c *Client) Name() string { return "influxdb" }

// Write mirrors a stored batch. Points are queued, so delivery errors
// arrive later through the SetOnError callback.
func (c *Client) Write(_ context.Context, b measurement.Batch) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	for _, m := range b.Measurements {
		c.writer.WritePoint(newPoint(b.Sensor, m))
	}
	return nil
}
