package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/geocontrol/internal/measurement"
)

type publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// StoredEvent is the body announced on the stored-measurements topic.
type StoredEvent struct {
	NetworkCode  string                    `json:"networkCode"`
	GatewayMAC   string                    `json:"gatewayMacAddress"`
	SensorMAC    string                    `json:"sensorMacAddress"`
	Count        int                       `json:"count"`
	Measurements []measurement.Measurement `json:"measurements"`
}

// EventPublisher is a measurement.Sink that announces every stored batch.
type EventPublisher struct {
	pub    publisher
	topics Topics
	qos    byte
}

// NewEventPublisher creates an EventPublisher over pub.
func NewEventPublisher(pub publisher, topics Topics, qos byte) *EventPublisher {
	return &EventPublisher{pub: pub, topics: topics, qos: qos}
}

// Name identifies the sink.
func (p *EventPublisher) Name() string { return "mqtt" }

// Write publishes the batch as a StoredEvent. Events are not retained.
func (p *EventPublisher) Write(_ context.Context, b measurement.Batch) error {
	body, err := json.Marshal(StoredEvent{
		NetworkCode:  b.Sensor.NetworkCode,
		GatewayMAC:   b.Sensor.GatewayMAC,
		SensorMAC:    b.Sensor.SensorMAC,
		Count:        len(b.Measurements),
		Measurements: b.Measurements,
	})
	if err != nil {
		return fmt.Errorf("encoding stored event: %w", err)
	}

	topic := p.topics.MeasurementsStored(b.Sensor.NetworkCode, b.Sensor.GatewayMAC, b.Sensor.SensorMAC)
	return p.pub.Publish(topic, body, p.qos, false)
}
