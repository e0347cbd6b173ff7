package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/geocontrol/internal/measurement"
)

// ingestTimeout bounds the store call made for one received message.
const ingestTimeout = 10 * time.Second

// MeasurementStorer persists a batch for one sensor.
type MeasurementStorer interface {
	Store(ctx context.Context, ref measurement.SensorRef, ms []measurement.Measurement) error
}

type subscriber interface {
	Subscribe(topic string, qos byte, handler MessageHandler) error
}

// Ingestor accepts measurement batches published by gateways. The payload
// is the same JSON array accepted by the HTTP API:
//
//	[{"createdAt":"2025-03-01T10:00:00Z","value":21.5}]
type Ingestor struct {
	store  MeasurementStorer
	topics Topics
	qos    byte
}

// NewIngestor creates an Ingestor that stores into store.
func NewIngestor(store MeasurementStorer, topics Topics, qos byte) *Ingestor {
	return &Ingestor{store: store, topics: topics, qos: qos}
}

// Start subscribes to every sensor's ingest topic.
func (i *Ingestor) Start(sub subscriber) error {
	if err := sub.Subscribe(i.topics.AllSensorMeasurements(), i.qos, i.Handle); err != nil {
		return fmt.Errorf("subscribing to measurements: %w", err)
	}
	return nil
}

// Handle decodes one ingest message and stores it.
func (i *Ingestor) Handle(topic string, payload []byte) error {
	nc, gw, s, ok := i.topics.ParseSensorMeasurements(topic)
	if !ok {
		return fmt.Errorf("%w: unexpected topic %q", ErrInvalidPayload, topic)
	}

	var ms []measurement.Measurement
	if err := json.Unmarshal(payload, &ms); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	ref := measurement.SensorRef{NetworkCode: nc, GatewayMAC: gw, SensorMAC: s}
	if err := i.store.Store(ctx, ref, ms); err != nil {
		return fmt.Errorf("storing measurements for %s/%s/%s: %w", nc, gw, s, err)
	}
	return nil
}
