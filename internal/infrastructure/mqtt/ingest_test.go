package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/geocontrol/internal/measurement"
)

type fakeStorer struct {
	ref measurement.SensorRef
	ms  []measurement.Measurement
	err error
}

func (f *fakeStorer) Store(_ context.Context, ref measurement.SensorRef, ms []measurement.Measurement) error {
	f.ref = ref
	f.ms = ms
	return f.err
}

type fakeBroker struct {
	subscribed map[string]MessageHandler
	published  []publishedMessage
	err        error
}

type publishedMessage struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

func (f *fakeBroker) Subscribe(topic string, _ byte, handler MessageHandler) error {
	if f.err != nil {
		return f.err
	}
	if f.subscribed == nil {
		f.subscribed = map[string]MessageHandler{}
	}
	f.subscribed[topic] = handler
	return nil
}

func (f *fakeBroker) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, publishedMessage{topic, payload, qos, retained})
	return nil
}

var testTopics = Topics{Prefix: "geocontrol"}

func TestIngestor_Handle(t *testing.T) {
	store := &fakeStorer{}
	ing := NewIngestor(store, testTopics, 1)

	payload := `[{"createdAt":"2025-03-01T10:00:00Z","value":21.5},{"createdAt":"2025-03-01T11:00:00Z","value":22}]`
	if err := ing.Handle(testTopics.SensorMeasurements("NET01", "GW:01", "S:01"), []byte(payload)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	want := measurement.SensorRef{NetworkCode: "NET01", GatewayMAC: "GW:01", SensorMAC: "S:01"}
	if store.ref != want {
		t.Errorf("ref = %+v, want %+v", store.ref, want)
	}
	if len(store.ms) != 2 || store.ms[1].Value != 22 {
		t.Fatalf("measurements = %+v", store.ms)
	}
	if !store.ms[0].CreatedAt.Equal(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("createdAt = %v", store.ms[0].CreatedAt)
	}
}

func TestIngestor_HandleErrors(t *testing.T) {
	storeErr := errors.New("sensor not found")

	tests := []struct {
		name     string
		topic    string
		payload  string
		storeErr error
		want     error
	}{
		{name: "foreign topic", topic: "other/topic", payload: `[]`, want: ErrInvalidPayload},
		{name: "not json", topic: testTopics.SensorMeasurements("N", "G", "S"), payload: `nope`, want: ErrInvalidPayload},
		{name: "object not array", topic: testTopics.SensorMeasurements("N", "G", "S"), payload: `{"value":1}`, want: ErrInvalidPayload},
		{name: "store failure", topic: testTopics.SensorMeasurements("N", "G", "S"), payload: `[]`, storeErr: storeErr, want: storeErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing := NewIngestor(&fakeStorer{err: tt.storeErr}, testTopics, 1)
			if err := ing.Handle(tt.topic, []byte(tt.payload)); !errors.Is(err, tt.want) {
				t.Errorf("Handle() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestIngestor_Start(t *testing.T) {
	broker := &fakeBroker{}
	if err := NewIngestor(&fakeStorer{}, testTopics, 1).Start(broker); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, ok := broker.subscribed[testTopics.AllSensorMeasurements()]; !ok {
		t.Errorf("subscriptions = %v, want the ingest wildcard", broker.subscribed)
	}

	broker.err = ErrNotConnected
	if err := NewIngestor(&fakeStorer{}, testTopics, 1).Start(broker); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Start() error = %v, want ErrNotConnected", err)
	}
}

func TestEventPublisher_Write(t *testing.T) {
	broker := &fakeBroker{}
	pub := NewEventPublisher(broker, testTopics, 1)

	batch := measurement.Batch{
		Sensor: measurement.SensorRef{NetworkCode: "NET01", GatewayMAC: "GW:01", SensorMAC: "S:01"},
		Measurements: []measurement.Measurement{
			{CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), Value: 3},
		},
	}
	if err := pub.Write(context.Background(), batch); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if pub.Name() != "mqtt" {
		t.Errorf("Name() = %q", pub.Name())
	}

	if len(broker.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(broker.published))
	}
	msg := broker.published[0]
	if msg.topic != "geocontrol/events/networks/NET01/gateways/GW:01/sensors/S:01/stored" {
		t.Errorf("topic = %q", msg.topic)
	}
	if msg.retained || msg.qos != 1 {
		t.Errorf("qos=%d retained=%v, want 1/false", msg.qos, msg.retained)
	}

	var ev StoredEvent
	if err := json.Unmarshal(msg.payload, &ev); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if ev.SensorMAC != "S:01" || ev.Count != 1 || ev.Measurements[0].Value != 3 {
		t.Errorf("event = %+v", ev)
	}
}

func TestEventPublisher_WriteError(t *testing.T) {
	broker := &fakeBroker{err: ErrNotConnected}
	err := NewEventPublisher(broker, testTopics, 0).Write(context.Background(), measurement.Batch{})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Write() error = %v, want ErrNotConnected", err)
	}
}
