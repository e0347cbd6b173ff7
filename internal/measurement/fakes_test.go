package measurement

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errNotFound = errors.New("not found")

// fakeGuard knows a fixed set of networks and sensors.
type fakeGuard struct {
	networks map[string]bool
	sensors  map[SensorRef]bool
	calls    int
}

func (g *fakeGuard) EnsureNetwork(_ context.Context, code string) error {
	g.calls++
	if !g.networks[code] {
		return errNotFound
	}
	return nil
}

func (g *fakeGuard) EnsureGateway(_ context.Context, code, _ string) error {
	g.calls++
	if !g.networks[code] {
		return errNotFound
	}
	return nil
}

func (g *fakeGuard) EnsureSensor(_ context.Context, code, gw, s string) error {
	g.calls++
	if !g.sensors[SensorRef{NetworkCode: code, GatewayMAC: gw, SensorMAC: s}] {
		return errNotFound
	}
	return nil
}

// fakeStore keeps series per sensor MAC.
type fakeStore struct {
	series   map[string][]Measurement
	order    []string // sensor order for network fetches
	fetchErr error
	inserted []Batch
	calls    int
	lastMACs []string
}

func (s *fakeStore) FetchBySensor(_ context.Context, ref SensorRef) ([]Measurement, error) {
	s.calls++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.series[ref.SensorMAC], nil
}

func (s *fakeStore) FetchByNetwork(_ context.Context, _ string, macs []string) ([]TaggedMeasurement, error) {
	s.calls++
	s.lastMACs = macs
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	want := map[string]bool{}
	for _, m := range macs {
		want[m] = true
	}
	var out []TaggedMeasurement
	for _, mac := range s.order {
		if len(macs) > 0 && !want[mac] {
			continue
		}
		for _, m := range s.series[mac] {
			out = append(out, TaggedMeasurement{SensorMAC: mac, Measurement: m})
		}
	}
	return out, nil
}

func (s *fakeStore) Insert(_ context.Context, ref SensorRef, ms []Measurement) error {
	s.calls++
	s.inserted = append(s.inserted, Batch{Sensor: ref, Measurements: ms})
	return nil
}

type fakeDirectory struct {
	macs  map[string][]string
	calls int
}

func (d *fakeDirectory) ListSensorMACsOfNetwork(_ context.Context, code string) ([]string, error) {
	d.calls++
	macs, ok := d.macs[code]
	if !ok {
		return nil, errNotFound
	}
	return macs, nil
}

type recordingSink struct {
	name    string
	err     error
	batches []Batch
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Write(_ context.Context, b Batch) error {
	s.batches = append(s.batches, b)
	return s.err
}

type recordingObserver struct {
	mu         sync.Mutex
	operations []string
	flagged    int
}

func (o *recordingObserver) ObserveAggregation(op string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.operations = append(o.operations, op)
}

func (o *recordingObserver) OutliersFlagged(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.flagged += n
}

type warnLogger struct {
	warnings []string
}

func (l *warnLogger) Debug(string, ...any)     {}
func (l *warnLogger) Warn(msg string, _ ...any) { l.warnings = append(l.warnings, msg) }

var testRef = SensorRef{NetworkCode: "NET01", GatewayMAC: "GW:01", SensorMAC: "S:01"}

// newTestService wires a Service over fakes holding testRef plus a second
// sensor "S:02" on the same network.
func newTestService(data map[string][]Measurement, opts ...Option) (*Service, *fakeGuard, *fakeStore, *fakeDirectory) {
	guard := &fakeGuard{
		networks: map[string]bool{"NET01": true},
		sensors: map[SensorRef]bool{
			testRef: true,
			{NetworkCode: "NET01", GatewayMAC: "GW:01", SensorMAC: "S:02"}: true,
		},
	}
	store := &fakeStore{series: data, order: []string{"S:01", "S:02"}}
	dir := &fakeDirectory{macs: map[string][]string{"NET01": {"S:01", "S:02"}}}
	return NewService(store, guard, dir, opts...), guard, store, dir
}
