package measurement

import (
	"context"
	"fmt"
	"time"
)

// Guard verifies that a path through the hierarchy exists. Each method
// returns a not-found error for the first missing level.
type Guard interface {
	EnsureNetwork(ctx context.Context, networkCode string) error
	EnsureGateway(ctx context.Context, networkCode, gatewayMAC string) error
	EnsureSensor(ctx context.Context, networkCode, gatewayMAC, sensorMAC string) error
}

// Store persists and retrieves measurement series. Fetches are not filtered
// by date and are ordered by creation time.
type Store interface {
	// FetchBySensor returns every measurement of one sensor.
	FetchBySensor(ctx context.Context, ref SensorRef) ([]Measurement, error)

	// FetchByNetwork returns the measurements of every sensor in the
	// network, or only of sensorMACs when the list is non-empty, in one
	// round trip.
	FetchByNetwork(ctx context.Context, networkCode string, sensorMACs []string) ([]TaggedMeasurement, error)

	// Insert stores a batch atomically.
	Insert(ctx context.Context, ref SensorRef, ms []Measurement) error
}

// Directory lists the sensors of a network.
type Directory interface {
	ListSensorMACsOfNetwork(ctx context.Context, networkCode string) ([]string, error)
}

// Sink receives every batch after it has been stored.
type Sink interface {
	Name() string
	Write(ctx context.Context, b Batch) error
}

// Observer records pipeline metrics.
type Observer interface {
	ObserveAggregation(operation string, d time.Duration)
	OutliersFlagged(n int)
}

// Logger is the logging surface the service needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

type noopObserver struct{}

func (noopObserver) ObserveAggregation(string, time.Duration) {}
func (noopObserver) OutliersFlagged(int)                      {}

// Service runs the statistics and outlier pipeline. It keeps no state
// between calls and is safe for concurrent use.
type Service struct {
	store     Store
	guard     Guard
	directory Directory
	sinks     []Sink
	observer  Observer
	logger    Logger
}

// Option configures a Service.
type Option func(*Service)

// WithSinks registers sinks that receive every stored batch, in order.
func WithSinks(sinks ...Sink) Option {
	return func(s *Service) {
		s.sinks = append(s.sinks, sinks...)
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets the logger used for sink failures.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a Service over its collaborators.
func NewService(store Store, guard Guard, directory Directory, opts ...Option) *Service {
	s := &Service{
		store:     store,
		guard:     guard,
		directory: directory,
		observer:  noopObserver{},
		logger:    noopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddSink registers a sink after construction. It must not be called
// concurrently with Store.
func (s *Service) AddSink(sink Sink) {
	s.sinks = append(s.sinks, sink)
}

// GetSeries returns the annotated series of one sensor within r.
func (s *Service) GetSeries(ctx context.Context, ref SensorRef, r Range) (SeriesResult, error) {
	defer s.observe("series", time.Now())
	return s.series(ctx, ref, r)
}

func (s *Service) series(ctx context.Context, ref SensorRef, r Range) (SeriesResult, error) {
	if r.Reversed() {
		stats := zeroStats(r)
		return SeriesResult{SensorMAC: ref.SensorMAC, Stats: &stats}, nil
	}

	if err := s.guard.EnsureSensor(ctx, ref.NetworkCode, ref.GatewayMAC, ref.SensorMAC); err != nil {
		return SeriesResult{}, err
	}

	all, err := s.store.FetchBySensor(ctx, ref)
	if err != nil {
		return SeriesResult{}, err
	}

	filtered := FilterByRange(all, r)
	if len(filtered) == 0 {
		stats := zeroStats(r)
		return SeriesResult{SensorMAC: ref.SensorMAC, Stats: &stats}, nil
	}

	return annotate(ref.SensorMAC, filtered, r), nil
}

// GetStats returns only the statistics of one sensor's series within r.
func (s *Service) GetStats(ctx context.Context, ref SensorRef, r Range) (Stats, error) {
	defer s.observe("stats", time.Now())

	res, err := s.series(ctx, ref, r)
	if err != nil {
		return Stats{}, err
	}
	if res.Stats == nil {
		return Stats{}, nil
	}
	return *res.Stats, nil
}

// GetOutliers returns one sensor's series within r reduced to its outliers.
// A sensor without measurements yields only its identifier.
func (s *Service) GetOutliers(ctx context.Context, ref SensorRef, r Range) (SeriesResult, error) {
	defer s.observe("outliers", time.Now())

	res, err := s.series(ctx, ref, r)
	if err != nil {
		return SeriesResult{}, err
	}
	if len(res.Measurements) == 0 {
		return SeriesResult{SensorMAC: res.SensorMAC}, nil
	}

	res.Measurements = outliersOnly(res.Measurements)
	s.observer.OutliersFlagged(len(res.Measurements))
	return res, nil
}

// Store validates and persists a batch for one sensor, then forwards it to
// the registered sinks. An empty batch is a no-op.
func (s *Service) Store(ctx context.Context, ref SensorRef, ms []Measurement) error {
	for i, m := range ms {
		if m.CreatedAt.IsZero() {
			return fmt.Errorf("%w: measurement %d has no createdAt", ErrInvalidMeasurement, i)
		}
	}

	if err := s.guard.EnsureSensor(ctx, ref.NetworkCode, ref.GatewayMAC, ref.SensorMAC); err != nil {
		return err
	}
	if len(ms) == 0 {
		return nil
	}

	if err := s.store.Insert(ctx, ref, ms); err != nil {
		return err
	}

	batch := Batch{Sensor: ref, Measurements: ms}
	for _, sink := range s.sinks {
		if err := sink.Write(ctx, batch); err != nil {
			s.logger.Warn("measurement sink failed",
				"sink", sink.Name(),
				"sensor", ref.SensorMAC,
				"error", err,
			)
		}
	}

	s.logger.Debug("measurements stored", "sensor", ref.SensorMAC, "count", len(ms))
	return nil
}

func (s *Service) observe(operation string, start time.Time) {
	s.observer.ObserveAggregation(operation, time.Since(start))
}

// annotate computes stats over a non-empty, already filtered series and
// classifies it against them.
func annotate(sensorMAC string, ms []Measurement, r Range) SeriesResult {
	stats := CalculateStats(values(ms), r)
	return SeriesResult{
		SensorMAC:    sensorMAC,
		Stats:        &stats,
		Measurements: Classify(ms, stats),
	}
}
