package measurement

import (
	"context"
	"time"
)

// GetSeriesForNetwork runs the pipeline for every sensor in scope. The
// scope is sensorMACs when given, otherwise every sensor of the network.
//
// Results follow the scope order. With an unbounded range, sensors without
// measurements are left out; with a bounded range they appear with zeroed
// stats echoing the bounds. A reversed range, or a network without any
// measurements, yields bare sensor identifiers.
func (s *Service) GetSeriesForNetwork(ctx context.Context, networkCode string, sensorMACs []string, r Range) ([]SeriesResult, error) {
	defer s.observe("network_series", time.Now())
	return s.networkSeries(ctx, networkCode, sensorMACs, r)
}

func (s *Service) networkSeries(ctx context.Context, networkCode string, sensorMACs []string, r Range) ([]SeriesResult, error) {
	scope := sensorMACs
	if len(scope) == 0 {
		var err error
		scope, err = s.directory.ListSensorMACsOfNetwork(ctx, networkCode)
		if err != nil {
			return nil, err
		}
	}

	if r.Reversed() {
		return bare(scope), nil
	}

	if err := s.guard.EnsureNetwork(ctx, networkCode); err != nil {
		return nil, err
	}

	batch, err := s.store.FetchByNetwork(ctx, networkCode, sensorMACs)
	if err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return bare(scope), nil
	}

	groups := make(map[string][]Measurement)
	for _, tm := range batch {
		if r.Contains(tm.CreatedAt) {
			groups[tm.SensorMAC] = append(groups[tm.SensorMAC], tm.Measurement)
		}
	}

	results := make([]SeriesResult, 0, len(scope))
	for _, mac := range scope {
		ms := groups[mac]
		switch {
		case len(ms) > 0:
			results = append(results, annotate(mac, ms, r))
		case r.Bounded():
			stats := zeroStats(r)
			results = append(results, SeriesResult{SensorMAC: mac, Stats: &stats})
		}
	}
	return results, nil
}

// GetStatsForNetwork returns the statistics of every sensor in scope.
func (s *Service) GetStatsForNetwork(ctx context.Context, networkCode string, sensorMACs []string, r Range) ([]NetworkStats, error) {
	defer s.observe("network_stats", time.Now())

	series, err := s.networkSeries(ctx, networkCode, sensorMACs, r)
	if err != nil {
		return nil, err
	}

	out := make([]NetworkStats, len(series))
	for i, res := range series {
		out[i] = NetworkStats{SensorMAC: res.SensorMAC, Stats: res.Stats}
	}
	return out, nil
}

// GetOutliersForNetwork returns every sensor's series reduced to its
// outliers. Sensors without measurements yield only their identifier.
func (s *Service) GetOutliersForNetwork(ctx context.Context, networkCode string, sensorMACs []string, r Range) ([]SeriesResult, error) {
	defer s.observe("network_outliers", time.Now())

	series, err := s.networkSeries(ctx, networkCode, sensorMACs, r)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return series, nil
	}

	out := make([]SeriesResult, len(series))
	flagged := 0
	for i, res := range series {
		if len(res.Measurements) == 0 {
			out[i] = SeriesResult{SensorMAC: res.SensorMAC}
			continue
		}
		res.Measurements = outliersOnly(res.Measurements)
		flagged += len(res.Measurements)
		out[i] = res
	}
	s.observer.OutliersFlagged(flagged)
	return out, nil
}

func bare(macs []string) []SeriesResult {
	out := make([]SeriesResult, len(macs))
	for i, mac := range macs {
		out[i] = SeriesResult{SensorMAC: mac}
	}
	return out
}
