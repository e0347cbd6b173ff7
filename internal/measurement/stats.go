package measurement

import "math"

// outlierSigmas is the distance from the mean, in standard deviations,
// beyond which a value is an outlier.
const outlierSigmas = 2

// CalculateStats computes the population mean and variance of values and
// the outlier thresholds at mean ± 2σ. The range bounds that were supplied
// are echoed on the result.
//
// An empty series yields all-zero statistics.
func CalculateStats(values []float64, r Range) Stats {
	s := zeroStats(r)
	if len(values) == 0 {
		return s
	}

	n := float64(len(values))

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	variance := sq / n
	sigma := math.Sqrt(variance)

	s.Mean = mean
	s.Variance = variance
	s.LowerThreshold = mean - outlierSigmas*sigma
	s.UpperThreshold = mean + outlierSigmas*sigma
	return s
}

// zeroStats returns empty statistics echoing the supplied range bounds.
func zeroStats(r Range) Stats {
	var s Stats
	if r.Start != nil {
		start := *r.Start
		s.StartDate = &start
	}
	if r.End != nil {
		end := *r.End
		s.EndDate = &end
	}
	return s
}

// values extracts the numeric readings of a series.
func values(ms []Measurement) []float64 {
	out := make([]float64, len(ms))
	for i, m := range ms {
		out[i] = m.Value
	}
	return out
}
