package measurement

// Classify annotates each measurement with whether it falls outside the
// thresholds of s. The input slice is left untouched.
func Classify(ms []Measurement, s Stats) []AnnotatedMeasurement {
	out := make([]AnnotatedMeasurement, len(ms))
	for i, m := range ms {
		out[i] = AnnotatedMeasurement{
			CreatedAt: m.CreatedAt,
			Value:     m.Value,
			IsOutlier: m.Value < s.LowerThreshold || m.Value > s.UpperThreshold,
		}
	}
	return out
}

// outliersOnly keeps the flagged measurements. The result is never nil, so
// a series without outliers encodes as an empty array.
func outliersOnly(ms []AnnotatedMeasurement) []AnnotatedMeasurement {
	out := make([]AnnotatedMeasurement, 0, len(ms))
	for _, m := range ms {
		if m.IsOutlier {
			out = append(out, m)
		}
	}
	return out
}
