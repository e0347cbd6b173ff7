package measurement

import (
	"math"
	"testing"
	"time"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCalculateStats(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		mean     float64
		variance float64
		lower    float64
		upper    float64
	}{
		{name: "empty series", values: nil},
		{name: "single value", values: []float64{25}, mean: 25, variance: 0, lower: 25, upper: 25},
		{name: "two values", values: []float64{100, 25}, mean: 62.5, variance: 1406.25, lower: -12.5, upper: 137.5},
		{name: "constant series", values: []float64{4, 4, 4}, mean: 4, variance: 0, lower: 4, upper: 4},
		{name: "population variance", values: []float64{2, 4, 4, 4, 5, 5, 7, 9}, mean: 5, variance: 4, lower: 1, upper: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := CalculateStats(tt.values, Range{})

			if !almostEqual(s.Mean, tt.mean) {
				t.Errorf("Mean = %v, want %v", s.Mean, tt.mean)
			}
			if !almostEqual(s.Variance, tt.variance) {
				t.Errorf("Variance = %v, want %v", s.Variance, tt.variance)
			}
			if !almostEqual(s.LowerThreshold, tt.lower) {
				t.Errorf("LowerThreshold = %v, want %v", s.LowerThreshold, tt.lower)
			}
			if !almostEqual(s.UpperThreshold, tt.upper) {
				t.Errorf("UpperThreshold = %v, want %v", s.UpperThreshold, tt.upper)
			}
			if s.StartDate != nil || s.EndDate != nil {
				t.Error("unbounded range should not echo dates")
			}
		})
	}
}

func TestCalculateStats_ThresholdOrdering(t *testing.T) {
	series := [][]float64{
		{1},
		{-5, 5},
		{0.1, 0.2, 0.3, 100},
		{-1000, -999.5, -1001},
	}

	for _, values := range series {
		s := CalculateStats(values, Range{})
		if s.Variance < 0 {
			t.Errorf("%v: variance %v is negative", values, s.Variance)
		}
		if s.LowerThreshold > s.Mean || s.Mean > s.UpperThreshold {
			t.Errorf("%v: want lower <= mean <= upper, got %v <= %v <= %v",
				values, s.LowerThreshold, s.Mean, s.UpperThreshold)
		}
	}
}

func TestCalculateStats_EchoesSuppliedBounds(t *testing.T) {
	start := ts("2025-01-01T00:00:00Z")
	end := ts("2025-01-31T00:00:00Z")

	tests := []struct {
		name      string
		r         Range
		wantStart bool
		wantEnd   bool
	}{
		{name: "both", r: Range{Start: &start, End: &end}, wantStart: true, wantEnd: true},
		{name: "start only", r: Range{Start: &start}, wantStart: true},
		{name: "end only", r: Range{End: &end}, wantEnd: true},
		{name: "neither", r: Range{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := CalculateStats([]float64{1, 2, 3}, tt.r)

			if (s.StartDate != nil) != tt.wantStart {
				t.Errorf("StartDate set = %v, want %v", s.StartDate != nil, tt.wantStart)
			}
			if (s.EndDate != nil) != tt.wantEnd {
				t.Errorf("EndDate set = %v, want %v", s.EndDate != nil, tt.wantEnd)
			}
			if tt.wantStart && !s.StartDate.Equal(start) {
				t.Errorf("StartDate = %v, want %v", s.StartDate, start)
			}
			if tt.wantEnd && !s.EndDate.Equal(end) {
				t.Errorf("EndDate = %v, want %v", s.EndDate, end)
			}
		})
	}
}

func TestCalculateStats_EmptyWithBounds(t *testing.T) {
	start := ts("2025-01-01T00:00:00Z")
	s := CalculateStats(nil, Range{Start: &start})

	if s.Mean != 0 || s.Variance != 0 || s.LowerThreshold != 0 || s.UpperThreshold != 0 {
		t.Errorf("expected zero stats, got %+v", s)
	}
	if s.StartDate == nil || !s.StartDate.Equal(start) {
		t.Errorf("StartDate = %v, want %v", s.StartDate, start)
	}
	if s.EndDate != nil {
		t.Errorf("EndDate = %v, want nil", s.EndDate)
	}
}
