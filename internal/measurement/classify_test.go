package measurement

import (
	"testing"
	"time"
)

func series(vs ...float64) []Measurement {
	base := ts("2025-03-01T00:00:00Z")
	out := make([]Measurement, len(vs))
	for i, v := range vs {
		out[i] = Measurement{CreatedAt: base.Add(time.Duration(i) * time.Hour), Value: v}
	}
	return out
}

func TestClassify_ForcedOutlier(t *testing.T) {
	ms := series(10, 10, 10, 10, 10, 10, 10, 10, 10, 1000)
	s := CalculateStats(values(ms), Range{})

	got := Classify(ms, s)
	if len(got) != len(ms) {
		t.Fatalf("len = %d, want %d", len(got), len(ms))
	}
	for i, am := range got[:9] {
		if am.IsOutlier {
			t.Errorf("measurement %d (%v) flagged as outlier", i, am.Value)
		}
	}
	if !got[9].IsOutlier {
		t.Errorf("1000 should be an outlier (upper threshold %v)", s.UpperThreshold)
	}
}

func TestClassify_Identity(t *testing.T) {
	ms := series(1, 2, 3, 50, -40, 2, 3)
	s := CalculateStats(values(ms), Range{})

	for i, am := range Classify(ms, s) {
		want := am.Value < s.LowerThreshold || am.Value > s.UpperThreshold
		if am.IsOutlier != want {
			t.Errorf("measurement %d: IsOutlier = %v, want %v", i, am.IsOutlier, want)
		}
		if !am.CreatedAt.Equal(ms[i].CreatedAt) || am.Value != ms[i].Value {
			t.Errorf("measurement %d: fields not carried over", i)
		}
	}
}

func TestClassify_BoundaryIsNotOutlier(t *testing.T) {
	ms := series(5, 10, 15)
	s := Stats{LowerThreshold: 5, UpperThreshold: 15}

	for _, am := range Classify(ms, s) {
		if am.IsOutlier {
			t.Errorf("value %v on a threshold should not be an outlier", am.Value)
		}
	}
}

func TestClassify_DoesNotMutateInput(t *testing.T) {
	ms := series(1, 100)
	orig := append([]Measurement(nil), ms...)

	_ = Classify(ms, Stats{LowerThreshold: 50, UpperThreshold: 60})

	for i := range ms {
		if ms[i] != orig[i] {
			t.Errorf("input %d changed: %+v -> %+v", i, orig[i], ms[i])
		}
	}
}

func TestOutliersOnly(t *testing.T) {
	in := []AnnotatedMeasurement{{Value: 1}, {Value: 2, IsOutlier: true}, {Value: 3}}

	got := outliersOnly(in)
	if len(got) != 1 || got[0].Value != 2 {
		t.Errorf("outliersOnly() = %+v", got)
	}

	none := outliersOnly(in[:1])
	if none == nil || len(none) != 0 {
		t.Errorf("outliersOnly() without outliers = %#v, want empty non-nil", none)
	}
}
