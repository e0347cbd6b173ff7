package measurement

import "time"

// Range is an optional, inclusive date interval. A nil bound is open.
type Range struct {
	Start *time.Time
	End   *time.Time
}

// Contains reports whether t lies within the range, bounds included.
func (r Range) Contains(t time.Time) bool {
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && t.After(*r.End) {
		return false
	}
	return true
}

// Reversed reports whether both bounds are set and the start is after the end.
func (r Range) Reversed() bool {
	return r.Start != nil && r.End != nil && r.Start.After(*r.End)
}

// Bounded reports whether at least one bound is set.
func (r Range) Bounded() bool {
	return r.Start != nil || r.End != nil
}

// FilterByRange returns the measurements that fall within r, in their
// original order, as a new slice.
func FilterByRange(ms []Measurement, r Range) []Measurement {
	out := make([]Measurement, 0, len(ms))
	for _, m := range ms {
		if r.Contains(m.CreatedAt) {
			out = append(out, m)
		}
	}
	return out
}
