package measurement

import "time"

// Measurement is a single time-stamped reading. It is never modified once
// stored.
type Measurement struct {
	CreatedAt time.Time `json:"createdAt"`
	Value     float64   `json:"value"`
}

// AnnotatedMeasurement is a Measurement classified against a set of Stats.
// It only exists in responses and is never persisted.
type AnnotatedMeasurement struct {
	CreatedAt time.Time `json:"createdAt"`
	Value     float64   `json:"value"`
	IsOutlier bool      `json:"isOutlier"`
}

// Stats summarises a series. StartDate and EndDate echo the requested range
// bounds and are set only when the caller supplied them.
type Stats struct {
	Mean           float64    `json:"mean"`
	Variance       float64    `json:"variance"`
	LowerThreshold float64    `json:"lowerThreshold"`
	UpperThreshold float64    `json:"upperThreshold"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	EndDate        *time.Time `json:"endDate,omitempty"`
}

// SeriesResult is the pipeline output for one sensor.
//
// A nil Measurements slice is omitted from JSON, while an empty non-nil
// slice encodes as []. The first means "no data", the second "data, but
// nothing matched".
type SeriesResult struct {
	SensorMAC    string                 `json:"sensorMacAddress"`
	Stats        *Stats                 `json:"stats,omitempty"`
	Measurements []AnnotatedMeasurement `json:"measurements,omitzero"`
}

// NetworkStats is the per-sensor element of a network statistics response.
type NetworkStats struct {
	SensorMAC string `json:"sensorMacAddress"`
	Stats     *Stats `json:"stats,omitempty"`
}

// SensorRef locates a sensor by its full path in the hierarchy.
type SensorRef struct {
	NetworkCode string
	GatewayMAC  string
	SensorMAC   string
}

// TaggedMeasurement is a Measurement together with the sensor that owns it,
// as returned by network-wide fetches.
type TaggedMeasurement struct {
	SensorMAC string
	Measurement
}

// Batch is a set of measurements that has just been stored for one sensor.
type Batch struct {
	Sensor       SensorRef
	Measurements []Measurement
}
