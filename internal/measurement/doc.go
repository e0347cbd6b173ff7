// Package measurement implements the GeoControl measurement pipeline.
//
// A sensor's series is fetched from a Store, narrowed to an inclusive date
// Range, summarised by CalculateStats (population mean and variance, with
// thresholds at mean ± 2σ) and annotated by Classify, which flags every
// value outside the thresholds as an outlier.
//
// Service runs the pipeline for a single sensor (GetSeries, GetStats,
// GetOutliers) or across a network (GetSeriesForNetwork and friends). It
// talks to the rest of the system only through the Guard, Store and
// Directory interfaces, so it can be exercised without a database.
//
// # Degenerate ranges
//
// When both bounds are supplied and the start is after the end, nothing is
// fetched. A single sensor yields zeroed stats echoing both bounds; a
// network yields bare sensor identifiers.
//
// # Ingestion
//
// Service.Store validates and persists a batch, then hands it to every
// registered Sink (InfluxDB, MQTT, WebSocket, metrics). Sink failures are
// logged; the SQLite store remains the source of truth.
package measurement
