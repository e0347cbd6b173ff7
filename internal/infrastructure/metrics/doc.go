// Package metrics exports GeoControl's Prometheus metrics: HTTP traffic per
// route, stored measurements, outliers flagged, aggregation latency and
// live-stream clients.
package metrics
