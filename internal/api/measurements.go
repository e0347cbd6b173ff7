package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/geocontrol/internal/measurement"
)

// dateLayouts are the accepted forms of startDate and endDate, tried in order.
// Layouts without a zone are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}

// parseRange reads the optional startDate and endDate query parameters.
func parseRange(r *http.Request) (measurement.Range, error) {
	var rng measurement.Range
	q := r.URL.Query()

	if v := strings.TrimSpace(q.Get("startDate")); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return rng, fmt.Errorf("startDate: %w", err)
		}
		rng.Start = &t
	}
	if v := strings.TrimSpace(q.Get("endDate")); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return rng, fmt.Errorf("endDate: %w", err)
		}
		rng.End = &t
	}
	return rng, nil
}

// parseSensorMACs reads sensorMacs, which is comma-separated and may repeat.
// Returns nil when no MAC is given.
func parseSensorMACs(r *http.Request) []string {
	var macs []string
	for _, raw := range r.URL.Query()["sensorMacs"] {
		for _, mac := range strings.Split(raw, ",") {
			if mac = strings.TrimSpace(mac); mac != "" {
				macs = append(macs, mac)
			}
		}
	}
	return macs
}

func (s *Server) handleSensorMeasurements(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	result, err := s.measurements.GetSeries(r.Context(), sensorRefFrom(r), rng)
	if err != nil {
		s.writeServiceError(w, r, "get measurements", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSensorStats(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	stats, err := s.measurements.GetStats(r.Context(), sensorRefFrom(r), rng)
	if err != nil {
		s.writeServiceError(w, r, "get stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSensorOutliers(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	result, err := s.measurements.GetOutliers(r.Context(), sensorRefFrom(r), rng)
	if err != nil {
		s.writeServiceError(w, r, "get outliers", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleStoreMeasurements ingests a JSON array of measurements for one sensor.
func (s *Server) handleStoreMeasurements(w http.ResponseWriter, r *http.Request) {
	var ms []measurement.Measurement
	if err := json.NewDecoder(r.Body).Decode(&ms); err != nil {
		writeBadRequest(w, "body must be a JSON array of {createdAt, value}")
		return
	}

	if err := s.measurements.Store(r.Context(), sensorRefFrom(r), ms); err != nil {
		s.writeServiceError(w, r, "store measurements", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleNetworkMeasurements(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	results, err := s.measurements.GetSeriesForNetwork(r.Context(), chi.URLParam(r, "networkCode"), parseSensorMACs(r), rng)
	if err != nil {
		s.writeServiceError(w, r, "get network measurements", err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleNetworkStats(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	results, err := s.measurements.GetStatsForNetwork(r.Context(), chi.URLParam(r, "networkCode"), parseSensorMACs(r), rng)
	if err != nil {
		s.writeServiceError(w, r, "get network stats", err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleNetworkOutliers(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	results, err := s.measurements.GetOutliersForNetwork(r.Context(), chi.URLParam(r, "networkCode"), parseSensorMACs(r), rng)
	if err != nil {
		s.writeServiceError(w, r, "get network outliers", err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
