package api

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/nerrad567/geocontrol/internal/auth"
	"github.com/nerrad567/geocontrol/internal/measurement"
	"github.com/nerrad567/geocontrol/internal/network"
)

const sensorPath = "/api/v1/networks/NET01/gateways/GW:01/sensors/S:01"

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2025-03-01", want: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{in: "2025-03-01T10:20:30", want: time.Date(2025, 3, 1, 10, 20, 30, 0, time.UTC)},
		{in: "2025-03-01T10:20:30Z", want: time.Date(2025, 3, 1, 10, 20, 30, 0, time.UTC)},
		{in: "2025-03-01T10:20:30.5Z", want: time.Date(2025, 3, 1, 10, 20, 30, 500_000_000, time.UTC)},
		{in: "2025-03-01T12:20:30+02:00", want: time.Date(2025, 3, 1, 10, 20, 30, 0, time.UTC)},
		{in: "yesterday", wantErr: true},
		{in: "2025-13-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("parseDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseRange(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x?startDate=2025-01-01&endDate=2025-01-31T23:59:59Z", nil)
	rng, err := parseRange(r)
	if err != nil {
		t.Fatalf("parseRange: %v", err)
	}
	if rng.Start == nil || rng.End == nil {
		t.Fatalf("range = %+v, want both bounds", rng)
	}

	r = httptest.NewRequest(http.MethodGet, "/x", nil)
	if rng, err = parseRange(r); err != nil || rng.Bounded() {
		t.Errorf("no params: range = %+v, err = %v, want unbounded", rng, err)
	}

	r = httptest.NewRequest(http.MethodGet, "/x?endDate=soon", nil)
	if _, err = parseRange(r); err == nil {
		t.Error("malformed endDate: expected error")
	}
}

func TestParseSensorMACs(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"", nil},
		{"?sensorMacs=S:01", []string{"S:01"}},
		{"?sensorMacs=S:01,%20S:02,,", []string{"S:01", "S:02"}},
		{"?sensorMacs=S:01&sensorMacs=S:03", []string{"S:01", "S:03"}},
		{"?sensorMacs=S:01&sensorMacs=S:01", []string{"S:01", "S:01"}},
		{"?sensorMacs=,", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := parseSensorMACs(httptest.NewRequest(http.MethodGet, "/x"+tt.query, nil))
			if !slices.Equal(got, tt.want) {
				t.Errorf("parseSensorMACs(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

// seriesBody builds n measurements one day apart starting 2025-01-01.
func seriesBody(values ...float64) []measurement.Measurement {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]measurement.Measurement, len(values))
	for i, v := range values {
		out[i] = measurement.Measurement{CreatedAt: start.AddDate(0, 0, i), Value: v}
	}
	return out
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSensorMeasurements_StoreAndStats(t *testing.T) {
	env := newTestEnv(t)
	op := env.token(t, auth.RoleOperator)
	viewer := env.token(t, auth.RoleViewer)
	seedSensor(t, env, op)

	w := env.do(t, http.MethodPost, sensorPath+"/measurements", op, seriesBody(10, 20))
	if w.Code != http.StatusCreated {
		t.Fatalf("store status = %d, want 201; body: %s", w.Code, w.Body.String())
	}

	stats := decodeJSON[measurement.Stats](t, env.do(t, http.MethodGet, sensorPath+"/stats", viewer, nil))
	if !almostEqual(stats.Mean, 15) || !almostEqual(stats.Variance, 25) {
		t.Errorf("mean/variance = %v/%v, want 15/25", stats.Mean, stats.Variance)
	}
	if !almostEqual(stats.LowerThreshold, 5) || !almostEqual(stats.UpperThreshold, 25) {
		t.Errorf("thresholds = %v/%v, want 5/25", stats.LowerThreshold, stats.UpperThreshold)
	}
	if stats.StartDate != nil || stats.EndDate != nil {
		t.Error("unbounded stats should not echo dates")
	}

	series := decodeJSON[measurement.SeriesResult](t, env.do(t, http.MethodGet, sensorPath+"/measurements", viewer, nil))
	if series.SensorMAC != "S:01" || len(series.Measurements) != 2 {
		t.Fatalf("series = %+v, want S:01 with 2 measurements", series)
	}
	for _, m := range series.Measurements {
		if m.IsOutlier {
			t.Errorf("measurement %v flagged as outlier", m)
		}
	}

	// The end bound is inclusive.
	series = decodeJSON[measurement.SeriesResult](t, env.do(t, http.MethodGet,
		sensorPath+"/measurements?startDate=2025-01-02&endDate=2025-01-02", viewer, nil))
	if len(series.Measurements) != 1 || series.Measurements[0].Value != 20 {
		t.Errorf("filtered series = %+v, want only the 20", series.Measurements)
	}
	if series.Stats == nil || series.Stats.StartDate == nil || series.Stats.EndDate == nil {
		t.Error("bounded stats should echo both dates")
	}
}

func TestSensorOutliers(t *testing.T) {
	env := newTestEnv(t)
	op := env.token(t, auth.RoleOperator)
	seedSensor(t, env, op)

	body := seriesBody(10, 10, 10, 10, 10, 10, 10, 10, 10, 100)
	if w := env.do(t, http.MethodPost, sensorPath+"/measurements", op, body); w.Code != http.StatusCreated {
		t.Fatalf("store status = %d, want 201", w.Code)
	}

	res := decodeJSON[measurement.SeriesResult](t, env.do(t, http.MethodGet, sensorPath+"/outliers", op, nil))
	if len(res.Measurements) != 1 {
		t.Fatalf("outliers = %+v, want exactly one", res.Measurements)
	}
	if m := res.Measurements[0]; m.Value != 100 || !m.IsOutlier {
		t.Errorf("outlier = %+v, want value 100 flagged", m)
	}
	if res.Stats == nil || !almostEqual(res.Stats.Mean, 19) || !almostEqual(res.Stats.Variance, 729) {
		t.Errorf("stats = %+v, want mean 19, variance 729", res.Stats)
	}
}

func TestSensorMeasurements_Empty(t *testing.T) {
	env := newTestEnv(t)
	op := env.token(t, auth.RoleOperator)
	seedSensor(t, env, op)

	stats := decodeJSON[measurement.Stats](t, env.do(t, http.MethodGet, sensorPath+"/stats", op, nil))
	if stats != (measurement.Stats{}) {
		t.Errorf("stats = %+v, want zero", stats)
	}

	w := env.do(t, http.MethodGet, sensorPath+"/outliers", op, nil)
	var raw map[string]any
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(raw) != 1 || raw["sensorMacAddress"] != "S:01" {
		t.Errorf("outliers body = %v, want only sensorMacAddress", raw)
	}
}

func TestSensorMeasurements_ReversedRange(t *testing.T) {
	env := newTestEnv(t)
	op := env.token(t, auth.RoleOperator)
	seedSensor(t, env, op)
	env.do(t, http.MethodPost, sensorPath+"/measurements", op, seriesBody(1, 2, 3))

	res := decodeJSON[measurement.SeriesResult](t, env.do(t, http.MethodGet,
		sensorPath+"/measurements?startDate=2025-02-01&endDate=2025-01-01", op, nil))
	if len(res.Measurements) != 0 {
		t.Errorf("measurements = %v, want none", res.Measurements)
	}
	if res.Stats == nil || res.Stats.Mean != 0 || res.Stats.StartDate == nil {
		t.Errorf("stats = %+v, want zeroed with echoed bounds", res.Stats)
	}
}

func TestSensorMeasurements_Errors(t *testing.T) {
	env := newTestEnv(t)
	op := env.token(t, auth.RoleOperator)
	seedSensor(t, env, op)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantName   string
	}{
		{"malformed startDate", http.MethodGet, sensorPath + "/measurements?startDate=nope", nil, http.StatusBadRequest, ErrNameBadRequest},
		{"malformed endDate", http.MethodGet, sensorPath + "/stats?endDate=nope", nil, http.StatusBadRequest, ErrNameBadRequest},
		{"unknown network", http.MethodGet, "/api/v1/networks/NOPE/gateways/GW:01/sensors/S:01/measurements", nil, http.StatusNotFound, ErrNameNotFound},
		{"unknown gateway", http.MethodGet, "/api/v1/networks/NET01/gateways/GW:99/sensors/S:01/stats", nil, http.StatusNotFound, ErrNameNotFound},
		{"unknown sensor", http.MethodGet, "/api/v1/networks/NET01/gateways/GW:01/sensors/S:99/outliers", nil, http.StatusNotFound, ErrNameNotFound},
		{"store into unknown sensor", http.MethodPost, "/api/v1/networks/NET01/gateways/GW:01/sensors/S:99/measurements", seriesBody(1), http.StatusNotFound, ErrNameNotFound},
		{"store object instead of array", http.MethodPost, sensorPath + "/measurements", map[string]any{"value": 1}, http.StatusBadRequest, ErrNameBadRequest},
		{"store without createdAt", http.MethodPost, sensorPath + "/measurements", []map[string]any{{"value": 1}}, http.StatusBadRequest, ErrNameBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decodeError(t, env.do(t, tt.method, tt.path, op, tt.body), tt.wantStatus, tt.wantName)
		})
	}
}

func TestStoreMeasurements_EmptyBatch(t *testing.T) {
	env := newTestEnv(t)
	op := env.token(t, auth.RoleOperator)
	seedSensor(t, env, op)

	if w := env.do(t, http.MethodPost, sensorPath+"/measurements", op, []measurement.Measurement{}); w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", w.Code)
	}
}

func TestNetworkMeasurements(t *testing.T) {
	env := newTestEnv(t)
	op := env.token(t, auth.RoleOperator)
	seedSensor(t, env, op)

	if w := env.do(t, http.MethodPost, "/api/v1/networks/NET01/gateways/GW:01/sensors", op,
		network.Sensor{MACAddress: "S:02"}); w.Code != http.StatusCreated {
		t.Fatalf("create S:02 status = %d", w.Code)
	}

	// No measurements at all: bare identifiers for the whole scope.
	bare := decodeJSON[[]measurement.SeriesResult](t, env.do(t, http.MethodGet, "/api/v1/networks/NET01/measurements", op, nil))
	if len(bare) != 2 || bare[0].SensorMAC != "S:01" || bare[1].SensorMAC != "S:02" || bare[0].Stats != nil {
		t.Fatalf("bare = %+v, want S:01, S:02 without stats", bare)
	}

	env.do(t, http.MethodPost, sensorPath+"/measurements", op, seriesBody(10, 10, 10, 10, 10, 10, 10, 10, 10, 100))

	all := decodeJSON[[]measurement.SeriesResult](t, env.do(t, http.MethodGet, "/api/v1/networks/NET01/measurements", op, nil))
	if len(all) != 1 || all[0].SensorMAC != "S:01" || len(all[0].Measurements) != 10 {
		t.Fatalf("unbounded network series = %+v, want only S:01 with 10 measurements", all)
	}

	bounded := decodeJSON[[]measurement.SeriesResult](t, env.do(t, http.MethodGet,
		"/api/v1/networks/NET01/measurements?startDate=2025-01-01", op, nil))
	if len(bounded) != 2 || bounded[1].SensorMAC != "S:02" || bounded[1].Stats == nil || bounded[1].Stats.StartDate == nil {
		t.Fatalf("bounded network series = %+v, want S:02 with zeroed stats", bounded)
	}

	stats := decodeJSON[[]measurement.NetworkStats](t, env.do(t, http.MethodGet,
		"/api/v1/networks/NET01/stats?sensorMacs=S:01", op, nil))
	if len(stats) != 1 || stats[0].Stats == nil || !almostEqual(stats[0].Stats.Mean, 19) {
		t.Fatalf("network stats = %+v, want S:01 with mean 19", stats)
	}

	outliers := decodeJSON[[]measurement.SeriesResult](t, env.do(t, http.MethodGet,
		"/api/v1/networks/NET01/outliers?sensorMacs=S:01,S:02&startDate=2025-01-01", op, nil))
	if len(outliers) != 2 {
		t.Fatalf("network outliers = %+v, want 2 entries", outliers)
	}
	if len(outliers[0].Measurements) != 1 || outliers[0].Measurements[0].Value != 100 {
		t.Errorf("S:01 outliers = %+v, want the 100", outliers[0].Measurements)
	}
	if outliers[1].Stats != nil || outliers[1].Measurements != nil {
		t.Errorf("S:02 outliers = %+v, want bare identifier", outliers[1])
	}

	decodeError(t, env.do(t, http.MethodGet, "/api/v1/networks/NOPE/stats", op, nil), http.StatusNotFound, ErrNameNotFound)
	decodeError(t, env.do(t, http.MethodGet, "/api/v1/networks/NET01/outliers?startDate=x", op, nil), http.StatusBadRequest, ErrNameBadRequest)
}
