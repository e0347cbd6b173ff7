package measurement

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// timeLayout stores timestamps as fixed-width UTC text, so that ordering by
// the column is ordering by time.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// sensorPathJoin joins a measurement to the network that owns its sensor.
const sensorPathJoin = `
	FROM measurements m
	JOIN sensors s ON s.id = m.sensor_id
	JOIN gateways g ON g.id = s.gateway_id
	JOIN networks n ON n.id = g.network_id`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed measurement store.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// FetchBySensor returns the sensor's measurements oldest first.
func (st *SQLiteStore) FetchBySensor(ctx context.Context, ref SensorRef) ([]Measurement, error) {
	query := `SELECT m.created_at, m.value` + sensorPathJoin + `
		WHERE n.code = ? AND g.mac_address = ? AND s.mac_address = ?
		ORDER BY m.created_at, m.id`

	rows, err := st.db.QueryContext(ctx, query, ref.NetworkCode, ref.GatewayMAC, ref.SensorMAC)
	if err != nil {
		return nil, fmt.Errorf("querying sensor measurements: %w", err)
	}
	defer rows.Close()

	var out []Measurement
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sensor measurements: %w", err)
	}
	return out, nil
}

// FetchByNetwork returns the measurements of the network's sensors, limited
// to sensorMACs when the list is non-empty, oldest first.
func (st *SQLiteStore) FetchByNetwork(ctx context.Context, networkCode string, sensorMACs []string) ([]TaggedMeasurement, error) {
	var b strings.Builder
	b.WriteString(`SELECT s.mac_address, m.created_at, m.value`)
	b.WriteString(sensorPathJoin)
	b.WriteString(` WHERE n.code = ?`)

	args := make([]any, 0, len(sensorMACs)+1)
	args = append(args, networkCode)
	if len(sensorMACs) > 0 {
		b.WriteString(` AND s.mac_address IN (?` + strings.Repeat(", ?", len(sensorMACs)-1) + `)`)
		for _, mac := range sensorMACs {
			args = append(args, mac)
		}
	}
	b.WriteString(` ORDER BY m.created_at, m.id`)

	rows, err := st.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying network measurements: %w", err)
	}
	defer rows.Close()

	var out []TaggedMeasurement
	for rows.Next() {
		var (
			tm        TaggedMeasurement
			createdAt string
		)
		if err := rows.Scan(&tm.SensorMAC, &createdAt, &tm.Value); err != nil {
			return nil, fmt.Errorf("scanning network measurement: %w", err)
		}
		if tm.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, tm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating network measurements: %w", err)
	}
	return out, nil
}

// Insert stores the batch in a single transaction.
func (st *SQLiteStore) Insert(ctx context.Context, ref SensorRef, ms []Measurement) error {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting measurement insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	var sensorID int64
	err = tx.QueryRowContext(ctx, `
		SELECT s.id FROM sensors s
		JOIN gateways g ON g.id = s.gateway_id
		JOIN networks n ON n.id = g.network_id
		WHERE n.code = ? AND g.mac_address = ? AND s.mac_address = ?`,
		ref.NetworkCode, ref.GatewayMAC, ref.SensorMAC,
	).Scan(&sensorID)
	if err != nil {
		return fmt.Errorf("resolving sensor %s: %w", ref.SensorMAC, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO measurements (sensor_id, created_at, value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing measurement insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range ms {
		if _, err := stmt.ExecContext(ctx, sensorID, formatTime(m.CreatedAt), m.Value); err != nil {
			return fmt.Errorf("inserting measurement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing measurements: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMeasurement(row scanner) (Measurement, error) {
	var (
		m         Measurement
		createdAt string
	)
	if err := row.Scan(&createdAt, &m.Value); err != nil {
		return Measurement{}, fmt.Errorf("scanning measurement: %w", err)
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return Measurement{}, err
	}
	m.CreatedAt = t
	return m, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing measurement timestamp %q: %w", s, err)
	}
	return t, nil
}
