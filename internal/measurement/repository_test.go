package measurement

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/geocontrol/internal/infrastructure/database"
	_ "github.com/nerrad567/geocontrol/migrations"
)

// setupTestStore opens a migrated database holding network NET01 with
// gateway GW:01 and sensors S:01 and S:02, plus network NET02 with S:03.
func setupTestStore(t *testing.T) (*SQLiteStore, *sql.DB) {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "measurements.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	seed := []string{
		`INSERT INTO networks (id, code) VALUES (1, 'NET01'), (2, 'NET02')`,
		`INSERT INTO gateways (id, network_id, mac_address) VALUES (1, 1, 'GW:01'), (2, 2, 'GW:02')`,
		`INSERT INTO sensors (id, gateway_id, mac_address) VALUES (1, 1, 'S:01'), (2, 1, 'S:02'), (3, 2, 'S:03')`,
	}
	for _, q := range seed {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}

	return NewSQLiteStore(db.DB), db.DB
}

func TestSQLiteStore_InsertAndFetchBySensor(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	// Inserted out of order and in a non-UTC zone.
	zone := time.FixedZone("CET", 3600)
	batch := []Measurement{
		{CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, zone), Value: 2},
		{CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 500, time.UTC), Value: 1},
	}
	if err := store.Insert(ctx, testRef, batch); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := store.FetchBySensor(ctx, testRef)
	if err != nil {
		t.Fatalf("FetchBySensor() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Value != 1 || got[1].Value != 2 {
		t.Errorf("values = [%v %v], want oldest first", got[0].Value, got[1].Value)
	}
	if !got[0].CreatedAt.Equal(batch[1].CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v (nanoseconds kept)", got[0].CreatedAt, batch[1].CreatedAt)
	}
	if !got[1].CreatedAt.Equal(batch[0].CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got[1].CreatedAt, batch[0].CreatedAt)
	}

	other, err := store.FetchBySensor(ctx, SensorRef{NetworkCode: "NET01", GatewayMAC: "GW:01", SensorMAC: "S:02"})
	if err != nil {
		t.Fatalf("FetchBySensor() error = %v", err)
	}
	if len(other) != 0 {
		t.Errorf("S:02 should have no measurements, got %d", len(other))
	}
}

func TestSQLiteStore_FetchByNetwork(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	at := func(h int) time.Time { return time.Date(2025, 3, 1, h, 0, 0, 0, time.UTC) }

	mustInsert := func(ref SensorRef, ms ...Measurement) {
		t.Helper()
		if err := store.Insert(ctx, ref, ms); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}
	s2 := SensorRef{NetworkCode: "NET01", GatewayMAC: "GW:01", SensorMAC: "S:02"}
	s3 := SensorRef{NetworkCode: "NET02", GatewayMAC: "GW:02", SensorMAC: "S:03"}
	mustInsert(testRef, Measurement{CreatedAt: at(3), Value: 13}, Measurement{CreatedAt: at(1), Value: 11})
	mustInsert(s2, Measurement{CreatedAt: at(2), Value: 22})
	mustInsert(s3, Measurement{CreatedAt: at(1), Value: 31})

	t.Run("whole network", func(t *testing.T) {
		got, err := store.FetchByNetwork(ctx, "NET01", nil)
		if err != nil {
			t.Fatalf("FetchByNetwork() error = %v", err)
		}
		want := []struct {
			mac   string
			value float64
		}{{"S:01", 11}, {"S:02", 22}, {"S:01", 13}}
		if len(got) != len(want) {
			t.Fatalf("len = %d, want %d", len(got), len(want))
		}
		for i, w := range want {
			if got[i].SensorMAC != w.mac || got[i].Value != w.value {
				t.Errorf("got[%d] = %s/%v, want %s/%v", i, got[i].SensorMAC, got[i].Value, w.mac, w.value)
			}
		}
	})

	t.Run("sensor subset", func(t *testing.T) {
		got, err := store.FetchByNetwork(ctx, "NET01", []string{"S:02", "S:03"})
		if err != nil {
			t.Fatalf("FetchByNetwork() error = %v", err)
		}
		if len(got) != 1 || got[0].SensorMAC != "S:02" {
			t.Errorf("got = %+v, want only S:02 (S:03 belongs to NET02)", got)
		}
	})

	t.Run("unknown network", func(t *testing.T) {
		got, err := store.FetchByNetwork(ctx, "NOPE", nil)
		if err != nil {
			t.Fatalf("FetchByNetwork() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("got %d measurements, want 0", len(got))
		}
	})
}

func TestSQLiteStore_InsertUnknownSensor(t *testing.T) {
	store, _ := setupTestStore(t)

	ref := SensorRef{NetworkCode: "NET02", GatewayMAC: "GW:01", SensorMAC: "S:01"}
	err := store.Insert(context.Background(), ref, []Measurement{{CreatedAt: time.Now(), Value: 1}})
	if err == nil {
		t.Fatal("Insert() expected error for sensor outside the given path")
	}
}

func TestSQLiteStore_CascadeDelete(t *testing.T) {
	store, db := setupTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, testRef, []Measurement{{CreatedAt: time.Now(), Value: 1}}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM networks WHERE code = 'NET01'`); err != nil {
		t.Fatalf("delete network: %v", err)
	}

	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM measurements`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("measurements left after network delete = %d, want 0", n)
	}
}

func TestTimeLayoutRoundTrip(t *testing.T) {
	in := time.Date(2025, 12, 31, 23, 59, 59, 123456789, time.FixedZone("X", -5*3600))

	out, err := parseTime(formatTime(in))
	if err != nil {
		t.Fatalf("parseTime() error = %v", err)
	}
	if !out.Equal(in) {
		t.Errorf("round trip = %v, want %v", out, in)
	}
	if len(formatTime(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))) != len(formatTime(in)) {
		t.Error("layout should be fixed width")
	}
}
