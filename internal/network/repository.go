package network

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Repository defines the persistence operations for the hierarchy.
type Repository interface {
	ListNetworks(ctx context.Context) ([]Network, error)
	GetNetwork(ctx context.Context, code string) (*Network, error)
	CreateNetwork(ctx context.Context, n *Network) error
	UpdateNetwork(ctx context.Context, code string, u NetworkUpdate) error
	DeleteNetwork(ctx context.Context, code string) error

	ListGateways(ctx context.Context, code string) ([]Gateway, error)
	GetGateway(ctx context.Context, code, gatewayMAC string) (*Gateway, error)
	CreateGateway(ctx context.Context, code string, g *Gateway) error
	UpdateGateway(ctx context.Context, code, gatewayMAC string, u GatewayUpdate) error
	DeleteGateway(ctx context.Context, code, gatewayMAC string) error

	ListSensors(ctx context.Context, code, gatewayMAC string) ([]Sensor, error)
	GetSensor(ctx context.Context, code, gatewayMAC, sensorMAC string) (*Sensor, error)
	CreateSensor(ctx context.Context, code, gatewayMAC string, s *Sensor) error
	UpdateSensor(ctx context.Context, code, gatewayMAC, sensorMAC string, u SensorUpdate) error
	DeleteSensor(ctx context.Context, code, gatewayMAC, sensorMAC string) error

	// ListSensorMACsOfNetwork returns the MAC addresses of every sensor in
	// the network, in creation order.
	ListSensorMACsOfNetwork(ctx context.Context, code string) ([]string, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed network repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// ListNetworks returns every network with its gateways and sensors nested.
func (r *SQLiteRepository) ListNetworks(ctx context.Context) ([]Network, error) {
	return r.loadNetworks(ctx, "")
}

// GetNetwork returns one network with its gateways and sensors nested.
func (r *SQLiteRepository) GetNetwork(ctx context.Context, code string) (*Network, error) {
	networks, err := r.loadNetworks(ctx, code)
	if err != nil {
		return nil, err
	}
	if len(networks) == 0 {
		return nil, ErrNetworkNotFound
	}
	return &networks[0], nil
}

// CreateNetwork inserts a network. Nested gateways are ignored.
func (r *SQLiteRepository) CreateNetwork(ctx context.Context, n *Network) error {
	if err := ValidateNetwork(n); err != nil {
		return err
	}

	const query = `INSERT INTO networks (code, name, description) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, n.Code, nullIfEmpty(n.Name), nullIfEmpty(n.Description)); err != nil {
		if isUniqueViolation(err) {
			return ErrNetworkExists
		}
		return fmt.Errorf("inserting network %s: %w", n.Code, err)
	}
	return nil
}

// UpdateNetwork applies a partial update to a network.
func (r *SQLiteRepository) UpdateNetwork(ctx context.Context, code string, u NetworkUpdate) error {
	newCode, err := validOptionalIdentifier(u.Code, maxCodeLength, ErrInvalidCode)
	if err != nil {
		return err
	}

	id, err := networkID(ctx, r.db, code)
	if err != nil {
		return err
	}

	var set updateSet
	set.text("code", newCode)
	set.nullable("name", u.Name)
	set.nullable("description", u.Description)

	if err := set.exec(ctx, r.db, "networks", id); err != nil {
		if isUniqueViolation(err) {
			return ErrNetworkExists
		}
		return fmt.Errorf("updating network %s: %w", code, err)
	}
	return nil
}

// DeleteNetwork removes a network and everything below it.
func (r *SQLiteRepository) DeleteNetwork(ctx context.Context, code string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM networks WHERE code = ?`, code)
	if err != nil {
		return fmt.Errorf("deleting network %s: %w", code, err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrNetworkNotFound
	}
	return nil
}

// ListGateways returns the network's gateways with their sensors nested.
func (r *SQLiteRepository) ListGateways(ctx context.Context, code string) ([]Gateway, error) {
	id, err := networkID(ctx, r.db, code)
	if err != nil {
		return nil, err
	}

	gateways, _, err := r.loadGateways(ctx, `g.network_id = ?`, id)
	if err != nil {
		return nil, err
	}
	return gateways, nil
}

// GetGateway returns one gateway of the network with its sensors nested.
func (r *SQLiteRepository) GetGateway(ctx context.Context, code, gatewayMAC string) (*Gateway, error) {
	id, err := gatewayID(ctx, r.db, code, gatewayMAC)
	if err != nil {
		return nil, err
	}

	gateways, _, err := r.loadGateways(ctx, `g.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(gateways) == 0 {
		return nil, ErrGatewayNotFound
	}
	return &gateways[0], nil
}

// CreateGateway attaches a new gateway to the network. Nested sensors are
// ignored.
func (r *SQLiteRepository) CreateGateway(ctx context.Context, code string, g *Gateway) error {
	if err := ValidateGateway(g); err != nil {
		return err
	}

	netID, err := networkID(ctx, r.db, code)
	if err != nil {
		return err
	}

	const query = `INSERT INTO gateways (network_id, mac_address, name, description) VALUES (?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, netID, g.MACAddress, nullIfEmpty(g.Name), nullIfEmpty(g.Description)); err != nil {
		if isUniqueViolation(err) {
			return ErrGatewayExists
		}
		return fmt.Errorf("inserting gateway %s: %w", g.MACAddress, err)
	}
	return nil
}

// UpdateGateway applies a partial update to a gateway of the network.
func (r *SQLiteRepository) UpdateGateway(ctx context.Context, code, gatewayMAC string, u GatewayUpdate) error {
	newMAC, err := validOptionalIdentifier(u.MACAddress, maxMACLength, ErrInvalidMAC)
	if err != nil {
		return err
	}

	id, err := gatewayID(ctx, r.db, code, gatewayMAC)
	if err != nil {
		return err
	}

	var set updateSet
	set.text("mac_address", newMAC)
	set.nullable("name", u.Name)
	set.nullable("description", u.Description)

	if err := set.exec(ctx, r.db, "gateways", id); err != nil {
		if isUniqueViolation(err) {
			return ErrGatewayExists
		}
		return fmt.Errorf("updating gateway %s: %w", gatewayMAC, err)
	}
	return nil
}

// DeleteGateway removes a gateway of the network and its sensors.
func (r *SQLiteRepository) DeleteGateway(ctx context.Context, code, gatewayMAC string) error {
	id, err := gatewayID(ctx, r.db, code, gatewayMAC)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM gateways WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting gateway %s: %w", gatewayMAC, err)
	}
	return nil
}

// ListSensors returns the sensors of a gateway.
func (r *SQLiteRepository) ListSensors(ctx context.Context, code, gatewayMAC string) ([]Sensor, error) {
	id, err := gatewayID(ctx, r.db, code, gatewayMAC)
	if err != nil {
		return nil, err
	}

	byGateway, err := r.loadSensors(ctx, `s.gateway_id = ?`, id)
	if err != nil {
		return nil, err
	}
	if sensors := byGateway[id]; sensors != nil {
		return sensors, nil
	}
	return []Sensor{}, nil
}

// GetSensor returns one sensor of a gateway.
func (r *SQLiteRepository) GetSensor(ctx context.Context, code, gatewayMAC, sensorMAC string) (*Sensor, error) {
	id, err := sensorID(ctx, r.db, code, gatewayMAC, sensorMAC)
	if err != nil {
		return nil, err
	}

	const query = `SELECT s.mac_address, s.name, s.description, s.variable, s.unit FROM sensors s WHERE s.id = ?`
	s, err := scanSensor(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSensorNotFound
		}
		return nil, fmt.Errorf("querying sensor %s: %w", sensorMAC, err)
	}
	return &s, nil
}

// CreateSensor attaches a new sensor to a gateway.
func (r *SQLiteRepository) CreateSensor(ctx context.Context, code, gatewayMAC string, s *Sensor) error {
	if err := ValidateSensor(s); err != nil {
		return err
	}

	gwID, err := gatewayID(ctx, r.db, code, gatewayMAC)
	if err != nil {
		return err
	}

	const query = `INSERT INTO sensors (gateway_id, mac_address, name, description, variable, unit)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query, gwID, s.MACAddress,
		nullIfEmpty(s.Name), nullIfEmpty(s.Description), nullIfEmpty(s.Variable), nullIfEmpty(s.Unit))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSensorExists
		}
		return fmt.Errorf("inserting sensor %s: %w", s.MACAddress, err)
	}
	return nil
}

// UpdateSensor applies a partial update to a sensor of a gateway.
func (r *SQLiteRepository) UpdateSensor(ctx context.Context, code, gatewayMAC, sensorMAC string, u SensorUpdate) error {
	newMAC, err := validOptionalIdentifier(u.MACAddress, maxMACLength, ErrInvalidMAC)
	if err != nil {
		return err
	}

	id, err := sensorID(ctx, r.db, code, gatewayMAC, sensorMAC)
	if err != nil {
		return err
	}

	var set updateSet
	set.text("mac_address", newMAC)
	set.nullable("name", u.Name)
	set.nullable("description", u.Description)
	set.nullable("variable", u.Variable)
	set.nullable("unit", u.Unit)

	if err := set.exec(ctx, r.db, "sensors", id); err != nil {
		if isUniqueViolation(err) {
			return ErrSensorExists
		}
		return fmt.Errorf("updating sensor %s: %w", sensorMAC, err)
	}
	return nil
}

// DeleteSensor removes a sensor of a gateway and its measurements.
func (r *SQLiteRepository) DeleteSensor(ctx context.Context, code, gatewayMAC, sensorMAC string) error {
	id, err := sensorID(ctx, r.db, code, gatewayMAC, sensorMAC)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sensors WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting sensor %s: %w", sensorMAC, err)
	}
	return nil
}

// ListSensorMACsOfNetwork returns the MAC addresses of every sensor in the
// network ordered by sensor id. An unknown network is ErrNetworkNotFound.
func (r *SQLiteRepository) ListSensorMACsOfNetwork(ctx context.Context, code string) ([]string, error) {
	netID, err := networkID(ctx, r.db, code)
	if err != nil {
		return nil, err
	}

	const query = `SELECT s.mac_address FROM sensors s
		JOIN gateways g ON g.id = s.gateway_id
		WHERE g.network_id = ?
		ORDER BY s.id`
	rows, err := r.db.QueryContext(ctx, query, netID)
	if err != nil {
		return nil, fmt.Errorf("querying sensors of network %s: %w", code, err)
	}
	defer rows.Close()

	macs := []string{}
	for rows.Next() {
		var mac string
		if err := rows.Scan(&mac); err != nil {
			return nil, fmt.Errorf("scanning sensor mac: %w", err)
		}
		macs = append(macs, mac)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sensor macs: %w", err)
	}
	return macs, nil
}

// loadNetworks reads networks (all, or the one with the given code) and
// nests their gateways and sensors.
func (r *SQLiteRepository) loadNetworks(ctx context.Context, code string) ([]Network, error) {
	query := `SELECT id, code, name, description FROM networks`
	var args []any
	gatewayFilter := `1 = 1`
	if code != "" {
		query += ` WHERE code = ?`
		args = append(args, code)
		gatewayFilter = `g.network_id = (SELECT id FROM networks WHERE code = ?)`
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying networks: %w", err)
	}
	defer rows.Close()

	var (
		networks []Network
		ids      []int64
	)
	for rows.Next() {
		var (
			id                int64
			n                 Network
			name, description sql.NullString
		)
		if err := rows.Scan(&id, &n.Code, &name, &description); err != nil {
			return nil, fmt.Errorf("scanning network: %w", err)
		}
		n.Name, n.Description = name.String, description.String
		networks = append(networks, n)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating networks: %w", err)
	}
	rows.Close()

	if len(networks) == 0 {
		return []Network{}, nil
	}

	gateways, owners, err := r.loadGateways(ctx, gatewayFilter, args...)
	if err != nil {
		return nil, err
	}

	index := make(map[int64]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	for i, g := range gateways {
		if ni, ok := index[owners[i]]; ok {
			networks[ni].Gateways = append(networks[ni].Gateways, g)
		}
	}
	return networks, nil
}

// loadGateways reads the gateways matching where, with their sensors
// nested. The second result holds the owning network id of each gateway.
func (r *SQLiteRepository) loadGateways(ctx context.Context, where string, args ...any) ([]Gateway, []int64, error) {
	query := `SELECT g.id, g.network_id, g.mac_address, g.name, g.description
		FROM gateways g WHERE ` + where + ` ORDER BY g.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("querying gateways: %w", err)
	}
	defer rows.Close()

	gateways := []Gateway{}
	var ids, owners []int64
	for rows.Next() {
		var (
			id, networkID     int64
			g                 Gateway
			name, description sql.NullString
		)
		if err := rows.Scan(&id, &networkID, &g.MACAddress, &name, &description); err != nil {
			return nil, nil, fmt.Errorf("scanning gateway: %w", err)
		}
		g.Name, g.Description = name.String, description.String
		gateways = append(gateways, g)
		ids = append(ids, id)
		owners = append(owners, networkID)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating gateways: %w", err)
	}
	rows.Close()

	if len(gateways) == 0 {
		return gateways, owners, nil
	}

	sensorWhere := `s.gateway_id IN (?` + strings.Repeat(", ?", len(ids)-1) + `)`
	sensorArgs := make([]any, len(ids))
	for i, id := range ids {
		sensorArgs[i] = id
	}
	byGateway, err := r.loadSensors(ctx, sensorWhere, sensorArgs...)
	if err != nil {
		return nil, nil, err
	}
	for i, id := range ids {
		gateways[i].Sensors = byGateway[id]
	}
	return gateways, owners, nil
}

// loadSensors reads the sensors matching where, grouped by gateway id.
func (r *SQLiteRepository) loadSensors(ctx context.Context, where string, args ...any) (map[int64][]Sensor, error) {
	query := `SELECT s.gateway_id, s.mac_address, s.name, s.description, s.variable, s.unit
		FROM sensors s WHERE ` + where + ` ORDER BY s.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sensors: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]Sensor)
	for rows.Next() {
		var gatewayID int64
		var name, description, variable, unit sql.NullString
		var s Sensor
		if err := rows.Scan(&gatewayID, &s.MACAddress, &name, &description, &variable, &unit); err != nil {
			return nil, fmt.Errorf("scanning sensor: %w", err)
		}
		s.Name, s.Description, s.Variable, s.Unit = name.String, description.String, variable.String, unit.String
		out[gatewayID] = append(out[gatewayID], s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sensors: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSensor(row scanner) (Sensor, error) {
	var s Sensor
	var name, description, variable, unit sql.NullString
	if err := row.Scan(&s.MACAddress, &name, &description, &variable, &unit); err != nil {
		return Sensor{}, err
	}
	s.Name, s.Description, s.Variable, s.Unit = name.String, description.String, variable.String, unit.String
	return s, nil
}

// updateSet accumulates the SET clause of a partial update.
type updateSet struct {
	columns []string
	args    []any
}

func (u *updateSet) text(column string, v *string) {
	if v == nil {
		return
	}
	u.columns = append(u.columns, column+" = ?")
	u.args = append(u.args, *v)
}

func (u *updateSet) nullable(column string, v *string) {
	if v == nil {
		return
	}
	u.columns = append(u.columns, column+" = ?")
	u.args = append(u.args, nullIfEmpty(*v))
}

// exec runs the update against the row with the given id. An empty set is
// a no-op.
func (u *updateSet) exec(ctx context.Context, db *sql.DB, table string, id int64) error {
	if len(u.columns) == 0 {
		return nil
	}
	query := `UPDATE ` + table + ` SET ` + strings.Join(u.columns, ", ") + ` WHERE id = ?`
	_, err := db.ExecContext(ctx, query, append(u.args, id)...)
	return err
}

// nullIfEmpty stores empty strings as NULL.
func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
