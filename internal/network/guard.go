package network

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Guard checks that a network, gateway or sensor path exists. It reports
// the first missing level with the matching not-found error.
type Guard struct {
	db querier
}

// NewGuard creates a Guard backed by the given database.
func NewGuard(db *sql.DB) *Guard {
	return &Guard{db: db}
}

// EnsureNetwork returns ErrNetworkNotFound if the network does not exist.
func (g *Guard) EnsureNetwork(ctx context.Context, code string) error {
	_, err := networkID(ctx, g.db, code)
	return err
}

// EnsureGateway also requires the gateway to belong to the network.
func (g *Guard) EnsureGateway(ctx context.Context, code, gatewayMAC string) error {
	_, err := gatewayID(ctx, g.db, code, gatewayMAC)
	return err
}

// EnsureSensor also requires the sensor to belong to the gateway.
func (g *Guard) EnsureSensor(ctx context.Context, code, gatewayMAC, sensorMAC string) error {
	_, err := sensorID(ctx, g.db, code, gatewayMAC, sensorMAC)
	return err
}

func networkID(ctx context.Context, q querier, code string) (int64, error) {
	return lookupID(ctx, q, ErrNetworkNotFound,
		`SELECT id FROM networks WHERE code = ?`, code)
}

func gatewayID(ctx context.Context, q querier, code, gatewayMAC string) (int64, error) {
	netID, err := networkID(ctx, q, code)
	if err != nil {
		return 0, err
	}
	return lookupID(ctx, q, ErrGatewayNotFound,
		`SELECT id FROM gateways WHERE network_id = ? AND mac_address = ?`, netID, gatewayMAC)
}

func sensorID(ctx context.Context, q querier, code, gatewayMAC, sensorMAC string) (int64, error) {
	gwID, err := gatewayID(ctx, q, code, gatewayMAC)
	if err != nil {
		return 0, err
	}
	return lookupID(ctx, q, ErrSensorNotFound,
		`SELECT id FROM sensors WHERE gateway_id = ? AND mac_address = ?`, gwID, sensorMAC)
}

func lookupID(ctx context.Context, q querier, notFound error, query string, args ...any) (int64, error) {
	var id int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, notFound
		}
		return 0, fmt.Errorf("resolving %v: %w", args[len(args)-1], err)
	}
	return id, nil
}
