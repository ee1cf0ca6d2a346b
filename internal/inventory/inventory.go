// Package inventory reads instance addresses from the fleet record store.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB defines the database operations used by Store.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store looks up fleet_instances rows.
type Store struct {
	db DB
}

// NewStore creates a new Store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// AddressForService returns the most recently updated non-empty address
// recorded for serviceID. found is false when the fleet has no row for it.
func (s *Store) AddressForService(ctx context.Context, serviceID int) (string, bool, error) {
	var raw string
	err := s.db.QueryRow(ctx,
		`SELECT ip_address FROM fleet_instances
		 WHERE service_id = $1 AND ip_address IS NOT NULL AND ip_address <> ''
		 ORDER BY updated_at DESC
		 LIMIT 1`, serviceID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup address for service %d: %w", serviceID, err)
	}

	addr := NormalizeAddress(raw)
	if addr == "" {
		return "", false, nil
	}
	return addr, true, nil
}

// UpsertAddress records the address for a service. provisionctl seed uses it
// to fill the fleet table by hand when the billing payload omits the IP.
func (s *Store) UpsertAddress(ctx context.Context, serviceID int, address string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO fleet_instances (service_id, ip_address, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (service_id) DO UPDATE SET ip_address = EXCLUDED.ip_address, updated_at = now()`,
		serviceID, NormalizeAddress(address))
	if err != nil {
		return fmt.Errorf("upsert address for service %d: %w", serviceID, err)
	}
	return nil
}

// NormalizeAddress trims whitespace and strips a CIDR prefix length.
func NormalizeAddress(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if ip, _, err := net.ParseCIDR(s); err == nil {
		return ip.String()
	}
	return s
}
