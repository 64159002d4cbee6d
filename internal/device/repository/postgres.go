package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"transapp-auth/internal/db"
	"transapp-auth/internal/device/domain"
)

const deviceColumns = `id, identity_id, name, fingerprint, push_address, created_at, updated_at`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a device repository that uses the given pool or transaction.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByIdentityNameFingerprint returns the device matching all three fields, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByIdentityNameFingerprint(ctx context.Context, identityID, name, fingerprint string) (*domain.Device, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+deviceColumns+` FROM devices
		WHERE identity_id = $1 AND name = $2 AND fingerprint = $3
		ORDER BY created_at LIMIT 1
	`, identityID, name, fingerprint)
	return scanOne(row)
}

// CountByIdentity returns the number of devices registered to the identity.
func (r *PostgresRepository) CountByIdentity(ctx context.Context, identityID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM devices WHERE identity_id = $1`, identityID).Scan(&n)
	return n, err
}

// ListByIdentity returns all devices of the identity, oldest first.
func (r *PostgresRepository) ListByIdentity(ctx context.Context, identityID string) ([]*domain.Device, error) {
	rows, err := r.db.Query(ctx, `SELECT `+deviceColumns+` FROM devices WHERE identity_id = $1 ORDER BY created_at`, identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Device
	for rows.Next() {
		var d domain.Device
		if err := rows.Scan(&d.ID, &d.IdentityID, &d.Name, &d.Fingerprint, &d.PushAddress, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// Latest returns the most recently updated device, or nil when the identity has none.
func (r *PostgresRepository) Latest(ctx context.Context, identityID string) (*domain.Device, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+deviceColumns+` FROM devices
		WHERE identity_id = $1
		ORDER BY updated_at DESC, created_at DESC LIMIT 1
	`, identityID)
	return scanOne(row)
}

// Create persists the device. The device must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, d *domain.Device) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO devices (`+deviceColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, d.ID, d.IdentityID, d.Name, d.Fingerprint, d.PushAddress, d.CreatedAt, d.UpdatedAt)
	return err
}

// UpdatePushAddress overwrites the push address of the device.
func (r *PostgresRepository) UpdatePushAddress(ctx context.Context, id, pushAddress string, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE devices SET push_address = $2, updated_at = $3 WHERE id = $1`, id, pushAddress, at)
	return err
}

// Delete removes the device row.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM devices WHERE id = $1`, id)
	return err
}

func scanOne(row pgx.Row) (*domain.Device, error) {
	var d domain.Device
	err := row.Scan(&d.ID, &d.IdentityID, &d.Name, &d.Fingerprint, &d.PushAddress, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
