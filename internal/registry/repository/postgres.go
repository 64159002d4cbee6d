package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"transapp-auth/internal/db"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a registry repository that uses the given pool or transaction.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Get reads the setting. It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) Get(ctx context.Context, section, key string) (string, bool, error) {
	var v string
	err := r.db.QueryRow(ctx, `SELECT value FROM registry_settings WHERE section = $1 AND key = $2`, section, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set upserts the setting.
func (r *PostgresRepository) Set(ctx context.Context, section, key, value string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO registry_settings (section, key, value, updated_at) VALUES ($1, $2, $3, NOW())
		ON CONFLICT (section, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, section, key, value)
	return err
}
