package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"transapp-auth/internal/db"
	"transapp-auth/internal/identity/domain"
)

const identityColumns = `id, external_id, password_hash, identity_token, active,
	name, email, nickname, license_no, car_no, prefix, boss_name, company_name, telephone, fax,
	created_at, updated_at`

// PostgresRepository persists identities in the identities table.
type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an identity repository that uses the given pool or transaction.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByID returns the identity for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	return r.getOne(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
}

// GetByExternalID returns the identity with the given external id, active or not.
func (r *PostgresRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Identity, error) {
	return r.getOne(ctx, `SELECT `+identityColumns+` FROM identities WHERE external_id = $1`, externalID)
}

// GetActiveByExternalID returns the active identity with the given external id, or nil.
func (r *PostgresRepository) GetActiveByExternalID(ctx context.Context, externalID string) (*domain.Identity, error) {
	return r.getOne(ctx, `SELECT `+identityColumns+` FROM identities WHERE external_id = $1 AND active`, externalID)
}

// GetActiveByIdentityToken returns the active identity holding token, or nil.
func (r *PostgresRepository) GetActiveByIdentityToken(ctx context.Context, token string) (*domain.Identity, error) {
	return r.getOne(ctx, `SELECT `+identityColumns+` FROM identities WHERE identity_token = $1 AND active`, token)
}

// LockByID selects the identity FOR UPDATE. Only meaningful inside a transaction.
func (r *PostgresRepository) LockByID(ctx context.Context, id string) (*domain.Identity, error) {
	return r.getOne(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1 FOR UPDATE`, id)
}

// CountByCarNo returns how many identities carry carNo.
func (r *PostgresRepository) CountByCarNo(ctx context.Context, carNo string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM identities WHERE car_no = $1`, carNo).Scan(&n)
	return n, err
}

// Create inserts the identity. Returns ErrDuplicateExternalID on a uniqueness conflict.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Identity) error {
	p := i.Profile
	_, err := r.db.Exec(ctx, `
		INSERT INTO identities (`+identityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, i.ID, i.ExternalID, i.PasswordHash, i.IdentityToken, i.Active,
		p.Name, p.Email, p.Nickname, p.LicenseNo, p.CarNo, p.Prefix, p.BossName, p.CompanyName, p.Telephone, p.Fax,
		i.CreatedAt, i.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateExternalID
	}
	return err
}

// UpdatePasswordHash replaces the stored password hash.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE identities SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, hash, at)
	return err
}

// UpdateProfile overwrites all profile columns with p.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, p domain.Profile, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE identities SET
			name = $2, email = $3, nickname = $4, license_no = $5, car_no = $6, prefix = $7,
			boss_name = $8, company_name = $9, telephone = $10, fax = $11, updated_at = $12
		WHERE id = $1
	`, id, p.Name, p.Email, p.Nickname, p.LicenseNo, p.CarNo, p.Prefix, p.BossName, p.CompanyName, p.Telephone, p.Fax, at)
	return err
}

// SetActive soft-enables or soft-disables the identity.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE identities SET active = $2, updated_at = $3 WHERE id = $1`, id, active, at)
	return err
}

// Delete hard-deletes the identity; devices, session tokens, and role assignments cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	return err
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*domain.Identity, error) {
	var i domain.Identity
	p := &i.Profile
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&i.ID, &i.ExternalID, &i.PasswordHash, &i.IdentityToken, &i.Active,
		&p.Name, &p.Email, &p.Nickname, &p.LicenseNo, &p.CarNo, &p.Prefix, &p.BossName, &p.CompanyName, &p.Telephone, &p.Fax,
		&i.CreatedAt, &i.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &i, nil
}
