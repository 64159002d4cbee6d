package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	auditrepo "transapp-auth/internal/audit/repository"
	"transapp-auth/internal/db"
	devicerepo "transapp-auth/internal/device/repository"
	identityrepo "transapp-auth/internal/identity/repository"
	registryrepo "transapp-auth/internal/registry/repository"
	rolerepo "transapp-auth/internal/role/repository"
	sessiontokenrepo "transapp-auth/internal/sessiontoken/repository"
)

// PostgresStore runs every unit of work in a pgx transaction. Session tokens
// live in Postgres unless a separate token repository is supplied.
type PostgresStore struct {
	pool   *pgxpool.Pool
	tokens sessiontokenrepo.Repository
	audit  *auditrepo.PostgresRepository
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithSessionTokens stores session tokens in repo instead of the session_tokens table.
func WithSessionTokens(repo sessiontokenrepo.Repository) PostgresOption {
	return func(s *PostgresStore) { s.tokens = repo }
}

// NewPostgresStore returns a store backed by pool.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{pool: pool, audit: auditrepo.NewPostgresRepository(pool)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithTx runs fn inside a single Postgres transaction.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return db.WithTx(ctx, s.pool, func(pgxTx pgx.Tx) error {
		return fn(ctx, &postgresTx{tx: pgxTx, tokens: s.tokens})
	})
}

// Audit returns the pool-bound audit repository.
func (s *PostgresStore) Audit() auditrepo.Repository {
	return s.audit
}

type postgresTx struct {
	tx     pgx.Tx
	tokens sessiontokenrepo.Repository
}

func (t *postgresTx) Identities() identityrepo.Repository {
	return identityrepo.NewPostgresRepository(t.tx)
}

func (t *postgresTx) Devices() devicerepo.Repository {
	return devicerepo.NewPostgresRepository(t.tx)
}

func (t *postgresTx) SessionTokens() sessiontokenrepo.Repository {
	if t.tokens != nil {
		return t.tokens
	}
	return sessiontokenrepo.NewPostgresRepository(t.tx)
}

func (t *postgresTx) Roles() rolerepo.Repository {
	return rolerepo.NewPostgresRepository(t.tx)
}

func (t *postgresTx) Registry() registryrepo.Repository {
	return registryrepo.NewPostgresRepository(t.tx)
}
