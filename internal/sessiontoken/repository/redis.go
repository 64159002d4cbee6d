package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"transapp-auth/internal/sessiontoken/domain"
)

// DefaultKeyPrefix namespaces every key written by RedisRepository.
const DefaultKeyPrefix = "transapp"

// deleteAllScript removes the identity's token index and every token hash it lists.
// KEYS[1] is the identity index; ARGV[1] is the token key prefix.
const deleteAllScript = `
local members = redis.call("SMEMBERS", KEYS[1])
for _, h in ipairs(members) do
  redis.call("DEL", ARGV[1] .. h)
end
redis.call("DEL", KEYS[1])
return #members
`

var deleteAllLua = redis.NewScript(deleteAllScript)

// RedisRepository stores session tokens as hashes keyed by token hash, with a
// per-identity set indexing them. Callers serialize per-identity writes through
// the identity row lock, so the set and the hashes never race.
type RedisRepository struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisRepository returns a session token repository backed by rdb.
// An empty prefix uses DefaultKeyPrefix.
func NewRedisRepository(rdb redis.UniversalClient, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisRepository{rdb: rdb, prefix: prefix}
}

func (r *RedisRepository) tokenKeyPrefix() string {
	return r.prefix + ":st:hash:"
}

func (r *RedisRepository) tokenKey(tokenHash string) string {
	return r.tokenKeyPrefix() + tokenHash
}

func (r *RedisRepository) identityKey(identityID string) string {
	return r.prefix + ":st:ident:" + identityID
}

// Create writes the token hash record and indexes it under the identity in one MULTI/EXEC.
func (r *RedisRepository) Create(ctx context.Context, t *domain.SessionToken) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.tokenKey(t.TokenHash),
			"id", t.ID,
			"identity_id", t.IdentityID,
			"created_at", t.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		pipe.SAdd(ctx, r.identityKey(t.IdentityID), t.TokenHash)
		return nil
	})
	return err
}

// DeleteAllByIdentity atomically removes every token of the identity.
func (r *RedisRepository) DeleteAllByIdentity(ctx context.Context, identityID string) (int, error) {
	n, err := deleteAllLua.Run(ctx, r.rdb, []string{r.identityKey(identityID)}, r.tokenKeyPrefix()).Int()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// GetByHash returns the token for tokenHash, or nil if not found.
func (r *RedisRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.SessionToken, error) {
	fields, err := r.rdb.HGetAll(ctx, r.tokenKey(tokenHash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	created, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, err
	}
	return &domain.SessionToken{
		ID:         fields["id"],
		IdentityID: fields["identity_id"],
		TokenHash:  tokenHash,
		CreatedAt:  created,
	}, nil
}

// CountByIdentity returns the size of the identity's token index.
func (r *RedisRepository) CountByIdentity(ctx context.Context, identityID string) (int, error) {
	n, err := r.rdb.SCard(ctx, r.identityKey(identityID)).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
