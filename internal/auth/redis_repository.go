package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Key layout:
//
//	refresh:<sha256>        hash of refreshRecord, expires with the token
//	refresh:user:<user id>  set of token hashes issued to the user
const (
	refreshKeyPrefix     = "refresh:"
	refreshUserKeyPrefix = "refresh:user:"
)

// refreshRecord is the Redis hash stored per refresh token
type refreshRecord struct {
	UserID    string `redis:"user_id"`
	ExpiresAt int64  `redis:"expires_at"`
	CreatedAt int64  `redis:"created_at"`
	RevokedAt int64  `redis:"revoked_at"`
}

// revokeScript stamps revoked_at on an existing token hash without touching
// its TTL. Returns 0 when the token is unknown or already expired.
var revokeScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
local revoked = redis.call("HGET", KEYS[1], "revoked_at")
if not revoked or revoked == "0" then
	redis.call("HSET", KEYS[1], "revoked_at", ARGV[1])
end
return 1
`)

// RedisRepository keeps refresh tokens in Redis, keyed by their SHA-256 hash
type RedisRepository struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client, now: time.Now}
}

func tokenKey(tokenHash string) string   { return refreshKeyPrefix + tokenHash }
func userTokensKey(id uuid.UUID) string { return refreshUserKeyPrefix + id.String() }

func (r *RedisRepository) StoreRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	now := r.now()
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		return errors.New("refresh token already expired")
	}

	h := hashToken(token)
	rec := refreshRecord{
		UserID:    userID.String(),
		ExpiresAt: expiresAt.Unix(),
		CreatedAt: now.Unix(),
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, tokenKey(h), rec)
		pipe.Expire(ctx, tokenKey(h), ttl)
		// every token shares one lifetime, so the newest one bounds the set
		pipe.SAdd(ctx, userTokensKey(userID), h)
		pipe.Expire(ctx, userTokensKey(userID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken looks a token up by its raw value. Revoked tokens are
// returned with RevokedAt set so callers can detect reuse.
func (r *RedisRepository) GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error) {
	h := hashToken(token)

	res := r.client.HGetAll(ctx, tokenKey(h))
	fields, err := res.Result()
	if err != nil {
		return nil, fmt.Errorf("load refresh token: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrRefreshTokenNotFound
	}

	var rec refreshRecord
	if err := res.Scan(&rec); err != nil {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(rec.UserID)
	if err != nil || rec.ExpiresAt == 0 {
		return nil, ErrInvalidToken
	}

	rt := &RefreshToken{
		UserID:    userID,
		TokenHash: h,
		ExpiresAt: time.Unix(rec.ExpiresAt, 0),
		CreatedAt: time.Unix(rec.CreatedAt, 0),
	}
	if rec.RevokedAt != 0 {
		revokedAt := time.Unix(rec.RevokedAt, 0)
		rt.RevokedAt = &revokedAt
	}
	return rt, nil
}

func (r *RedisRepository) RevokeRefreshToken(ctx context.Context, token string) error {
	found, err := revokeScript.Run(ctx, r.client, []string{tokenKey(hashToken(token))}, r.now().Unix()).Int()
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if found == 0 {
		return ErrRefreshTokenNotFound
	}
	return nil
}

// RevokeAllUserTokens revokes every live refresh token issued to userID
func (r *RedisRepository) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	hashes, err := r.client.SMembers(ctx, userTokensKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list user refresh tokens: %w", err)
	}
	if len(hashes) == 0 {
		return nil
	}

	revokedAt := r.now().Unix()
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, h := range hashes {
			revokeScript.Eval(ctx, pipe, []string{tokenKey(h)}, revokedAt)
		}
		pipe.Del(ctx, userTokensKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}
