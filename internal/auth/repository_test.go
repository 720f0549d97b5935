package auth

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/tasky/internal/database"
)

func newMockResetRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db := database.NewBunDB(sqlDB)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewRepository(db), mock
}

func TestRepository_ResetTokenStoredHashed(t *testing.T) {
	repo, mock := newMockResetRepository(t)
	raw := "raw-reset-token"

	mock.ExpectExec(`INSERT INTO "verification_tokens" .*'ada@example.com'.*'` + hashToken(raw) + `'`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CreateResetToken(context.Background(), "ada@example.com", raw, time.Now().Add(time.Hour)))
}

func TestRepository_ConsumeResetToken(t *testing.T) {
	repo, mock := newMockResetRepository(t)
	raw := "raw-reset-token"
	expires := time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM "verification_tokens" AS "vt" WHERE (vt.token = '` + hashToken(raw) + `') RETURNING identifier, token, expires`)).
		WillReturnRows(sqlmock.NewRows([]string{"identifier", "token", "expires"}).
			AddRow("ada@example.com", hashToken(raw), expires))

	rt, err := repo.ConsumeResetToken(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", rt.Identifier)
	assert.Equal(t, hashToken(raw), rt.Token)
	assert.True(t, expires.Equal(rt.Expires))

	// a second consumer finds nothing left to delete
	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM "verification_tokens"`)).
		WillReturnRows(sqlmock.NewRows([]string{"identifier", "token", "expires"}))
	_, err = repo.ConsumeResetToken(context.Background(), raw)
	assert.ErrorIs(t, err, ErrPasswordResetTokenNotFound)
}

func TestRepository_ConsumeResetToken_StorageError(t *testing.T) {
	repo, mock := newMockResetRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM "verification_tokens"`)).
		WillReturnError(assert.AnError)

	_, err := repo.ConsumeResetToken(context.Background(), "raw")
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.NotErrorIs(t, err, ErrPasswordResetTokenNotFound)
}

func TestRepository_DeleteExpiredResetTokens(t *testing.T) {
	repo, mock := newMockResetRepository(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "verification_tokens" AS "vt" WHERE (vt.expires < `)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpiredResetTokens(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func newTestRedisRepository(t *testing.T) (*RedisRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisRepository(client), mr
}

func TestRedisRepository_StoreGetRevoke(t *testing.T) {
	repo, mr := newTestRedisRepository(t)
	ctx := context.Background()
	userID := uuid.New()
	expiresAt := time.Now().Add(time.Hour).Truncate(time.Second)

	require.NoError(t, repo.StoreRefreshToken(ctx, userID, "tok-1", expiresAt))
	assert.False(t, mr.Exists(tokenKey("tok-1")), "raw token never used as key")
	assert.True(t, mr.Exists(tokenKey(hashToken("tok-1"))))

	rt, err := repo.GetRefreshToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, userID, rt.UserID)
	assert.True(t, expiresAt.Equal(rt.ExpiresAt))
	assert.True(t, rt.IsValid(time.Now()))

	require.NoError(t, repo.RevokeRefreshToken(ctx, "tok-1"))
	rt, err = repo.GetRefreshToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, rt.IsRevoked())

	_, err = repo.GetRefreshToken(ctx, "missing")
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
	assert.ErrorIs(t, repo.RevokeRefreshToken(ctx, "missing"), ErrRefreshTokenNotFound)
}

func TestRedisRepository_RevokeAllUserTokens(t *testing.T) {
	repo, _ := newTestRedisRepository(t)
	ctx := context.Background()
	userID, other := uuid.New(), uuid.New()
	expiresAt := time.Now().Add(time.Hour)

	require.NoError(t, repo.StoreRefreshToken(ctx, userID, "a", expiresAt))
	require.NoError(t, repo.StoreRefreshToken(ctx, userID, "b", expiresAt))
	require.NoError(t, repo.StoreRefreshToken(ctx, other, "c", expiresAt))

	require.NoError(t, repo.RevokeAllUserTokens(ctx, userID))

	for _, tok := range []string{"a", "b"} {
		rt, err := repo.GetRefreshToken(ctx, tok)
		require.NoError(t, err)
		assert.True(t, rt.IsRevoked(), tok)
	}
	rt, err := repo.GetRefreshToken(ctx, "c")
	require.NoError(t, err)
	assert.False(t, rt.IsRevoked())

	assert.NoError(t, repo.RevokeAllUserTokens(ctx, uuid.New()))
}

func TestRedisRepository_RejectsPastExpiry(t *testing.T) {
	repo, _ := newTestRedisRepository(t)
	err := repo.StoreRefreshToken(context.Background(), uuid.New(), "old", time.Now().Add(-time.Second))
	assert.Error(t, err)
}
