package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/redmonkez12/tasky/internal/database"
)

// Repository handles password reset token persistence in Postgres.
// Tokens are stored hashed; callers pass raw tokens.
type Repository struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// CreateResetToken stores a reset token for identifier (the user's email)
func (r *Repository) CreateResetToken(ctx context.Context, identifier, token string, expires time.Time) error {
	dbToken := &database.VerificationToken{
		Identifier: identifier,
		Token:      hashToken(token),
		Expires:    expires.UTC(),
	}

	_, err := r.db.NewInsert().
		Model(dbToken).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	return nil
}

// ConsumeResetToken deletes the token with the given raw value and returns
// the deleted row. Expired rows are consumed too; the caller checks expiry.
func (r *Repository) ConsumeResetToken(ctx context.Context, token string) (*ResetToken, error) {
	dbToken := new(database.VerificationToken)
	err := r.db.NewDelete().
		Model(dbToken).
		Where("vt.token = ?", hashToken(token)).
		Returning("identifier, token, expires").
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPasswordResetTokenNotFound
		}
		return nil, fmt.Errorf("failed to consume reset token: %w", err)
	}

	return &ResetToken{
		Identifier: dbToken.Identifier,
		Token:      dbToken.Token,
		Expires:    dbToken.Expires,
	}, nil
}

// DeleteExpiredResetTokens removes tokens that expired before now and
// returns how many were deleted
func (r *Repository) DeleteExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*database.VerificationToken)(nil)).
		Where("vt.expires < ?", now.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired tokens: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
