package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the users table row
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           uuid.UUID `bun:"id,pk,type:uuid"`
	Name         *string   `bun:"name"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash *string   `bun:"password_hash"`
	Image        *string   `bun:"image"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

// Task is the tasks table row
type Task struct {
	bun.BaseModel `bun:"table:tasks,alias:t"`

	ID          uuid.UUID  `bun:"id,pk,type:uuid"`
	Title       string     `bun:"title,notnull"`
	Description *string    `bun:"description"`
	Status      string     `bun:"status,notnull"`
	Priority    string     `bun:"priority,notnull"`
	DueDate     *time.Time `bun:"due_date"`
	UserID      uuid.UUID  `bun:"user_id,type:uuid,notnull"`
	CreatedAt   time.Time  `bun:"created_at,notnull"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull"`
}

// VerificationToken is a single-use password reset token keyed by (identifier, token).
// Only the SHA-256 hash of the token is stored.
type VerificationToken struct {
	bun.BaseModel `bun:"table:verification_tokens,alias:vt"`

	Identifier string    `bun:"identifier,pk"`
	Token      string    `bun:"token,pk"`
	Expires    time.Time `bun:"expires,notnull"`
}
