package domain

import (
	"time"
)

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string // bcrypt output, never the plaintext

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ResetToken tracks a single-use password reset credential. The JWT itself
// is never stored; only its jti, so a token can be claimed exactly once.
type ResetToken struct {
	JTI       string
	Email     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
