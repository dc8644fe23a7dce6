package repository

import (
	"context"
	"time"

	"github.com/nbekov/account-service/internal/domain"
)

type UserRepository interface {
	// Create inserts a new user. A unique-constraint violation on email or
	// username is returned as domain.ErrDuplicateUser.
	Create(ctx context.Context, username, email, passwordHash string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, email, passwordHash string) error

	CreateResetToken(ctx context.Context, jti, email string, expiresAt time.Time) error
	// ClaimResetToken marks the token used if it is unclaimed and unexpired.
	// Any other state returns domain.ErrTokenInvalid.
	ClaimResetToken(ctx context.Context, jti string) (*domain.ResetToken, error)
	PurgeResetTokens(ctx context.Context, before time.Time) (int64, error)
}
