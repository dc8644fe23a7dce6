package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nbekov/account-service/internal/auth"
	"github.com/nbekov/account-service/internal/domain"
	"github.com/nbekov/account-service/internal/email"
	"github.com/nbekov/account-service/internal/metrics"
	"github.com/nbekov/account-service/internal/repository"
)

type AuthUsecase struct {
	users         repository.UserRepository
	email         email.Sender
	tokens        *auth.TokenIssuer
	resetLinkBase string
	validate      *validator.Validate
}

func NewAuthUsecase(users repository.UserRepository, emailSender email.Sender, tokens *auth.TokenIssuer, resetLinkBase string) *AuthUsecase {
	return &AuthUsecase{
		users:         users,
		email:         emailSender,
		tokens:        tokens,
		resetLinkBase: resetLinkBase,
		validate:      validator.New(),
	}
}

type registerInput struct {
	Username string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// Register validates input, hashes the password, and inserts the user.
// Validation collects every failed field; uniqueness is left to the
// database constraint and surfaces as domain.ErrDuplicateUser.
func (u *AuthUsecase) Register(ctx context.Context, username, emailAddr, password string) (*domain.User, error) {
	in := registerInput{Username: username, Email: emailAddr, Password: password}
	if err := u.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("validate input: %w", err)
		}
		ve := &domain.ValidationError{}
		for _, fe := range verrs {
			field := strings.ToLower(fe.Field())
			ve.Fields = append(ve.Fields, domain.FieldError{
				Field:   field,
				Message: field + " is invalid",
			})
		}
		return nil, ve
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := u.users.Create(ctx, username, emailAddr, hash)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateUser) {
			return nil, domain.ErrDuplicateUser
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	metrics.RegistrationsTotal.Inc()
	return user, nil
}

// Login verifies the password against the stored hash and issues a
// session token carrying the user's email.
func (u *AuthUsecase) Login(ctx context.Context, emailAddr, password string) (string, *domain.User, error) {
	user, err := u.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.LoginsTotal.WithLabelValues("unknown_email").Inc()
			return "", nil, domain.ErrUserNotFound
		}
		return "", nil, fmt.Errorf("find user: %w", err)
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		metrics.LoginsTotal.WithLabelValues("bad_password").Inc()
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := u.tokens.IssueSession(user.Email)
	if err != nil {
		return "", nil, err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return token, user, nil
}

func (u *AuthUsecase) Profile(ctx context.Context, emailAddr string) (*domain.User, error) {
	return u.users.FindByEmail(ctx, emailAddr)
}

// RequestPasswordReset issues a reset token for a known email, records its
// jti so it can be consumed exactly once, and mails the reset link.
func (u *AuthUsecase) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	if _, err := u.users.FindByEmail(ctx, emailAddr); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	token, jti, expiresAt, err := u.tokens.IssueReset(emailAddr)
	if err != nil {
		return err
	}
	if err := u.users.CreateResetToken(ctx, jti, emailAddr, expiresAt); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	link := u.resetLinkBase + "/reset-password/" + token
	subject := "Password Reset"
	body := fmt.Sprintf(
		`<h1>Password Reset</h1><p>Please click the link below to reset your password (expires in 1 hour):</p><p><a href="%s">%s</a></p>`,
		link, link,
	)
	if err := u.email.Send(ctx, emailAddr, subject, body); err != nil {
		metrics.PasswordResetsTotal.WithLabelValues("delivery_failed").Inc()
		return fmt.Errorf("%w: %w", domain.ErrMailDelivery, err)
	}

	metrics.PasswordResetsTotal.WithLabelValues("requested").Inc()
	return nil
}

// ValidateResetToken checks signature and expiry without consuming the
// token. The reset form handler uses it before rendering the form.
func (u *AuthUsecase) ValidateResetToken(token string) error {
	_, _, err := u.tokens.VerifyReset(token)
	return err
}

// CompletePasswordReset consumes the reset token and overwrites the stored
// hash for the email it embeds. Claiming the jti is atomic, so resubmitting
// the same token fails with domain.ErrTokenInvalid.
func (u *AuthUsecase) CompletePasswordReset(ctx context.Context, token, newPassword, confirmPassword string) error {
	emailAddr, jti, err := u.tokens.VerifyReset(token)
	if err != nil {
		return domain.ErrTokenInvalid
	}

	if newPassword != confirmPassword {
		return domain.ErrPasswordMismatch
	}

	if _, err := u.users.ClaimResetToken(ctx, jti); err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) {
			return domain.ErrTokenInvalid
		}
		return fmt.Errorf("claim reset token: %w", err)
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := u.users.UpdatePasswordHash(ctx, emailAddr, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	metrics.PasswordResetsTotal.WithLabelValues("completed").Inc()
	return nil
}
