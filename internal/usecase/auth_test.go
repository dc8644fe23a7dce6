package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nbekov/account-service/internal/auth"
	"github.com/nbekov/account-service/internal/domain"
	"github.com/nbekov/account-service/internal/usecase"
	"golang.org/x/crypto/bcrypt"
)

// ---- fakes ----

type fakeUserRepo struct {
	create             func(ctx context.Context, username, email, passwordHash string) (*domain.User, error)
	findByEmail        func(ctx context.Context, email string) (*domain.User, error)
	updatePasswordHash func(ctx context.Context, email, passwordHash string) error
	createResetToken   func(ctx context.Context, jti, email string, expiresAt time.Time) error
	claimResetToken    func(ctx context.Context, jti string) (*domain.ResetToken, error)
	purgeResetTokens   func(ctx context.Context, before time.Time) (int64, error)
}

func (r *fakeUserRepo) Create(ctx context.Context, username, email, passwordHash string) (*domain.User, error) {
	return r.create(ctx, username, email, passwordHash)
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findByEmail(ctx, email)
}

func (r *fakeUserRepo) UpdatePasswordHash(ctx context.Context, email, passwordHash string) error {
	return r.updatePasswordHash(ctx, email, passwordHash)
}

func (r *fakeUserRepo) CreateResetToken(ctx context.Context, jti, email string, expiresAt time.Time) error {
	return r.createResetToken(ctx, jti, email, expiresAt)
}

func (r *fakeUserRepo) ClaimResetToken(ctx context.Context, jti string) (*domain.ResetToken, error) {
	return r.claimResetToken(ctx, jti)
}

func (r *fakeUserRepo) PurgeResetTokens(ctx context.Context, before time.Time) (int64, error) {
	return r.purgeResetTokens(ctx, before)
}

type fakeEmailSender struct {
	send func(ctx context.Context, to, subject, body string) error
}

func (s *fakeEmailSender) Send(ctx context.Context, to, subject, body string) error {
	return s.send(ctx, to, subject, body)
}

// ---- helpers ----

const (
	testJWTKey        = "test-jwt-secret-at-least-32-chars!!"
	testResetLinkBase = "http://localhost:8080"
)

func newUsecase(repo *fakeUserRepo, sender *fakeEmailSender) *usecase.AuthUsecase {
	return usecase.NewAuthUsecase(repo, sender, auth.NewTokenIssuer([]byte(testJWTKey)), testResetLinkBase)
}

// memoryRepo wires a fakeUserRepo to a single in-memory user record, enough
// to exercise register → login → reset → login end to end.
func memoryRepo() (*fakeUserRepo, *domain.User) {
	stored := &domain.User{}
	repo := &fakeUserRepo{}
	repo.create = func(_ context.Context, username, email, hash string) (*domain.User, error) {
		if stored.Email == email {
			return nil, domain.ErrDuplicateUser
		}
		*stored = domain.User{ID: "user-1", Username: username, Email: email, PasswordHash: hash}
		return stored, nil
	}
	repo.findByEmail = func(_ context.Context, email string) (*domain.User, error) {
		if stored.Email != email {
			return nil, domain.ErrUserNotFound
		}
		return stored, nil
	}
	repo.updatePasswordHash = func(_ context.Context, email, hash string) error {
		if stored.Email != email {
			return domain.ErrUserNotFound
		}
		stored.PasswordHash = hash
		return nil
	}
	repo.createResetToken = func(_ context.Context, _, _ string, _ time.Time) error { return nil }
	repo.claimResetToken = func(_ context.Context, jti string) (*domain.ResetToken, error) {
		return &domain.ResetToken{JTI: jti, Email: stored.Email}, nil
	}
	return repo, stored
}

func discardSender() *fakeEmailSender {
	return &fakeEmailSender{send: func(_ context.Context, _, _, _ string) error { return nil }}
}

// ---- Register ----

func TestRegister_ThenLoginSucceeds(t *testing.T) {
	repo, _ := memoryRepo()
	uc := newUsecase(repo, discardSender())

	user, err := uc.Register(context.Background(), "alice", "alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.PasswordHash == "secret1" {
		t.Fatal("stored hash equals the plaintext")
	}

	token, got, err := uc.Login(context.Background(), "alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("login after register: %v", err)
	}
	if token == "" {
		t.Error("empty session token")
	}
	if got.Email != "alice@example.com" {
		t.Errorf("email = %q", got.Email)
	}
}

func TestRegister_MalformedEmail_ValidationError(t *testing.T) {
	repo, _ := memoryRepo()
	uc := newUsecase(repo, discardSender())

	_, err := uc.Register(context.Background(), "alice", "not-an-email", "secret1")

	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if len(ve.Fields) != 1 || ve.Fields[0].Field != "email" {
		t.Errorf("fields = %+v, want single email failure", ve.Fields)
	}
}

func TestRegister_EmptyUsernameAndPassword_CollectsBothFailures(t *testing.T) {
	repo, _ := memoryRepo()
	uc := newUsecase(repo, discardSender())

	_, err := uc.Register(context.Background(), "", "alice@example.com", "")

	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if len(ve.Fields) != 2 {
		t.Fatalf("fields = %+v, want both username and password failures", ve.Fields)
	}
	seen := map[string]bool{}
	for _, f := range ve.Fields {
		seen[f.Field] = true
	}
	if !seen["username"] || !seen["password"] {
		t.Errorf("fields = %+v, missing username or password", ve.Fields)
	}
}

func TestRegister_DuplicateEmail_ReturnsErrDuplicateUser(t *testing.T) {
	repo, _ := memoryRepo()
	uc := newUsecase(repo, discardSender())

	if _, err := uc.Register(context.Background(), "alice", "alice@example.com", "secret1"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := uc.Register(context.Background(), "alice2", "alice@example.com", "secret2")
	if !errors.Is(err, domain.ErrDuplicateUser) {
		t.Errorf("want ErrDuplicateUser, got %v", err)
	}
}

// ---- Login ----

func TestLogin_WrongPassword_ReturnsErrInvalidCredentials(t *testing.T) {
	repo, _ := memoryRepo()
	uc := newUsecase(repo, discardSender())

	if _, err := uc.Register(context.Background(), "alice", "alice@example.com", "secret1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, _, err := uc.Login(context.Background(), "alice@example.com", "secret2")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("want ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_UnknownEmail_ReturnsErrUserNotFound(t *testing.T) {
	repo, _ := memoryRepo()
	uc := newUsecase(repo, discardSender())

	_, _, err := uc.Login(context.Background(), "nobody@example.com", "whatever")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("want ErrUserNotFound, got %v", err)
	}
}

// ---- RequestPasswordReset ----

func TestRequestPasswordReset_UnknownEmail_NoMailSent(t *testing.T) {
	repo := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return nil, domain.ErrUserNotFound
		},
	}
	sent := false
	sender := &fakeEmailSender{
		send: func(_ context.Context, _, _, _ string) error {
			sent = true
			return nil
		},
	}

	err := newUsecase(repo, sender).RequestPasswordReset(context.Background(), "nobody@example.com")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("want ErrUserNotFound, got %v", err)
	}
	if sent {
		t.Error("mail was sent for unknown email")
	}
}

func TestRequestPasswordReset_StoresJTIOfEmailedToken(t *testing.T) {
	var storedJTI string
	var capturedBody string

	repo := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return &domain.User{ID: "user-1", Email: "alice@example.com"}, nil
		},
		createResetToken: func(_ context.Context, jti, _ string, _ time.Time) error {
			storedJTI = jti
			return nil
		},
	}
	sender := &fakeEmailSender{
		send: func(_ context.Context, _, _, body string) error {
			capturedBody = body
			return nil
		},
	}

	uc := newUsecase(repo, sender)
	if err := uc.RequestPasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Pull the raw token out of the link embedded in the email body.
	idx := strings.Index(capturedBody, "/reset-password/")
	if idx == -1 {
		t.Fatal("email body does not contain the reset link")
	}
	rawToken := strings.SplitN(capturedBody[idx+len("/reset-password/"):], `"`, 2)[0]

	issuer := auth.NewTokenIssuer([]byte(testJWTKey))
	email, jti, err := issuer.VerifyReset(rawToken)
	if err != nil {
		t.Fatalf("emailed token does not verify: %v", err)
	}
	if email != "alice@example.com" {
		t.Errorf("token email = %q", email)
	}
	if jti != storedJTI {
		t.Errorf("token jti %q != stored jti %q", jti, storedJTI)
	}
}

func TestRequestPasswordReset_SenderFailure_ReturnsErrMailDelivery(t *testing.T) {
	repo := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return &domain.User{ID: "user-1", Email: "alice@example.com"}, nil
		},
		createResetToken: func(_ context.Context, _, _ string, _ time.Time) error { return nil },
	}
	sender := &fakeEmailSender{
		send: func(_ context.Context, _, _, _ string) error {
			return errors.New("smtp unavailable")
		},
	}

	err := newUsecase(repo, sender).RequestPasswordReset(context.Background(), "alice@example.com")
	if !errors.Is(err, domain.ErrMailDelivery) {
		t.Errorf("want ErrMailDelivery, got %v", err)
	}
}

// ---- CompletePasswordReset ----

func issueResetToken(t *testing.T, email string) string {
	t.Helper()
	token, _, _, err := auth.NewTokenIssuer([]byte(testJWTKey)).IssueReset(email)
	if err != nil {
		t.Fatalf("issue reset token: %v", err)
	}
	return token
}

func TestCompletePasswordReset_MismatchedConfirmation(t *testing.T) {
	claimed := false
	repo := &fakeUserRepo{
		claimResetToken: func(_ context.Context, jti string) (*domain.ResetToken, error) {
			claimed = true
			return &domain.ResetToken{JTI: jti}, nil
		},
	}
	uc := newUsecase(repo, discardSender())

	token := issueResetToken(t, "alice@example.com")
	err := uc.CompletePasswordReset(context.Background(), token, "newpass1", "newpass2")
	if !errors.Is(err, domain.ErrPasswordMismatch) {
		t.Errorf("want ErrPasswordMismatch, got %v", err)
	}
	if claimed {
		t.Error("token was consumed despite mismatched confirmation")
	}
}

func TestCompletePasswordReset_ExpiredToken(t *testing.T) {
	repo := &fakeUserRepo{}
	uc := newUsecase(repo, discardSender())

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": "alice@example.com",
		"jti":   "some-jti",
		"iat":   time.Now().Add(-2 * time.Hour).Unix(),
		"exp":   time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte(testJWTKey))
	if err != nil {
		t.Fatalf("sign jwt: %v", err)
	}

	if err := uc.CompletePasswordReset(context.Background(), expired, "newpass", "newpass"); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("want ErrTokenInvalid, got %v", err)
	}
}

func TestCompletePasswordReset_ReplayedToken(t *testing.T) {
	repo := &fakeUserRepo{
		claimResetToken: func(_ context.Context, _ string) (*domain.ResetToken, error) {
			return nil, domain.ErrTokenInvalid
		},
	}
	uc := newUsecase(repo, discardSender())

	token := issueResetToken(t, "alice@example.com")
	err := uc.CompletePasswordReset(context.Background(), token, "newpass", "newpass")
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("want ErrTokenInvalid, got %v", err)
	}
}

func TestCompletePasswordReset_UpdatesHashSoNewPasswordLogsIn(t *testing.T) {
	repo, stored := memoryRepo()
	uc := newUsecase(repo, discardSender())

	if _, err := uc.Register(context.Background(), "alice", "alice@example.com", "old-password"); err != nil {
		t.Fatalf("register: %v", err)
	}
	oldHash := stored.PasswordHash

	token := issueResetToken(t, "alice@example.com")
	if err := uc.CompletePasswordReset(context.Background(), token, "new-password", "new-password"); err != nil {
		t.Fatalf("complete reset: %v", err)
	}

	if stored.PasswordHash == oldHash {
		t.Fatal("stored hash unchanged after reset")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("new-password")); err != nil {
		t.Errorf("new hash does not verify the new password: %v", err)
	}

	if _, _, err := uc.Login(context.Background(), "alice@example.com", "new-password"); err != nil {
		t.Errorf("login with new password: %v", err)
	}
	if _, _, err := uc.Login(context.Background(), "alice@example.com", "old-password"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("login with old password: want ErrInvalidCredentials, got %v", err)
	}
}
