package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/arkisys/registrar-api/internal/models"
	appErrors "github.com/arkisys/registrar-api/pkg/errors"
)

type mockUserRepo struct {
	users      map[string]models.User
	lastLogins map[string]time.Time
	passwords  map[string]string
	logs       []models.AuditLog
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users:      make(map[string]models.User),
		lastLogins: make(map[string]time.Time),
		passwords:  make(map[string]string),
	}
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogins[id] = ts
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.passwords[id] = passwordHash
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

func testAuthService(repo *mockUserRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "registrar-api",
	})
}

func seedUser(repo *mockUserRepo, password string, active bool) {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	repo.users["u1"] = models.User{
		ID:           "u1",
		Email:        "ana@school.edu.ph",
		PasswordHash: string(hash),
		FirstName:    "Ana",
		LastName:     "Cruz",
		Role:         models.RoleRegistrar,
		Active:       active,
	}
}

func TestAuthServiceLogin(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(repo, "s3cret", true)
	svc := testAuthService(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@school.edu.ph", Password: "s3cret"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "Ana", resp.User.FirstName)
	assert.Contains(t, repo.lastLogins, "u1")
	require.Len(t, repo.logs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.logs[0].Action)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleRegistrar, claims.Role)
	assert.Equal(t, "Ana Cruz", claims.DisplayName())
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(repo, "s3cret", true)
	svc := testAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@school.edu.ph", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(repo, "s3cret", false)
	svc := testAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@school.edu.ph", Password: "s3cret"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc := testAuthService(newMockUserRepo())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@school.edu.ph", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(repo, "s3cret", true)
	svc := testAuthService(repo)

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		OldPassword: "s3cret",
		NewPassword: "n3wpass",
	})
	require.NoError(t, err)
	assert.Contains(t, repo.passwords, "u1")
}

func TestAuthServiceChangePasswordWrongOld(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(repo, "s3cret", true)
	svc := testAuthService(repo)

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "n3wpass",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc := testAuthService(newMockUserRepo())

	_, err := svc.ValidateToken("garbage.token.value")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
