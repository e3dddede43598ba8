package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/dept-records-api/internal/models"
	"github.com/noah-isme/dept-records-api/pkg/config"
	appErrors "github.com/noah-isme/dept-records-api/pkg/errors"
)

type stubUsers struct {
	byEmail map[string]*models.User
	byID    map[string]*models.User
	tokens  map[string]*models.RefreshToken
	revoked []string
	logs    []*models.AuditLog
}

func (s *stubUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	if user, ok := s.byID[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubUsers) UpdateLastLogin(_ context.Context, _ string, _ time.Time) error { return nil }

func (s *stubUsers) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	if s.tokens == nil {
		s.tokens = make(map[string]*models.RefreshToken)
	}
	token.ID = "rt-" + token.Token[:8]
	s.tokens[token.Token] = token
	return nil
}

func (s *stubUsers) FindRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	if stored, ok := s.tokens[token]; ok {
		return stored, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubUsers) RevokeRefreshToken(_ context.Context, id string, _ time.Time) error {
	s.revoked = append(s.revoked, id)
	return nil
}

func (s *stubUsers) RevokeUserRefreshTokens(_ context.Context, _ string) error { return nil }

func (s *stubUsers) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	s.logs = append(s.logs, log)
	return nil
}

func newAuthForTest(t *testing.T) (*AuthService, *stubUsers) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		ID:           "user-1",
		Email:        "admin@dept.edu",
		PasswordHash: string(hash),
		FullName:     "Department Admin",
		Role:         models.RoleAdmin,
		Active:       true,
	}
	users := &stubUsers{
		byEmail: map[string]*models.User{user.Email: user},
		byID:    map[string]*models.User{user.ID: user},
	}
	cfg := config.JWTConfig{
		Secret:            "unit-test-secret",
		Expiration:        time.Hour,
		RefreshExpiration: 24 * time.Hour,
	}
	return NewAuthService(users, cfg, zap.NewNop()), users
}

func TestAuthLoginIssuesValidAccessToken(t *testing.T) {
	svc, users := newAuthForTest(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@dept.edu",
		Password: "correct horse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, models.RoleAdmin, resp.User.Role)
	require.Len(t, users.logs, 1)
	require.Equal(t, models.AuditActionLogin, users.logs[0].Action)

	claims, err := svc.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, models.RoleAdmin, claims.Role)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthForTest(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@dept.edu",
		Password: "wrong",
	})
	require.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthLoginUnknownUser(t *testing.T) {
	svc, _ := newAuthForTest(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "ghost@dept.edu",
		Password: "whatever",
	})
	require.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthRefreshRotatesToken(t *testing.T) {
	svc, users := newAuthForTest(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@dept.edu",
		Password: "correct horse",
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	require.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	require.Len(t, users.revoked, 1)
}

func TestAuthValidateRejectsTamperedToken(t *testing.T) {
	svc, _ := newAuthForTest(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@dept.edu",
		Password: "correct horse",
	})
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(login.AccessToken + "x")
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
