package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-oms/meridian-oms/internal/auth"
	"github.com/meridian-oms/meridian-oms/internal/shared"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) Get(ctx context.Context, id int64) (*auth.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func newTestService(t *testing.T, repo auth.Repository) (*auth.Service, *auth.TokenStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tokens := auth.NewTokenStore(client, time.Hour)
	return auth.NewService(repo, tokens), tokens
}

func activeUser(t *testing.T) *auth.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	return &auth.User{
		ID:           42,
		Email:        "cashier@example.com",
		FullName:     "Cashier One",
		PasswordHash: string(hash),
		Role:         auth.RoleCashier,
		IsActive:     true,
	}
}

func TestLoginIssuesResolvableToken(t *testing.T) {
	service, tokens := newTestService(t, &stubRepo{user: activeUser(t)})
	handler := auth.NewHandler(slog.Default(), service)

	body, _ := json.Marshal(map[string]string{
		"email":    "cashier@example.com",
		"password": "s3cret-pass",
	})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	res := httptest.NewRecorder()
	handler.Login(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var out struct {
		Token string     `json:"token"`
		User  *auth.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	require.Equal(t, "cashier@example.com", out.User.Email)

	principal, err := tokens.Resolve(context.Background(), out.Token)
	require.NoError(t, err)
	require.Equal(t, int64(42), principal.UserID)
	require.Equal(t, auth.RoleCashier, principal.Role)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	service, _ := newTestService(t, &stubRepo{user: activeUser(t)})
	handler := auth.NewHandler(slog.Default(), service)

	body, _ := json.Marshal(map[string]string{
		"email":    "cashier@example.com",
		"password": "wrong-password",
	})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	res := httptest.NewRecorder()
	handler.Login(res, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	user := activeUser(t)
	user.IsActive = false
	service, _ := newTestService(t, &stubRepo{user: user})

	_, _, err := service.Login(context.Background(), user.Email, "s3cret-pass")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRequireAuthAndRole(t *testing.T) {
	service, tokens := newTestService(t, &stubRepo{user: activeUser(t)})
	token, _, err := service.Login(context.Background(), "cashier@example.com", "s3cret-pass")
	require.NoError(t, err)

	mw := auth.NewMiddleware(tokens)
	var seen *auth.Principal
	protected := mw.RequireAuth(mw.RequireRole(auth.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.PrincipalFromContext(r.Context())
	})))

	// No token at all.
	res := httptest.NewRecorder()
	protected.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/orders", nil))
	require.Equal(t, http.StatusUnauthorized, res.Code)

	// Valid token, wrong role.
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res = httptest.NewRecorder()
	protected.ServeHTTP(res, req)
	require.Equal(t, http.StatusForbidden, res.Code)
	require.Nil(t, seen)

	// Valid token, allowed role.
	allowed := mw.RequireAuth(mw.RequireRole(auth.RoleCashier, auth.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.PrincipalFromContext(r.Context())
	})))
	res = httptest.NewRecorder()
	allowed.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	require.NotNil(t, seen)
	require.Equal(t, auth.RoleCashier, seen.Role)
}

func TestLogoutRevokesToken(t *testing.T) {
	service, tokens := newTestService(t, &stubRepo{user: activeUser(t)})
	token, _, err := service.Login(context.Background(), "cashier@example.com", "s3cret-pass")
	require.NoError(t, err)

	require.NoError(t, service.Logout(context.Background(), token))
	_, err = tokens.Resolve(context.Background(), token)
	require.ErrorIs(t, err, shared.ErrTokenExpired)
}
