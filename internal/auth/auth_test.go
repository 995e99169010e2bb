package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/customer-ledger/internal/config"
	"github.com/spec-kit/customer-ledger/internal/domain"
	apperrors "github.com/spec-kit/customer-ledger/pkg/util/errorutil"
)

type stubResolver struct {
	admins map[string]*domain.AdminSummary
}

func (s stubResolver) Resolve(_ context.Context, adminID string, _ bool) (*domain.AdminSummary, error) {
	if admin, ok := s.admins[adminID]; ok {
		return admin, nil
	}
	return nil, apperrors.NewNotFound("admin", nil)
}

func TestPasswordHashNeverEqualsPlaintext(t *testing.T) {
	hash, err := HashPassword("secret1", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.NoError(t, ComparePassword(hash, "secret1"))
	assert.Error(t, ComparePassword(hash, "secret2"))
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 5)
	token, err := tm.GenerateToken(&domain.AdminSummary{AdminID: "ADM-A", Role: domain.RoleSuperadmin})
	require.NoError(t, err)

	claims, err := tm.ParseToken(token.Value)
	require.NoError(t, err)
	assert.Equal(t, "ADM-A", claims.AdminID)
	assert.Equal(t, domain.RoleSuperadmin, claims.Role)

	_, err = NewTokenManager("other-secret", 5).ParseToken(token.Value)
	assert.Error(t, err)
}

func TestBootstrapIdentity(t *testing.T) {
	assert.Nil(t, NewBootstrapIdentity(config.BootstrapIdentityConfig{Phone: "root"}))

	b := NewBootstrapIdentity(config.BootstrapIdentityConfig{Phone: "root", Secret: "s3cret", AdminID: "SUP-GLOBAL-001", Name: "Global"})
	require.NotNil(t, b)
	assert.True(t, b.Matches("root", "s3cret"))
	assert.False(t, b.Matches("root", "wrong"))
	assert.False(t, b.Matches("other", "s3cret"))
	assert.True(t, b.Is("SUP-GLOBAL-001"))

	summary := b.Summary()
	assert.True(t, summary.IsSuperadmin())
	assert.True(t, summary.Bootstrap)

	var disabled *BootstrapIdentity
	assert.False(t, disabled.Matches("", ""))
}

func newTestApp(tm *TokenManager, resolver PrincipalResolver) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
	}})
	mw := NewAuthMiddleware(tm, resolver)
	app.Get("/me", mw.Handle, RequireAdmin(), func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		return c.SendString(principal.AdminID)
	})
	app.Get("/root", mw.Handle, RequireSuperadmin(), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager("test-secret", 5)
	resolver := stubResolver{admins: map[string]*domain.AdminSummary{
		"ADM-A": {AdminID: "ADM-A", Role: domain.RoleAdmin},
		"ADM-S": {AdminID: "ADM-S", Role: domain.RoleSuperadmin},
	}}
	app := newTestApp(tm, resolver)

	bearer := func(adminID string, role domain.Role) string {
		token, err := tm.GenerateToken(&domain.AdminSummary{AdminID: adminID, Role: role})
		require.NoError(t, err)
		return "Bearer " + token.Value
	}

	cases := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"missing header", "/me", "", http.StatusUnauthorized},
		{"malformed header", "/me", "Token abc", http.StatusUnauthorized},
		{"bad token", "/me", "Bearer abc", http.StatusUnauthorized},
		{"unknown admin", "/me", bearer("ADM-X", domain.RoleAdmin), http.StatusUnauthorized},
		{"admin ok", "/me", bearer("ADM-A", domain.RoleAdmin), http.StatusOK},
		{"admin not superadmin", "/root", bearer("ADM-A", domain.RoleAdmin), http.StatusForbidden},
		{"superadmin ok", "/root", bearer("ADM-S", domain.RoleSuperadmin), http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
