package service

import (
	"context"
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/customer-ledger/internal/auth"
	"github.com/spec-kit/customer-ledger/internal/config"
	"github.com/spec-kit/customer-ledger/internal/domain"
	apperrors "github.com/spec-kit/customer-ledger/pkg/util/errorutil"
)

func TestRegisterFirstAdminIsSuperadmin(t *testing.T) {
	h := newHarness(t)

	asha := h.register(t, "Asha", "9876543210", "secret1")
	bala := h.register(t, "Bala", "9876543211", "secret2")

	assert.Equal(t, domain.RoleSuperadmin, asha.Role)
	assert.Equal(t, domain.RoleAdmin, bala.Role)
	assert.Regexp(t, regexp.MustCompile(`^ADM-[0-9A-Z]{9}$`), asha.AdminID)
	assert.NotEqual(t, asha.AdminID, bala.AdminID)
}

func TestRegisterWithoutPromotion(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.Auth.FirstAdminIsSuperadmin = false })
	assert.Equal(t, domain.RoleAdmin, h.register(t, "Asha", "9876543210", "secret1").Role)
}

func TestRegisterWithBootstrapIdentityDoesNotPromote(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Auth.Bootstrap = config.BootstrapIdentityConfig{Phone: "root", Secret: "s3cret", AdminID: "SUP-GLOBAL-001", Name: "Global"}
	})
	assert.Equal(t, domain.RoleAdmin, h.register(t, "Asha", "9876543210", "secret1").Role)
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cases := []RegisterAdminInput{
		{Name: "", Phone: "9876543210", Secret: "x"},
		{Name: "Asha", Phone: "", Secret: "x"},
		{Name: "Asha", Phone: "9876543210", Secret: ""},
		{Name: "Asha", Phone: "5876543210", Secret: "x"},
		{Name: "Asha", Phone: "987654321", Secret: "x"},
		{Name: "Asha", Phone: "98765432100", Secret: "x"},
		{Name: "Asha", Phone: "98765abcde", Secret: "x"},
	}
	for _, in := range cases {
		_, err := h.identity.Register(ctx, in)
		requireCode(t, err, apperrors.CodeValidation)
	}
}

func TestRegisterDuplicatePhoneIsBadRequestConflict(t *testing.T) {
	h := newHarness(t)
	h.register(t, "Asha", "9876543210", "secret1")

	_, err := h.identity.Register(context.Background(), RegisterAdminInput{Name: "Other", Phone: "9876543210", Secret: "x"})
	requireCode(t, err, apperrors.CodeConflict)
	assert.Equal(t, http.StatusBadRequest, apperrors.ToDomainError(err).HTTPStatus)
}

func TestRegisterRetriesAdminIDCollision(t *testing.T) {
	cfg := testConfig()
	h := newHarness(t)
	ids := []string{"ADM-AAAAAAAAA", "ADM-AAAAAAAAA", "ADM-BBBBBBBBB"}
	identity := NewIdentityService(cfg, IdentityDependencies{
		Admins: h.admins,
		AdminIDs: func() (string, error) {
			id := ids[0]
			ids = ids[1:]
			return id, nil
		},
	})
	ctx := context.Background()

	first, err := identity.Register(ctx, RegisterAdminInput{Name: "Asha", Phone: "9876543210", Secret: "a"})
	require.NoError(t, err)
	second, err := identity.Register(ctx, RegisterAdminInput{Name: "Bala", Phone: "9876543211", Secret: "b"})
	require.NoError(t, err)

	assert.Equal(t, "ADM-AAAAAAAAA", first.AdminID)
	assert.Equal(t, "ADM-BBBBBBBBB", second.AdminID)
}

func TestRegisterGivesUpAfterRepeatedCollisions(t *testing.T) {
	h := newHarness(t)
	identity := NewIdentityService(testConfig(), IdentityDependencies{
		Admins:   h.admins,
		AdminIDs: func() (string, error) { return "ADM-SAMESAME1", nil },
	})
	ctx := context.Background()
	_, err := identity.Register(ctx, RegisterAdminInput{Name: "Asha", Phone: "9876543210", Secret: "a"})
	require.NoError(t, err)

	_, err = identity.Register(ctx, RegisterAdminInput{Name: "Bala", Phone: "9876543211", Secret: "b"})
	requireCode(t, err, apperrors.CodeInternal)
}

func TestStoredSecretIsNeverPlaintext(t *testing.T) {
	h := newHarness(t)
	asha := h.register(t, "Asha", "9876543210", "secret1")

	stored, err := h.admins.GetByAdminID(context.Background(), asha.AdminID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.NotContains(t, stored.PasswordHash, "secret1")
}

func TestAuthenticate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	asha := h.register(t, "Asha", "9876543210", "secret1")

	summary, token, err := h.identity.Authenticate(ctx, "9876543210", "secret1")
	require.NoError(t, err)
	assert.Equal(t, asha.AdminID, summary.AdminID)
	assert.Equal(t, domain.RoleSuperadmin, summary.Role)

	claims, err := h.identity.TokenManager().ParseToken(token.Value)
	require.NoError(t, err)
	assert.Equal(t, asha.AdminID, claims.AdminID)

	_, _, err = h.identity.Authenticate(ctx, "9876543210", "wrong")
	requireCode(t, err, apperrors.CodeUnauthorized)
	_, _, err = h.identity.Authenticate(ctx, "9000000000", "secret1")
	requireCode(t, err, apperrors.CodeUnauthorized)
	_, _, err = h.identity.Authenticate(ctx, "", "")
	requireCode(t, err, apperrors.CodeValidation)
}

func TestAuthenticateBootstrapIdentity(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Auth.Bootstrap = config.BootstrapIdentityConfig{Phone: "rootops", Secret: "s3cret", AdminID: "SUP-GLOBAL-001", Name: "Global"}
	})
	ctx := context.Background()

	summary, token, err := h.identity.Authenticate(ctx, "rootops", "s3cret")
	require.NoError(t, err)
	assert.True(t, summary.IsSuperadmin())
	assert.True(t, summary.Bootstrap)

	claims, err := h.identity.TokenManager().ParseToken(token.Value)
	require.NoError(t, err)
	resolved, err := h.identity.Resolve(ctx, claims.AdminID, claims.Bootstrap)
	require.NoError(t, err)
	assert.Equal(t, "SUP-GLOBAL-001", resolved.AdminID)

	count, err := h.admins.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, _, err = h.identity.Authenticate(ctx, "rootops", "guess")
	requireCode(t, err, apperrors.CodeUnauthorized)
}

func TestBootstrapIdentityDisabledByDefault(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.identity.Authenticate(context.Background(), "SUP-GLOBAL-001", "")
	requireCode(t, err, apperrors.CodeValidation)

	_, err = h.identity.Resolve(context.Background(), "SUP-GLOBAL-001", true)
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestResetPassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	asha := h.register(t, "Asha", "9876543210", "secret1")

	require.NoError(t, h.identity.ResetPassword(ctx, asha.AdminID, "secret9"))
	_, _, err := h.identity.Authenticate(ctx, "9876543210", "secret1")
	requireCode(t, err, apperrors.CodeUnauthorized)
	_, _, err = h.identity.Authenticate(ctx, "9876543210", "secret9")
	require.NoError(t, err)

	err = h.identity.ResetPassword(ctx, "ADM-UNKNOWN00", "x")
	requireCode(t, err, apperrors.CodeNotFound)
	err = h.identity.ResetPassword(ctx, "", "x")
	requireCode(t, err, apperrors.CodeValidation)
}

func TestResolveUnknownAdmin(t *testing.T) {
	h := newHarness(t)
	_, err := h.identity.Resolve(context.Background(), "ADM-NOPE00000", false)
	requireCode(t, err, apperrors.CodeNotFound)

	exists, err := h.identity.Exists(context.Background(), "ADM-NOPE00000")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGenerateAdminIDFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^ADM-[0-9A-Z]{9}$`)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := generateAdminID()
		require.NoError(t, err)
		assert.Regexp(t, pattern, id)
		seen[id] = true
	}
	assert.Len(t, seen, 100)
}

func TestTokenManagerDefaultedWhenMissing(t *testing.T) {
	h := newHarness(t)
	identity := NewIdentityService(testConfig(), IdentityDependencies{Admins: h.admins})
	assert.IsType(t, &auth.TokenManager{}, identity.TokenManager())
}
