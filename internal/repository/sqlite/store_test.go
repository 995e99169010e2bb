package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/customer-ledger/internal/domain"
	"github.com/spec-kit/customer-ledger/internal/repository"
)

func openTestDB(t *testing.T) (*AdminStore, *CustomerStore) {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewAdminStore(db), NewCustomerStore(db)
}

func TestAdminStoreCreateAndList(t *testing.T) {
	ctx := context.Background()
	admins, _ := openTestDB(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	first := &domain.Admin{AdminID: "ADM-A", Name: "Asha", Phone: "9876543210", PasswordHash: "h", Role: domain.RoleAdmin, CreatedAt: base, UpdatedAt: base}
	require.NoError(t, admins.Create(ctx, first, true))
	assert.Equal(t, domain.RoleSuperadmin, first.Role)
	assert.NotEmpty(t, first.ID)

	second := &domain.Admin{AdminID: "ADM-B", Name: "Bala", Phone: "9876543211", PasswordHash: "h", Role: domain.RoleAdmin, CreatedAt: base.Add(time.Hour), UpdatedAt: base}
	require.NoError(t, admins.Create(ctx, second, true))
	assert.Equal(t, domain.RoleAdmin, second.Role)

	dup := &domain.Admin{AdminID: "ADM-C", Name: "X", Phone: "9876543211", PasswordHash: "h", Role: domain.RoleAdmin, CreatedAt: base, UpdatedAt: base}
	assert.ErrorIs(t, admins.Create(ctx, dup, true), repository.ErrPhoneTaken)

	exclude := domain.RoleSuperadmin
	listed, err := admins.List(ctx, repository.AdminFilter{ExcludeRole: &exclude})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "ADM-B", listed[0].AdminID)

	require.NoError(t, admins.UpdatePassword(ctx, "ADM-B", "h2", base))
	got, err := admins.GetByPhone(ctx, "9876543211")
	require.NoError(t, err)
	assert.Equal(t, "h2", got.PasswordHash)

	assert.ErrorIs(t, admins.UpdatePassword(ctx, "ADM-Z", "h", base), repository.ErrNotFound)
}

func TestCustomerStoreMergeAndAdjust(t *testing.T) {
	ctx := context.Background()
	_, customers := openTestDB(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	c := &domain.Customer{ID: "c1", Name: "Ravi", Phone: "9998887776", NameKey: "Ravi", PhoneKey: "9998887776",
		Address: "12 MG Road", VisitCount: 1, OwnerAdminID: "ADM-A", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, customers.Insert(ctx, c))

	dup := *c
	dup.ID = "c2"
	assert.ErrorIs(t, customers.Insert(ctx, &dup), repository.ErrDuplicateKey)

	merged, err := customers.MergeVisit(ctx, "Ravi", "9998887776", repository.VisitMerge{Address: "14 MG Road", ModifiedBy: "ADM-B", At: now.Add(time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, 2, merged.VisitCount)
	assert.Equal(t, "14 MG Road", merged.Address)
	assert.Equal(t, "ADM-A", merged.OwnerAdminID)
	require.NotNil(t, merged.LastModifiedBy)
	assert.Equal(t, "ADM-B", *merged.LastModifiedBy)

	adjusted, err := customers.AdjustVisits(ctx, "c1", -1, now)
	require.NoError(t, err)
	assert.Equal(t, 1, adjusted.VisitCount)

	_, err = customers.AdjustVisits(ctx, "c1", -1, now)
	assert.ErrorIs(t, err, repository.ErrVisitFloor)
	_, err = customers.AdjustVisits(ctx, "nope", 1, now)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	counts, err := customers.CountByOwner(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["ADM-A"])

	removed, err := customers.DeleteOne(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", removed.ID)
	_, err = customers.FindOne(ctx, repository.CustomerFilter{})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
