package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/customer-ledger/internal/domain"
	"github.com/spec-kit/customer-ledger/internal/repository"
)

func newCustomer(id, name, phone string, at time.Time) *domain.Customer {
	return &domain.Customer{
		ID: id, Name: name, Phone: phone, NameKey: name, PhoneKey: phone,
		Address: "addr", VisitCount: 1, OwnerAdminID: "ADM-1", CreatedAt: at, UpdatedAt: at,
	}
}

func TestAdminStorePromotesOnlyFirstAdmin(t *testing.T) {
	ctx := context.Background()
	store := NewAdminStore()

	first := &domain.Admin{AdminID: "ADM-A", Phone: "9876543210", Role: domain.RoleAdmin}
	second := &domain.Admin{AdminID: "ADM-B", Phone: "9876543211", Role: domain.RoleAdmin}
	require.NoError(t, store.Create(ctx, first, true))
	require.NoError(t, store.Create(ctx, second, true))

	assert.Equal(t, domain.RoleSuperadmin, first.Role)
	assert.Equal(t, domain.RoleAdmin, second.Role)
}

func TestAdminStoreConcurrentFirstRegistrationYieldsOneSuperadmin(t *testing.T) {
	ctx := context.Background()
	store := NewAdminStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			admin := &domain.Admin{AdminID: sequenceID("ADM", i), Phone: sequenceID("98", i), Role: domain.RoleAdmin}
			_ = store.Create(ctx, admin, true)
		}(i)
	}
	wg.Wait()

	admins, err := store.List(ctx, repository.AdminFilter{})
	require.NoError(t, err)
	superadmins := 0
	for _, a := range admins {
		if a.Role == domain.RoleSuperadmin {
			superadmins++
		}
	}
	assert.Equal(t, 1, superadmins)
}

func TestAdminStoreRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	store := NewAdminStore()
	require.NoError(t, store.Create(ctx, &domain.Admin{AdminID: "ADM-A", Phone: "9876543210"}, false))

	err := store.Create(ctx, &domain.Admin{AdminID: "ADM-A", Phone: "9000000000"}, false)
	assert.ErrorIs(t, err, repository.ErrAdminIDTaken)

	err = store.Create(ctx, &domain.Admin{AdminID: "ADM-B", Phone: "9876543210"}, false)
	assert.ErrorIs(t, err, repository.ErrPhoneTaken)
}

func TestAdminStoreListExcludesRoleNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewAdminStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Create(ctx, &domain.Admin{AdminID: "ADM-S", Phone: "1", CreatedAt: base}, true))
	require.NoError(t, store.Create(ctx, &domain.Admin{AdminID: "ADM-A", Phone: "2", Role: domain.RoleAdmin, CreatedAt: base.Add(time.Hour)}, true))
	require.NoError(t, store.Create(ctx, &domain.Admin{AdminID: "ADM-B", Phone: "3", Role: domain.RoleAdmin, CreatedAt: base.Add(2 * time.Hour)}, true))

	exclude := domain.RoleSuperadmin
	admins, err := store.List(ctx, repository.AdminFilter{ExcludeRole: &exclude})
	require.NoError(t, err)
	require.Len(t, admins, 2)
	assert.Equal(t, "ADM-B", admins[0].AdminID)
	assert.Equal(t, "ADM-A", admins[1].AdminID)
}

func TestCustomerStoreEnforcesBusinessKey(t *testing.T) {
	ctx := context.Background()
	store := NewCustomerStore()
	now := time.Now()

	require.NoError(t, store.Insert(ctx, newCustomer("c1", "Ravi", "9998887776", now)))
	err := store.Insert(ctx, newCustomer("c2", "Ravi", "9998887776", now))
	assert.ErrorIs(t, err, repository.ErrDuplicateKey)

	require.NoError(t, store.Insert(ctx, newCustomer("c3", "Meena", "9998887775", now)))
	name, key := "Ravi", "Ravi"
	_, err = store.UpdateOne(ctx, "c3", repository.CustomerPatch{Name: &name, NameKey: &key, PhoneKey: strPtr("9998887776")})
	assert.ErrorIs(t, err, repository.ErrDuplicateKey)
}

func TestCustomerStoreAdjustVisitsNeverDropsBelowOne(t *testing.T) {
	ctx := context.Background()
	store := NewCustomerStore()
	now := time.Now()
	require.NoError(t, store.Insert(ctx, newCustomer("c1", "Ravi", "9998887776", now)))

	_, err := store.AdjustVisits(ctx, "c1", -1, now)
	assert.ErrorIs(t, err, repository.ErrVisitFloor)

	updated, err := store.AdjustVisits(ctx, "c1", 1, now)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.VisitCount)

	_, err = store.AdjustVisits(ctx, "missing", 1, now)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCustomerStoreConcurrentMergesDoNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	store := NewCustomerStore()
	now := time.Now()
	require.NoError(t, store.Insert(ctx, newCustomer("c1", "Ravi", "9998887776", now)))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.MergeVisit(ctx, "Ravi", "9998887776", repository.VisitMerge{Address: "x", ModifiedBy: "ADM-2", At: now})
		}()
	}
	wg.Wait()

	found, err := store.FindOne(ctx, repository.CustomerFilter{ID: strPtr("c1")})
	require.NoError(t, err)
	assert.Equal(t, 51, found.VisitCount)
}

func TestCustomerStoreFindOrdersNewestUpdatedFirst(t *testing.T) {
	ctx := context.Background()
	store := NewCustomerStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(ctx, newCustomer("c1", "A", "1", base)))
	require.NoError(t, store.Insert(ctx, newCustomer("c2", "B", "2", base.Add(time.Minute))))
	_, err := store.AdjustVisits(ctx, "c1", 1, base.Add(time.Hour))
	require.NoError(t, err)

	found, err := store.Find(ctx, repository.CustomerFilter{})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "c1", found[0].ID)

	counts, err := store.CountByOwner(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"ADM-1": 2}, counts)
}

func TestTombstoneStoreExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewTombstoneStoreWithClock(func() time.Time { return now })

	require.NoError(t, store.Put(ctx, newCustomer("c1", "A", "1", now), 30*time.Second))
	got, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)

	now = now.Add(30 * time.Second)
	_, err = store.Get(ctx, "c1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func strPtr(v string) *string { return &v }
