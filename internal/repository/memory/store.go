// Package memory provides mutex-guarded in-process implementations of the
// repository contracts. It backs STORAGE_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/customer-ledger/internal/domain"
	"github.com/spec-kit/customer-ledger/internal/repository"
)

var (
	_ repository.AdminRepository     = (*AdminStore)(nil)
	_ repository.CustomerRepository  = (*CustomerStore)(nil)
	_ repository.TombstoneRepository = (*TombstoneStore)(nil)
)

// AdminStore keeps admins keyed by admin id.
type AdminStore struct {
	mu     sync.RWMutex
	admins map[string]domain.Admin
	seq    int
}

// NewAdminStore returns an empty store.
func NewAdminStore() *AdminStore {
	return &AdminStore{admins: map[string]domain.Admin{}}
}

func (s *AdminStore) Create(_ context.Context, admin *domain.Admin, promoteFirst bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admins[admin.AdminID]; ok {
		return repository.ErrAdminIDTaken
	}
	for _, existing := range s.admins {
		if existing.Phone == admin.Phone {
			return repository.ErrPhoneTaken
		}
	}
	if promoteFirst && len(s.admins) == 0 {
		admin.Role = domain.RoleSuperadmin
	}
	s.seq++
	admin.ID = sequenceID("adm", s.seq)
	s.admins[admin.AdminID] = *admin
	return nil
}

func (s *AdminStore) GetByAdminID(_ context.Context, adminID string) (*domain.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	admin, ok := s.admins[adminID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &admin, nil
}

func (s *AdminStore) GetByPhone(_ context.Context, phone string) (*domain.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, admin := range s.admins {
		if admin.Phone == phone {
			found := admin
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *AdminStore) UpdatePassword(_ context.Context, adminID, passwordHash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	admin, ok := s.admins[adminID]
	if !ok {
		return repository.ErrNotFound
	}
	admin.PasswordHash = passwordHash
	admin.UpdatedAt = at
	s.admins[adminID] = admin
	return nil
}

func (s *AdminStore) List(_ context.Context, filter repository.AdminFilter) ([]domain.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Admin, 0, len(s.admins))
	for _, admin := range s.admins {
		if filter.ExcludeRole != nil && admin.Role == *filter.ExcludeRole {
			continue
		}
		result = append(result, admin)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *AdminStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.admins), nil
}

// CustomerStore keeps customers keyed by id and enforces one record per business key.
type CustomerStore struct {
	mu        sync.RWMutex
	customers map[string]domain.Customer
	seq       int
}

// NewCustomerStore returns an empty store.
func NewCustomerStore() *CustomerStore {
	return &CustomerStore{customers: map[string]domain.Customer{}}
}

func (s *CustomerStore) FindOne(_ context.Context, filter repository.CustomerFilter) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := s.find(filter)
	if len(matches) == 0 {
		return nil, repository.ErrNotFound
	}
	return &matches[0], nil
}

func (s *CustomerStore) Find(_ context.Context, filter repository.CustomerFilter) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.find(filter), nil
}

func (s *CustomerStore) Insert(_ context.Context, customer *domain.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[customer.ID]; ok {
		return repository.ErrDuplicateKey
	}
	if _, ok := s.byKey(customer.NameKey, customer.PhoneKey); ok {
		return repository.ErrDuplicateKey
	}
	s.customers[customer.ID] = clone(*customer)
	return nil
}

func (s *CustomerStore) UpdateOne(_ context.Context, id string, patch repository.CustomerPatch) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	customer, ok := s.customers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	patch.Apply(&customer)
	if other, ok := s.byKey(customer.NameKey, customer.PhoneKey); ok && other.ID != id {
		return nil, repository.ErrDuplicateKey
	}
	s.customers[id] = customer
	result := clone(customer)
	return &result, nil
}

func (s *CustomerStore) MergeVisit(_ context.Context, nameKey, phoneKey string, merge repository.VisitMerge) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	customer, ok := s.byKey(nameKey, phoneKey)
	if !ok {
		return nil, repository.ErrNotFound
	}
	customer.VisitCount++
	customer.Address = merge.Address
	if merge.FollowUpDate != nil {
		v := *merge.FollowUpDate
		customer.FollowUpDate = &v
	}
	modifiedBy := merge.ModifiedBy
	customer.LastModifiedBy = &modifiedBy
	customer.UpdatedAt = merge.At
	s.customers[customer.ID] = customer
	result := clone(customer)
	return &result, nil
}

func (s *CustomerStore) AdjustVisits(_ context.Context, id string, delta int, at time.Time) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	customer, ok := s.customers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if customer.VisitCount+delta < 1 {
		return nil, repository.ErrVisitFloor
	}
	customer.VisitCount += delta
	customer.UpdatedAt = at
	s.customers[id] = customer
	result := clone(customer)
	return &result, nil
}

func (s *CustomerStore) DeleteOne(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	customer, ok := s.customers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(s.customers, id)
	return &customer, nil
}

func (s *CustomerStore) Count(_ context.Context, filter repository.CustomerFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, customer := range s.customers {
		if filter.Matches(&customer) {
			count++
		}
	}
	return count, nil
}

func (s *CustomerStore) CountByOwner(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := map[string]int{}
	for _, customer := range s.customers {
		counts[customer.OwnerAdminID]++
	}
	return counts, nil
}

func (s *CustomerStore) find(filter repository.CustomerFilter) []domain.Customer {
	result := []domain.Customer{}
	for _, customer := range s.customers {
		if filter.Matches(&customer) {
			result = append(result, clone(customer))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		}
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (s *CustomerStore) byKey(nameKey, phoneKey string) (domain.Customer, bool) {
	for _, customer := range s.customers {
		if customer.NameKey == nameKey && customer.PhoneKey == phoneKey {
			return customer, true
		}
	}
	return domain.Customer{}, false
}

// TombstoneStore keeps removed customers until their deadline passes.
type TombstoneStore struct {
	mu      sync.Mutex
	entries map[string]tombstone
	now     func() time.Time
}

type tombstone struct {
	customer  domain.Customer
	expiresAt time.Time
}

// NewTombstoneStore returns an empty store using the wall clock.
func NewTombstoneStore() *TombstoneStore {
	return NewTombstoneStoreWithClock(time.Now)
}

// NewTombstoneStoreWithClock lets tests control expiry.
func NewTombstoneStoreWithClock(now func() time.Time) *TombstoneStore {
	return &TombstoneStore{entries: map[string]tombstone{}, now: now}
}

func (s *TombstoneStore) Put(_ context.Context, customer *domain.Customer, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[customer.ID] = tombstone{customer: clone(*customer), expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *TombstoneStore) Get(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, id)
		return nil, repository.ErrNotFound
	}
	customer := clone(entry.customer)
	return &customer, nil
}

func (s *TombstoneStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func clone(c domain.Customer) domain.Customer {
	if c.LastModifiedBy != nil {
		v := *c.LastModifiedBy
		c.LastModifiedBy = &v
	}
	if c.FollowUpDate != nil {
		v := *c.FollowUpDate
		c.FollowUpDate = &v
	}
	return c
}
