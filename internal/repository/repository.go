package repository

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/customer-ledger/internal/domain"
)

var (
	// ErrNotFound is returned when no record matches.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateKey is returned when a customer with the same business key exists.
	ErrDuplicateKey = errors.New("duplicate customer key")
	// ErrPhoneTaken is returned when an admin phone is already registered.
	ErrPhoneTaken = errors.New("phone already registered")
	// ErrAdminIDTaken is returned when a generated admin id collides.
	ErrAdminIDTaken = errors.New("admin id already taken")
	// ErrVisitFloor is returned when an adjustment would take visit_count below 1.
	ErrVisitFloor = errors.New("visit count cannot drop below one")
)

// AdminFilter narrows admin listings.
type AdminFilter struct {
	ExcludeRole *domain.Role
}

// AdminRepository defines persistence access for admins.
type AdminRepository interface {
	// Create inserts admin. When promoteFirst is set and the store holds no
	// admins, the store assigns RoleSuperadmin under the same lock as the insert.
	Create(ctx context.Context, admin *domain.Admin, promoteFirst bool) error
	GetByAdminID(ctx context.Context, adminID string) (*domain.Admin, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Admin, error)
	UpdatePassword(ctx context.Context, adminID, passwordHash string, at time.Time) error
	List(ctx context.Context, filter AdminFilter) ([]domain.Admin, error)
	Count(ctx context.Context) (int, error)
}

// CustomerFilter is the predicate accepted by customer lookups. Nil fields match anything.
type CustomerFilter struct {
	ID           *string
	OwnerAdminID *string
	NameKey      *string
	PhoneKey     *string
}

// CustomerPatch lists the fields an update may overwrite. Nil fields are kept.
type CustomerPatch struct {
	Name           *string
	Phone          *string
	NameKey        *string
	PhoneKey       *string
	Address        *string
	FollowUpDate   *string
	LastModifiedBy *string
	UpdatedAt      time.Time
}

// VisitMerge carries a repeat submission folded into an existing record.
type VisitMerge struct {
	Address      string
	FollowUpDate *string
	ModifiedBy   string
	At           time.Time
}

// CustomerRepository is the record store consumed by the consolidation engine.
// Inserts are visible to subsequent reads from the same caller.
type CustomerRepository interface {
	FindOne(ctx context.Context, filter CustomerFilter) (*domain.Customer, error)
	// Find returns matching records, most recently updated first.
	Find(ctx context.Context, filter CustomerFilter) ([]domain.Customer, error)
	// Insert fails with ErrDuplicateKey when (NameKey, PhoneKey) is taken.
	Insert(ctx context.Context, customer *domain.Customer) error
	UpdateOne(ctx context.Context, id string, patch CustomerPatch) (*domain.Customer, error)
	// MergeVisit atomically increments the visit count of the record keyed by
	// (nameKey, phoneKey) and applies the merge fields.
	MergeVisit(ctx context.Context, nameKey, phoneKey string, merge VisitMerge) (*domain.Customer, error)
	// AdjustVisits atomically adds delta to the visit count, failing with
	// ErrVisitFloor instead of persisting a count below one.
	AdjustVisits(ctx context.Context, id string, delta int, at time.Time) (*domain.Customer, error)
	// DeleteOne removes the record and returns its last state.
	DeleteOne(ctx context.Context, id string) (*domain.Customer, error)
	Count(ctx context.Context, filter CustomerFilter) (int, error)
	// CountByOwner groups record counts by owner admin id.
	CountByOwner(ctx context.Context) (map[string]int, error)
}

// TombstoneRepository retains removed customers for a bounded undo window.
type TombstoneRepository interface {
	Put(ctx context.Context, customer *domain.Customer, ttl time.Duration) error
	Get(ctx context.Context, id string) (*domain.Customer, error)
	Delete(ctx context.Context, id string) error
}

// Matches reports whether c satisfies the filter. Used by stores that filter in process.
func (f CustomerFilter) Matches(c *domain.Customer) bool {
	if f.ID != nil && c.ID != *f.ID {
		return false
	}
	if f.OwnerAdminID != nil && c.OwnerAdminID != *f.OwnerAdminID {
		return false
	}
	if f.NameKey != nil && c.NameKey != *f.NameKey {
		return false
	}
	if f.PhoneKey != nil && c.PhoneKey != *f.PhoneKey {
		return false
	}
	return true
}

// Apply copies the non-nil patch fields onto c.
func (p CustomerPatch) Apply(c *domain.Customer) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.NameKey != nil {
		c.NameKey = *p.NameKey
	}
	if p.PhoneKey != nil {
		c.PhoneKey = *p.PhoneKey
	}
	if p.Address != nil {
		c.Address = *p.Address
	}
	if p.FollowUpDate != nil {
		v := *p.FollowUpDate
		c.FollowUpDate = &v
	}
	if p.LastModifiedBy != nil {
		v := *p.LastModifiedBy
		c.LastModifiedBy = &v
	}
	if !p.UpdatedAt.IsZero() {
		c.UpdatedAt = p.UpdatedAt
	}
}
