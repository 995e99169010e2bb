// Package policy derives what an admin may see and change.
package policy

import (
	"github.com/spec-kit/customer-ledger/internal/domain"
	"github.com/spec-kit/customer-ledger/internal/repository"
)

// Access evaluates visibility and mutation rights for customers.
type Access struct {
	ownerOnlyMutation bool
}

// NewAccess builds the policy. With ownerOnlyMutation unset any authenticated
// admin may change any record, matching collaborative editing.
func NewAccess(ownerOnlyMutation bool) *Access {
	return &Access{ownerOnlyMutation: ownerOnlyMutation}
}

// VisibleCustomers returns the predicate restricting listings for actor.
func (a *Access) VisibleCustomers(actor *domain.AdminSummary) repository.CustomerFilter {
	if actor.IsSuperadmin() {
		return repository.CustomerFilter{}
	}
	owner := ""
	if actor != nil {
		owner = actor.AdminID
	}
	return repository.CustomerFilter{OwnerAdminID: &owner}
}

// CanMutate reports whether actor may edit, adjust or remove customer.
func (a *Access) CanMutate(actor *domain.AdminSummary, customer *domain.Customer) bool {
	if actor == nil {
		return false
	}
	if !a.ownerOnlyMutation || actor.IsSuperadmin() {
		return true
	}
	return customer != nil && customer.OwnerAdminID == actor.AdminID
}

// CanActFor reports whether actor may submit on behalf of adminID.
func (a *Access) CanActFor(actor *domain.AdminSummary, adminID string) bool {
	if actor == nil {
		return false
	}
	return adminID == "" || adminID == actor.AdminID || actor.IsSuperadmin()
}

// CanViewAdmin reports whether actor may read per-admin figures for adminID.
func (a *Access) CanViewAdmin(actor *domain.AdminSummary, adminID string) bool {
	return actor != nil && (actor.IsSuperadmin() || actor.AdminID == adminID)
}

// OwnerOnlyMutation exposes the configured mode.
func (a *Access) OwnerOnlyMutation() bool {
	return a.ownerOnlyMutation
}
