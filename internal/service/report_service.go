package service

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/customer-ledger/internal/config"
	"github.com/spec-kit/customer-ledger/internal/domain"
	"github.com/spec-kit/customer-ledger/internal/policy"
	"github.com/spec-kit/customer-ledger/internal/repository"
	apperrors "github.com/spec-kit/customer-ledger/pkg/util/errorutil"
)

// AdminWithCount is an admin listing row.
type AdminWithCount struct {
	Admin         domain.Admin
	CustomerCount int
}

// ReportService computes read-only per-admin aggregates.
type ReportService struct {
	admins    repository.AdminRepository
	customers repository.CustomerRepository
	access    *policy.Access
	timeout   time.Duration
}

// NewReportService builds the service.
func NewReportService(cfg config.Config, admins repository.AdminRepository, customers repository.CustomerRepository, access *policy.Access) *ReportService {
	if access == nil {
		access = policy.NewAccess(cfg.Policy.OwnerOnlyMutation)
	}
	return &ReportService{admins: admins, customers: customers, access: access, timeout: cfg.Storage.Timeout()}
}

// CustomerCountByAdmin counts the customers owned by adminID.
func (s *ReportService) CustomerCountByAdmin(ctx context.Context, actor *domain.AdminSummary, adminID string) (int, error) {
	adminID = strings.TrimSpace(adminID)
	if adminID == "" {
		return 0, apperrors.NewValidationError("adminID is required", nil)
	}
	if !s.access.CanViewAdmin(actor, adminID) {
		return 0, apperrors.NewForbidden("not allowed to view this admin")
	}
	count, err := storageCall(ctx, s.timeout, func(ctx context.Context) (int, error) {
		return s.customers.Count(ctx, repository.CustomerFilter{OwnerAdminID: &adminID})
	})
	if err != nil {
		return 0, translateStorageError(err, "customer", nil)
	}
	return count, nil
}

// ListAdminsWithCounts lists stored non-superadmin admins, newest first, with
// their customer counts from one grouped aggregation.
func (s *ReportService) ListAdminsWithCounts(ctx context.Context, actor *domain.AdminSummary) ([]AdminWithCount, error) {
	if !actor.IsSuperadmin() {
		return nil, apperrors.NewForbidden("superadmin role required")
	}
	exclude := domain.RoleSuperadmin
	admins, err := storageCall(ctx, s.timeout, func(ctx context.Context) ([]domain.Admin, error) {
		return s.admins.List(ctx, repository.AdminFilter{ExcludeRole: &exclude})
	})
	if err != nil {
		return nil, translateStorageError(err, "admin", nil)
	}
	counts, err := storageCall(ctx, s.timeout, func(ctx context.Context) (map[string]int, error) {
		return s.customers.CountByOwner(ctx)
	})
	if err != nil {
		return nil, translateStorageError(err, "customer", nil)
	}

	rows := make([]AdminWithCount, 0, len(admins))
	for _, admin := range admins {
		rows = append(rows, AdminWithCount{Admin: admin, CustomerCount: counts[admin.AdminID]})
	}
	return rows, nil
}
