package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/customer-ledger/internal/alert"
	"github.com/spec-kit/customer-ledger/internal/config"
	"github.com/spec-kit/customer-ledger/internal/domain"
	"github.com/spec-kit/customer-ledger/internal/events"
	"github.com/spec-kit/customer-ledger/internal/matching"
	"github.com/spec-kit/customer-ledger/internal/policy"
	"github.com/spec-kit/customer-ledger/internal/repository"
	apperrors "github.com/spec-kit/customer-ledger/pkg/util/errorutil"
)

const (
	followUpDateLayout = "2006-01-02"
	// submitAttempts bounds the insert/merge loop when a concurrent remove or
	// insert changes the outcome between lookup and write.
	submitAttempts = 3
)

// AdminDirectory confirms that an admin id exists.
type AdminDirectory interface {
	Exists(ctx context.Context, adminID string) (bool, error)
}

// SubmitCustomerInput is one customer submission.
type SubmitCustomerInput struct {
	Name          string
	Phone         string
	Address       string
	ActingAdminID string
	FollowUpDate  *string
}

// SubmitResult reports the consolidated record.
type SubmitResult struct {
	Customer    *domain.Customer
	IsNewRecord bool
	ShouldAlert bool
}

// AdjustResult reports a record after a visit adjustment.
type AdjustResult struct {
	Customer    *domain.Customer
	ShouldAlert bool
}

// EditCustomerInput holds optional field updates. Nil or blank fields keep
// their stored value.
type EditCustomerInput struct {
	Name         *string
	Phone        *string
	Address      *string
	FollowUpDate *string
}

// RemoveResult is the removed record and, when undo is available, its deadline.
type RemoveResult struct {
	Customer      *domain.Customer
	UndoExpiresAt *time.Time
}

// CustomerService consolidates repeated submissions into single customer records.
type CustomerService struct {
	customers  repository.CustomerRepository
	tombstones repository.TombstoneRepository
	directory  AdminDirectory
	normalizer matching.Normalizer
	access     *policy.Access
	threshold  alert.Threshold
	dispatcher events.Dispatcher
	logger     *zap.Logger
	timeout    time.Duration
	undoWindow time.Duration
	now        Clock
	newID      func() string
}

// CustomerDependencies encapsulates collaborators of the customer service.
type CustomerDependencies struct {
	Customers  repository.CustomerRepository
	Tombstones repository.TombstoneRepository
	Directory  AdminDirectory
	Normalizer matching.Normalizer
	Access     *policy.Access
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      Clock
	IDs        func() string
}

// NewCustomerService builds the consolidation engine.
func NewCustomerService(cfg config.Config, deps CustomerDependencies) *CustomerService {
	s := &CustomerService{
		customers:  deps.Customers,
		tombstones: deps.Tombstones,
		directory:  deps.Directory,
		normalizer: deps.Normalizer,
		access:     deps.Access,
		threshold:  alert.NewThreshold(cfg.Notification.VisitAlertThreshold),
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		timeout:    cfg.Storage.Timeout(),
		undoWindow: cfg.Notification.UndoWindow(),
		now:        deps.Clock,
		newID:      deps.IDs,
	}
	if s.normalizer == nil {
		s.normalizer = matching.Exact{}
	}
	if s.access == nil {
		s.access = policy.NewAccess(cfg.Policy.OwnerOnlyMutation)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = systemClock
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// Threshold exposes the alert evaluator.
func (s *CustomerService) Threshold() alert.Threshold {
	return s.threshold
}

// Submit creates the customer or, if one already exists for the business key,
// folds the submission into it as another visit.
func (s *CustomerService) Submit(ctx context.Context, actor *domain.AdminSummary, in SubmitCustomerInput) (*SubmitResult, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	acting := strings.TrimSpace(in.ActingAdminID)
	if acting == "" {
		acting = actor.AdminID
	}
	if missing := missingFields(map[string]string{
		"name": in.Name, "phone": in.Phone, "address": in.Address, "actingAdminID": acting,
	}); len(missing) > 0 {
		return nil, apperrors.NewValidationError("required fields missing", map[string]any{"fields": missing})
	}
	if !s.access.CanActFor(actor, acting) {
		return nil, apperrors.NewForbidden("cannot submit on behalf of another admin")
	}
	if acting != actor.AdminID {
		if err := s.requireAdmin(ctx, acting); err != nil {
			return nil, err
		}
	}
	followUp, err := normalizeFollowUp(in.FollowUpDate)
	if err != nil {
		return nil, err
	}

	nameKey, phoneKey := s.normalizer.Key(in.Name, in.Phone)
	keyFilter := repository.CustomerFilter{NameKey: &nameKey, PhoneKey: &phoneKey}

	for attempt := 0; attempt < submitAttempts; attempt++ {
		now := s.now()
		_, err := storageCall(ctx, s.timeout, func(ctx context.Context) (*domain.Customer, error) {
			return s.customers.FindOne(ctx, keyFilter)
		})
		switch {
		case err == nil:
			merged, err := storageCall(ctx, s.timeout, func(ctx context.Context) (*domain.Customer, error) {
				return s.customers.MergeVisit(ctx, nameKey, phoneKey, repository.VisitMerge{
					Address:      in.Address,
					FollowUpDate: followUp,
					ModifiedBy:   acting,
					At:           now,
				})
			})
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, translateStorageError(err, "customer", nil)
			}
			result := &SubmitResult{Customer: merged, ShouldAlert: s.threshold.ShouldAlert(merged)}
			s.logger.Debug("customer visit merged", zap.String("customer_id", merged.ID), zap.Int("visit_count", merged.VisitCount))
			s.publish(ctx, events.NewEvent(events.EventCustomerMerged, merged.ID, acting, now,
				events.CustomerMergedPayload{OwnerAdminID: merged.OwnerAdminID, VisitCount: merged.VisitCount}))
			s.publishAlert(ctx, merged, acting, now, result.ShouldAlert)
			return result, nil

		case errors.Is(err, repository.ErrNotFound):
			customer := &domain.Customer{
				ID:           s.newID(),
				Name:         in.Name,
				Phone:        in.Phone,
				Address:      in.Address,
				NameKey:      nameKey,
				PhoneKey:     phoneKey,
				VisitCount:   1,
				OwnerAdminID: acting,
				FollowUpDate: followUp,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			err := storageExec(ctx, s.timeout, func(ctx context.Context) error {
				return s.customers.Insert(ctx, customer)
			})
			if errors.Is(err, repository.ErrDuplicateKey) {
				continue
			}
			if err != nil {
				return nil, translateStorageError(err, "customer", nil)
			}
			s.logger.Debug("customer created", zap.String("customer_id", customer.ID), zap.String("owner", acting))
			s.publish(ctx, events.NewEvent(events.EventCustomerCreated, customer.ID, acting, now,
				events.CustomerCreatedPayload{OwnerAdminID: acting, VisitCount: customer.VisitCount}))
			return &SubmitResult{Customer: customer, IsNewRecord: true, ShouldAlert: s.threshold.ShouldAlert(customer)}, nil

		default:
			return nil, translateStorageError(err, "customer", nil)
		}
	}
	return nil, apperrors.NewConflict("customer changed concurrently; retry the submission", nil)
}

// AdjustVisit moves the visit counter by one. A decrement that would leave
// the record without visits is rejected, never clamped.
func (s *CustomerService) AdjustVisit(ctx context.Context, actor *domain.AdminSummary, id string, direction domain.VisitDirection) (*AdjustResult, error) {
	delta := direction.Delta()
	if delta == 0 {
		return nil, apperrors.NewValidationError("action must be increment or decrement",
			map[string]any{"action": string(direction)})
	}
	if _, err := s.loadMutable(ctx, actor, id); err != nil {
		return nil, err
	}

	now := s.now()
	updated, err := storageCall(ctx, s.timeout, func(ctx context.Context) (*domain.Customer, error) {
		return s.customers.AdjustVisits(ctx, id, delta, now)
	})
	if err != nil {
		return nil, translateStorageError(err, "customer", map[string]any{"id": id})
	}

	result := &AdjustResult{Customer: updated, ShouldAlert: s.threshold.ShouldAlert(updated)}
	s.publish(ctx, events.NewEvent(events.EventCustomerVisitAdjusted, updated.ID, actor.AdminID, now,
		events.VisitAdjustedPayload{Direction: direction, VisitCount: updated.VisitCount}))
	if direction == domain.VisitIncrement {
		s.publishAlert(ctx, updated, actor.AdminID, now, result.ShouldAlert)
	}
	return result, nil
}

// Edit applies a partial update. Changing name or phone re-keys the record and
// fails with a conflict if another record already holds the new key.
func (s *CustomerService) Edit(ctx context.Context, actor *domain.AdminSummary, id string, in EditCustomerInput) (*domain.Customer, error) {
	existing, err := s.loadMutable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	patch := repository.CustomerPatch{}
	changed := []string{}
	if v, ok := provided(in.Name); ok {
		patch.Name = &v
		changed = append(changed, "name")
	}
	if v, ok := provided(in.Phone); ok {
		patch.Phone = &v
		changed = append(changed, "phone")
	}
	if v, ok := provided(in.Address); ok {
		patch.Address = &v
		changed = append(changed, "address")
	}
	if in.FollowUpDate != nil {
		followUp, err := normalizeFollowUp(in.FollowUpDate)
		if err != nil {
			return nil, err
		}
		if followUp != nil {
			patch.FollowUpDate = followUp
			changed = append(changed, "followUpDate")
		}
	}
	if len(changed) == 0 {
		return nil, apperrors.NewValidationError("no fields to update", map[string]any{"id": id})
	}

	if patch.Name != nil || patch.Phone != nil {
		name, phone := existing.Name, existing.Phone
		if patch.Name != nil {
			name = *patch.Name
		}
		if patch.Phone != nil {
			phone = *patch.Phone
		}
		nameKey, phoneKey := s.normalizer.Key(name, phone)
		patch.NameKey = &nameKey
		patch.PhoneKey = &phoneKey
	}
	modifiedBy := actor.AdminID
	patch.LastModifiedBy = &modifiedBy
	patch.UpdatedAt = s.now()

	updated, err := storageCall(ctx, s.timeout, func(ctx context.Context) (*domain.Customer, error) {
		return s.customers.UpdateOne(ctx, id, patch)
	})
	if err != nil {
		return nil, translateStorageError(err, "customer", map[string]any{"id": id})
	}
	s.publish(ctx, events.NewEvent(events.EventCustomerUpdated, updated.ID, actor.AdminID, patch.UpdatedAt,
		events.CustomerUpdatedPayload{Fields: changed}))
	return updated, nil
}

// Remove deletes the record and keeps a tombstone for the undo window.
func (s *CustomerService) Remove(ctx context.Context, actor *domain.AdminSummary, id string) (*RemoveResult, error) {
	if _, err := s.loadMutable(ctx, actor, id); err != nil {
		return nil, err
	}

	removed, err := storageCall(ctx, s.timeout, func(ctx context.Context) (*domain.Customer, error) {
		return s.customers.DeleteOne(ctx, id)
	})
	if err != nil {
		return nil, translateStorageError(err, "customer", map[string]any{"id": id})
	}

	now := s.now()
	result := &RemoveResult{Customer: removed}
	if s.tombstones != nil && s.undoWindow > 0 {
		err := storageExec(ctx, s.timeout, func(ctx context.Context) error {
			return s.tombstones.Put(ctx, removed, s.undoWindow)
		})
		if err != nil {
			s.logger.Warn("tombstone not stored; undo unavailable", zap.String("customer_id", id), zap.Error(err))
		} else {
			expires := now.Add(s.undoWindow)
			result.UndoExpiresAt = &expires
		}
	}

	s.publish(ctx, events.NewEvent(events.EventCustomerRemoved, removed.ID, actor.AdminID, now,
		events.CustomerRemovedPayload{VisitCount: removed.VisitCount, UndoExpiresAt: result.UndoExpiresAt}))
	return result, nil
}

// Restore reinserts a removed record with its original id and visit count
// while its tombstone lives.
func (s *CustomerService) Restore(ctx context.Context, actor *domain.AdminSummary, id string) (*domain.Customer, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.NewValidationError("id is required", nil)
	}
	if s.tombstones == nil {
		return nil, apperrors.NewNotFound("removed customer", map[string]any{"id": id})
	}

	tomb, err := storageCall(ctx, s.timeout, func(ctx context.Context) (*domain.Customer, error) {
		return s.tombstones.Get(ctx, id)
	})
	if err != nil {
		return nil, translateStorageError(err, "removed customer", map[string]any{"id": id})
	}
	if !s.access.CanMutate(actor, tomb) {
		return nil, apperrors.NewForbidden("not allowed to restore this customer")
	}

	now := s.now()
	restored := *tomb
	modifiedBy := actor.AdminID
	restored.LastModifiedBy = &modifiedBy
	restored.UpdatedAt = now
	err = storageExec(ctx, s.timeout, func(ctx context.Context) error {
		return s.customers.Insert(ctx, &restored)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, apperrors.NewConflict("customer was submitted again after removal", map[string]any{"id": id})
		}
		return nil, translateStorageError(err, "customer", map[string]any{"id": id})
	}

	if err := storageExec(ctx, s.timeout, func(ctx context.Context) error {
		return s.tombstones.Delete(ctx, id)
	}); err != nil {
		s.logger.Warn("tombstone not cleared after restore", zap.String("customer_id", id), zap.Error(err))
	}
	s.publish(ctx, events.NewEvent(events.EventCustomerRestored, restored.ID, actor.AdminID, now,
		events.CustomerRestoredPayload{VisitCount: restored.VisitCount}))
	return &restored, nil
}

// List returns the records visible to actor, most recently updated first.
func (s *CustomerService) List(ctx context.Context, actor *domain.AdminSummary) ([]domain.Customer, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	filter := s.access.VisibleCustomers(actor)
	customers, err := storageCall(ctx, s.timeout, func(ctx context.Context) ([]domain.Customer, error) {
		return s.customers.Find(ctx, filter)
	})
	if err != nil {
		return nil, translateStorageError(err, "customer", nil)
	}
	return customers, nil
}

func (s *CustomerService) loadMutable(ctx context.Context, actor *domain.AdminSummary, id string) (*domain.Customer, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("id is required", nil)
	}
	customer, err := storageCall(ctx, s.timeout, func(ctx context.Context) (*domain.Customer, error) {
		return s.customers.FindOne(ctx, repository.CustomerFilter{ID: &id})
	})
	if err != nil {
		return nil, translateStorageError(err, "customer", map[string]any{"id": id})
	}
	if !s.access.CanMutate(actor, customer) {
		return nil, apperrors.NewForbidden("not allowed to modify this customer")
	}
	return customer, nil
}

func (s *CustomerService) requireAdmin(ctx context.Context, adminID string) error {
	if s.directory == nil {
		return nil
	}
	ok, err := s.directory.Exists(ctx, adminID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewValidationError("unknown acting admin", map[string]any{"actingAdminID": adminID})
	}
	return nil
}

func (s *CustomerService) publishAlert(ctx context.Context, customer *domain.Customer, actorID string, at time.Time, shouldAlert bool) {
	if !shouldAlert {
		return
	}
	s.publish(ctx, events.NewEvent(events.EventCustomerVisitAlert, customer.ID, actorID, at,
		events.VisitAlertPayload{Name: customer.Name, VisitCount: customer.VisitCount, Threshold: s.threshold.Visits}))
}

func (s *CustomerService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func missingFields(fields map[string]string) []string {
	missing := []string{}
	for _, name := range []string{"name", "phone", "address", "actingAdminID"} {
		if v, ok := fields[name]; ok && strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

func provided(v *string) (string, bool) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return "", false
	}
	return *v, true
}

func normalizeFollowUp(v *string) (*string, error) {
	if v == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil, nil
	}
	if _, err := time.Parse(followUpDateLayout, trimmed); err != nil {
		return nil, apperrors.NewValidationError("followUpDate must be YYYY-MM-DD",
			map[string]any{"followUpDate": *v})
	}
	return &trimmed, nil
}
