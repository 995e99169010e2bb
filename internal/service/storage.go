package service

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/customer-ledger/internal/repository"
	apperrors "github.com/spec-kit/customer-ledger/pkg/util/errorutil"
)

// Clock returns the current time. Services stamp records with it.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// storageCall bounds fn by timeout so a slow store surfaces as a transient failure.
func storageCall[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(callCtx)
}

func storageExec(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	_, err := storageCall(ctx, timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// translateStorageError maps repository failures to the domain error taxonomy.
func translateStorageError(err error, resource string, details map[string]any) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, details)
	case errors.Is(err, repository.ErrDuplicateKey):
		return apperrors.NewConflict("a customer with this name and phone already exists", details)
	case errors.Is(err, repository.ErrPhoneTaken):
		return apperrors.NewConflict("phone already registered", details)
	case errors.Is(err, repository.ErrVisitFloor):
		return apperrors.NewInvariantViolation("cannot remove the last visit; delete the record instead", details)
	case repository.IsTransient(err):
		return apperrors.NewStorageUnavailable(err)
	}
	return apperrors.NewInternalError(err)
}
