package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/customer-ledger/internal/domain"
)

const tombstoneKeyPrefix = "customer-ledger:tombstone:"

type redisTombstoneRepository struct {
	client *redis.Client
}

// NewRedisTombstoneRepository stores tombstones as JSON values that expire with the undo window.
func NewRedisTombstoneRepository(client *redis.Client) TombstoneRepository {
	return &redisTombstoneRepository{client: client}
}

func (r *redisTombstoneRepository) Put(ctx context.Context, customer *domain.Customer, ttl time.Duration) error {
	payload, err := json.Marshal(customer)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, tombstoneKeyPrefix+customer.ID, payload, ttl).Err()
}

func (r *redisTombstoneRepository) Get(ctx context.Context, id string) (*domain.Customer, error) {
	payload, err := r.client.Get(ctx, tombstoneKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var customer domain.Customer
	if err := json.Unmarshal(payload, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *redisTombstoneRepository) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, tombstoneKeyPrefix+id).Err()
}
