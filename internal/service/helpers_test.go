package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/customer-ledger/internal/auth"
	"github.com/spec-kit/customer-ledger/internal/config"
	"github.com/spec-kit/customer-ledger/internal/domain"
	"github.com/spec-kit/customer-ledger/internal/events"
	"github.com/spec-kit/customer-ledger/internal/matching"
	"github.com/spec-kit/customer-ledger/internal/policy"
	"github.com/spec-kit/customer-ledger/internal/repository/memory"
	apperrors "github.com/spec-kit/customer-ledger/pkg/util/errorutil"
)

// tickingClock advances one second per reading so ordering by time is deterministic.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTickingClock() *tickingClock {
	return &tickingClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *tickingClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *tickingClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

type harness struct {
	cfg        config.Config
	clock      *tickingClock
	admins     *memory.AdminStore
	customers  *memory.CustomerStore
	tombstones *memory.TombstoneStore
	dispatcher events.Dispatcher
	identity   *IdentityService
	engine     *CustomerService
	reports    *ReportService
	published  *eventLog
}

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) record(_ context.Context, e events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) types() []events.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.EventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Type)
	}
	return out
}

func testConfig() config.Config {
	return config.Config{
		Storage:      config.StorageConfig{Driver: config.StorageDriverMemory, TimeoutMS: 500},
		Auth:         config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, BcryptCost: 4, FirstAdminIsSuperadmin: true},
		Policy:       config.PolicyConfig{MatchStrategy: matching.StrategyExact},
		Notification: config.NotificationConfig{VisitAlertThreshold: 3, UndoWindowSeconds: 30},
	}
}

func newHarness(t *testing.T, mutate ...func(*config.Config)) *harness {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	h := &harness{
		cfg:        cfg,
		clock:      newTickingClock(),
		admins:     memory.NewAdminStore(),
		customers:  memory.NewCustomerStore(),
		dispatcher: events.NewInMemoryDispatcher(),
		published:  &eventLog{},
	}
	h.tombstones = memory.NewTombstoneStoreWithClock(h.clock.Peek)

	for _, eventType := range []events.EventType{
		events.EventCustomerCreated, events.EventCustomerMerged, events.EventCustomerVisitAdjusted,
		events.EventCustomerUpdated, events.EventCustomerRemoved, events.EventCustomerRestored,
		events.EventCustomerVisitAlert,
	} {
		h.dispatcher.Subscribe(eventType, h.published.record)
	}

	normalizer, err := matching.New(cfg.Policy.MatchStrategy)
	require.NoError(t, err)
	access := policy.NewAccess(cfg.Policy.OwnerOnlyMutation)

	h.identity = NewIdentityService(cfg, IdentityDependencies{
		Admins:    h.admins,
		Tokens:    auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		Bootstrap: auth.NewBootstrapIdentity(cfg.Auth.Bootstrap),
		Clock:     h.clock.Now,
	})
	h.engine = NewCustomerService(cfg, CustomerDependencies{
		Customers:  h.customers,
		Tombstones: h.tombstones,
		Directory:  h.identity,
		Normalizer: normalizer,
		Access:     access,
		Dispatcher: h.dispatcher,
		Clock:      h.clock.Now,
	})
	h.reports = NewReportService(cfg, h.admins, h.customers, access)
	return h
}

func (h *harness) register(t *testing.T, name, phone, secret string) *domain.AdminSummary {
	t.Helper()
	admin, err := h.identity.Register(context.Background(), RegisterAdminInput{Name: name, Phone: phone, Secret: secret})
	require.NoError(t, err)
	return admin
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, apperrors.HasCode(err, code), "want %s, got %v", code, err)
}

func strPtr(v string) *string { return &v }
