package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/customer-ledger/internal/config"
	"github.com/spec-kit/customer-ledger/internal/events"
)

// NotificationService logs customer lifecycle events and surfaces visit alerts.
// Delivery beyond the log is a webhook stub.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventCustomerCreated,
		events.EventCustomerMerged,
		events.EventCustomerVisitAdjusted,
		events.EventCustomerUpdated,
		events.EventCustomerRemoved,
		events.EventCustomerRestored,
		events.EventAdminRegistered,
	} {
		n.dispatcher.Subscribe(eventType, n.handleLifecycle)
	}
	n.dispatcher.Subscribe(events.EventCustomerVisitAlert, n.handleVisitAlert)
}

func (n *NotificationService) handleLifecycle(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("customer_id", event.CustomerID),
		zap.String("actor_admin_id", event.ActorAdminID),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleVisitAlert(ctx context.Context, event events.Event) error {
	n.logger.Info("customer visit threshold exceeded",
		zap.String("customer_id", event.CustomerID),
		zap.String("actor_admin_id", event.ActorAdminID),
		zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("customer_id", event.CustomerID),
		zap.String("event_type", string(event.Type)))
}
