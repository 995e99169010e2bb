package worker

import (
	"context"

	"github.com/spec-kit/customer-ledger/internal/events"
	"github.com/spec-kit/customer-ledger/internal/observability"
	"github.com/spec-kit/customer-ledger/internal/service"
)

var countedEvents = []events.EventType{
	events.EventCustomerCreated,
	events.EventCustomerMerged,
	events.EventCustomerVisitAdjusted,
	events.EventCustomerUpdated,
	events.EventCustomerRemoved,
	events.EventCustomerRestored,
	events.EventAdminRegistered,
}

// StartNotificationWorker registers notification handlers and the event counters.
func StartNotificationWorker(dispatcher events.Dispatcher, notificationService *service.NotificationService, metrics *observability.Metrics) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if dispatcher == nil || metrics == nil {
		return
	}
	for _, eventType := range countedEvents {
		dispatcher.Subscribe(eventType, func(_ context.Context, event events.Event) error {
			metrics.RecordCustomerEvent(string(event.Type))
			return nil
		})
	}
	dispatcher.Subscribe(events.EventCustomerVisitAlert, func(_ context.Context, _ events.Event) error {
		metrics.RecordVisitAlert()
		return nil
	})
}
