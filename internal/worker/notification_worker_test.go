package worker

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/customer-ledger/internal/config"
	"github.com/spec-kit/customer-ledger/internal/events"
	"github.com/spec-kit/customer-ledger/internal/observability"
	"github.com/spec-kit/customer-ledger/internal/service"
)

func TestWorkerCountsEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics("test")
	notifications := service.NewNotificationService(dispatcher, zap.NewNop(), config.NotificationConfig{WebhookURL: "http://hook.local"})

	StartNotificationWorker(dispatcher, notifications, metrics)

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventCustomerCreated, "c1", "ADM-A", time.Now(), nil)))
	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventCustomerVisitAlert, "c1", "ADM-A", time.Now(),
		events.VisitAlertPayload{VisitCount: 4, Threshold: 3})))

	count, err := testutil.GatherAndCount(metrics.Registry(), "test_customer_events_total", "test_customer_visit_alerts_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
