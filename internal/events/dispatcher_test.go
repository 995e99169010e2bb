package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRunsAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventCustomerCreated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventCustomerCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.CustomerID)
		return nil
	})
	d.Subscribe(EventCustomerRemoved, func(context.Context, Event) error {
		calls = append(calls, "removed")
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventCustomerCreated, "c1", "ADM-A", time.Now(), nil))
	require.Error(t, err)
	assert.Equal(t, []string{"first", "second:c1"}, calls)
}

func TestNewEventAssignsID(t *testing.T) {
	a := NewEvent(EventCustomerMerged, "c1", "ADM-A", time.Now(), CustomerMergedPayload{VisitCount: 2})
	b := NewEvent(EventCustomerMerged, "c1", "ADM-A", time.Now(), nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}
