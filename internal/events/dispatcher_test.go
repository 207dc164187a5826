package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var received []Event
	dispatcher.Subscribe(UserLoggedIn, func(_ context.Context, event Event) error {
		received = append(received, event)
		return nil
	})

	event := Event{ID: "evt-1", Type: UserLoggedIn, UserID: "user-1", OccurredAt: time.Now()}
	require.NoError(t, dispatcher.Publish(context.Background(), event))

	require.Len(t, received, 1)
	assert.Equal(t, "user-1", received[0].UserID)
}

func TestDispatcherIgnoresUnsubscribedTypes(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	called := false
	dispatcher.Subscribe(UserRegistered, func(context.Context, Event) error {
		called = true
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: UserLoggedOut}))
	assert.False(t, called)
}

func TestDispatcherHandlerErrorsDoNotPropagate(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	dispatcher.Subscribe(UserLoggedOut, func(context.Context, Event) error {
		return errors.New("audit sink down")
	})
	second := false
	dispatcher.Subscribe(UserLoggedOut, func(context.Context, Event) error {
		second = true
		return nil
	})

	assert.NoError(t, dispatcher.Publish(context.Background(), Event{Type: UserLoggedOut}))
	assert.True(t, second)
}
