package sse

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complaint-hub/complaint-hub/internal/domain/notification"
)

func TestHub_DeliverToRecipient(t *testing.T) {
	h := NewHub(zerolog.Nop())
	mine := notification.NewSubscriber("s1", "cit-1", 1)
	other := notification.NewSubscriber("s2", "cit-2", 1)
	h.Register(mine)
	h.Register(other)
	assert.Equal(t, 2, h.Count())

	f := &notification.Fact{ID: uuid.New(), EventKind: notification.EventStatusChanged, RecipientID: "cit-1"}
	require.NoError(t, h.Deliver(context.Background(), f))

	msg := <-mine.Messages
	assert.Equal(t, "STATUS_CHANGED", msg.Event)
	var got notification.Fact
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, f.ID, got.ID)
	assert.Empty(t, other.Messages)

	// Buffer of one: the second send is skipped instead of blocking.
	require.NoError(t, h.Deliver(context.Background(), f))
	require.NoError(t, h.Deliver(context.Background(), f))
	assert.Len(t, mine.Messages, 1)
}

func TestHub_UnregisterAndStop(t *testing.T) {
	h := NewHub(zerolog.Nop())
	s := notification.NewSubscriber("s1", "cit-1", 1)
	h.Register(s)

	h.Unregister("s1")
	_, open := <-s.Messages
	assert.False(t, open)
	assert.Equal(t, 0, h.Count())

	h.Register(notification.NewSubscriber("s2", "cit-1", 1))
	h.Stop()
	assert.Equal(t, 0, h.Count())
}

func TestHub_DeliverCancelled(t *testing.T) {
	h := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, h.Deliver(ctx, &notification.Fact{}))
}
