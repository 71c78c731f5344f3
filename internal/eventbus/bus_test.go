package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusPublishReachesAllSubscribers(t *testing.T) {
	bus := New()
	id1, ch1 := bus.Subscribe(4)
	id2, ch2 := bus.Subscribe(4)
	defer bus.Unsubscribe(id1)
	defer bus.Unsubscribe(id2)

	bus.PublishNew(EventTypeTaskCreated, "T-1", map[string]string{"name": "demo"})

	for _, ch := range []<-chan *Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, EventTypeTaskCreated, ev.Type)
			assert.Equal(t, "T-1", ev.TaskID)
			assert.Equal(t, "demo", ev.Metadata["name"])
			assert.NotEmpty(t, ev.ID)
		default:
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestBusDropsWhenBufferFull(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(1)
	defer bus.Unsubscribe(id)

	bus.PublishNew(EventTypeTaskCreated, "T-1", nil)
	bus.PublishNew(EventTypeTaskClaimed, "T-1", nil)

	ev := <-ch
	assert.Equal(t, EventTypeTaskCreated, ev.Type)
	select {
	case extra := <-ch:
		t.Fatalf("expected the second event to be dropped, got %s", extra.Type)
	default:
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(1)

	bus.Unsubscribe(id)

	_, open := <-ch
	require.False(t, open)

	// Publishing after unsubscribe must not panic on the closed channel.
	bus.PublishNew(EventTypeTaskSynced, "", nil)

	// A second unsubscribe of the same ID is a no-op.
	bus.Unsubscribe(id)
}
