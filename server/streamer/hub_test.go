package streamer

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tallycam/tallycam/pkg/log"
)

func TestPublishWithoutSubscribers(t *testing.T) {
	h := NewHub(log.NewTestingLog(t))
	// Must not block or panic
	h.PublishFrame([]byte{1, 2, 3})
	h.PublishCounter(CounterUpdate{PeopleInRoom: 1})
	require.Equal(t, 0, h.SubscriberCount())
}

func TestSubscribeReceive(t *testing.T) {
	h := NewHub(log.NewTestingLog(t))
	sub := h.Subscribe()
	defer sub.Close()
	require.Equal(t, 1, h.SubscriberCount())

	h.PublishFrame([]byte("jpeg"))
	h.PublishCounter(CounterUpdate{Entries: 2, Exits: 1, PeopleInRoom: 1})

	ev := <-sub.C
	require.Equal(t, []byte("jpeg"), ev.FrameJPEG)
	require.Nil(t, ev.Counter)

	ev = <-sub.C
	require.Nil(t, ev.FrameJPEG)
	require.Equal(t, int64(1), ev.Counter.PeopleInRoom)
}

func TestSlowSubscriberDropsNotBlocks(t *testing.T) {
	h := NewHub(log.NewTestingLog(t))
	sub := h.Subscribe()
	defer sub.Close()

	// Publish far beyond the buffer; this must not block
	for i := 0; i < SubscriberBufferSize*3; i++ {
		h.PublishFrame([]byte{byte(i)})
	}

	received := 0
	for {
		select {
		case <-sub.C:
			received++
		default:
			require.Equal(t, SubscriberBufferSize, received)
			return
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := NewHub(log.NewTestingLog(t))
	sub := h.Subscribe()
	sub.Close()
	require.Equal(t, 0, h.SubscriberCount())
	h.PublishFrame([]byte("jpeg"))
	select {
	case <-sub.C:
		t.Fatal("received event after unsubscribe")
	default:
	}
}
