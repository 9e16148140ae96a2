package progress

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(ch <-chan Event) []Event {
	var out []Event
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestPublish_NoSubscribersStillBuffersHistory(t *testing.T) {
	e := NewEmitter()
	e.Publish("run-1", Event{Type: "status", Message: "working"})
	e.Publish("run-1", Event{Type: "status", Message: "still working"})

	assert.Equal(t, 2, e.HistoryLen("run-1"))
}

func TestSubscribe_ReplaysHistoryThenStreams(t *testing.T) {
	e := NewEmitter()
	e.Publish("run-1", Event{Type: "queued"})
	e.Publish("run-1", Event{Type: "status", Message: "first"})

	ch, cancel := e.Subscribe("run-1")
	defer cancel()

	replayed := drain(ch)
	require.Len(t, replayed, 2)
	assert.Equal(t, "queued", replayed[0].Type)

	e.Publish("run-1", Event{Type: "final"})
	live := drain(ch)
	require.Len(t, live, 1)
	assert.Equal(t, "final", live[0].Type)
}

func TestPublish_HistoryRingDropsOldest(t *testing.T) {
	e := NewEmitter()
	for i := 0; i < historyLimit+10; i++ {
		e.Publish("run-1", Event{Type: "status", Message: fmt.Sprintf("step %d", i)})
	}

	assert.Equal(t, historyLimit, e.HistoryLen("run-1"))

	ch, cancel := e.Subscribe("run-1")
	defer cancel()
	replayed := drain(ch)
	require.Len(t, replayed, historyLimit)
	assert.Equal(t, "step 10", replayed[0].Message, "oldest entries drop first")
}

func TestPublish_TimestampsAssignedByClock(t *testing.T) {
	e := NewEmitter()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e.clock = func() time.Time { return fixed }

	e.Publish("run-1", Event{Type: "status"})

	ch, cancel := e.Subscribe("run-1")
	defer cancel()
	events := drain(ch)
	require.Len(t, events, 1)
	assert.Equal(t, fixed, events[0].Timestamp)
}

func TestPublish_EmptyRunIDIgnored(t *testing.T) {
	e := NewEmitter()
	e.Publish("", Event{Type: "status"})
	assert.Equal(t, 0, e.HistoryLen(""))
}

func TestCancel_RemovesSubscriber(t *testing.T) {
	e := NewEmitter()
	ch, cancel := e.Subscribe("run-1")
	cancel()
	cancel() // double cancel must be safe

	_, open := <-ch
	assert.False(t, open)

	// Publishing after cancel must not panic or deliver.
	e.Publish("run-1", Event{Type: "status"})
}

func TestClear_DisconnectsSubscribersAndDropsHistory(t *testing.T) {
	e := NewEmitter()
	e.Publish("run-1", Event{Type: "status"})
	ch, cancel := e.Subscribe("run-1")
	defer cancel()
	drain(ch)

	e.Clear("run-1")

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, e.HistoryLen("run-1"))
}

func TestPublish_IndependentRuns(t *testing.T) {
	e := NewEmitter()
	e.Publish("run-a", Event{Type: "status"})
	e.Publish("run-b", Event{Type: "final"})

	chA, cancelA := e.Subscribe("run-a")
	defer cancelA()
	eventsA := drain(chA)
	require.Len(t, eventsA, 1)
	assert.Equal(t, "status", eventsA[0].Type)
}
