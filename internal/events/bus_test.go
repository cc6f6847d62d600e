package events

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus() *Bus {
	return NewBus(zerolog.New(nil).Level(zerolog.Disabled))
}

func TestBus_EmitDeliversToSubscribers(t *testing.T) {
	bus := newTestBus()

	var got []*Event
	bus.Subscribe(DatasetUpdated, func(e *Event) { got = append(got, e) })
	bus.Subscribe(SyncCompleted, func(e *Event) { t.Fatal("wrong type delivered") })

	event := bus.Emit("sync", &DatasetUpdatedData{Changes: []FileChange{{Table: "holdings"}}})

	require.Len(t, got, 1)
	assert.Same(t, event, got[0])
	assert.Equal(t, DatasetUpdated, event.Type)
	assert.Equal(t, "sync", event.Module)
	_, err := uuid.Parse(event.ID)
	assert.NoError(t, err)
	assert.WithinDuration(t, time.Now(), event.Timestamp, time.Second)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := newTestBus()

	calls := 0
	unsubscribe := bus.Subscribe(SyncStarted, func(*Event) { calls++ })
	assert.Equal(t, 1, bus.Subscribers(SyncStarted))

	bus.Emit("sync", &SyncStartedData{Source: "local"})
	unsubscribe()
	unsubscribe()
	bus.Emit("sync", &SyncStartedData{Source: "local"})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.Subscribers(SyncStarted))
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := newTestBus()

	var mu sync.Mutex
	seen := map[EventType]int{}
	unsubscribe := bus.SubscribeAll(func(e *Event) {
		mu.Lock()
		seen[e.Type]++
		mu.Unlock()
	})

	bus.Emit("sync", &SyncStartedData{})
	bus.Emit("sync", &SyncCompletedData{})
	bus.EmitError("sync", errors.New("boom"), nil)

	assert.Equal(t, map[EventType]int{SyncStarted: 1, SyncCompleted: 1, ErrorOccurred: 1}, seen)

	unsubscribe()
	for _, typ := range AllTypes {
		assert.Equal(t, 0, bus.Subscribers(typ))
	}
}

func TestEvent_JSONRoundTrip(t *testing.T) {
	bus := newTestBus()
	modTime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	event := bus.Emit("sync", &DatasetUpdatedData{Changes: []FileChange{
		{Table: "volatility", File: "portfolio_volatility_all_stocks.csv", Size: 42, ModTime: modTime},
	}})

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, event.ID, decoded.ID)

	data, ok := decoded.Data.(*DatasetUpdatedData)
	require.True(t, ok)
	assert.Equal(t, []string{"volatility"}, data.Tables())
	assert.Equal(t, int64(42), data.Changes[0].Size)
}

func TestEvent_UnmarshalUnknownType(t *testing.T) {
	var e Event
	require.NoError(t, json.Unmarshal([]byte(`{"type":"CUSTOM","data":{"x":1}}`), &e))

	generic, ok := e.Data.(*GenericEventData)
	require.True(t, ok)
	assert.Equal(t, EventType("CUSTOM"), generic.EventType())
	assert.Equal(t, 1.0, generic.Data["x"])
}
