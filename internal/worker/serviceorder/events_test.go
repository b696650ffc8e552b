package serviceorder

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/Additional-Code/servicedesk/internal/config"
	"github.com/Additional-Code/servicedesk/internal/entity"
	"github.com/Additional-Code/servicedesk/internal/messaging"
	svc "github.com/Additional-Code/servicedesk/internal/service/serviceorder"
)

const topic = "ordens-servico.events"

var at = time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

func message(t *testing.T, event svc.Event) messaging.Message {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return messaging.Message{Topic: topic, Key: svc.EventKey(event.ID), Value: payload}
}

func TestEventHandlerCountsEvents(t *testing.T) {
	cfg := config.Config{}
	cfg.Messaging.Kafka.Topic = topic

	reg, err := NewEventHandler(zap.NewNop(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, topic, reg.Topic)

	ctx := context.Background()
	assert.NoError(t, reg.Handler(ctx, message(t, svc.Event{Type: svc.EventCreated, ID: 1, Number: 1027, Status: entity.StatusOpen, At: at})))
	assert.NoError(t, reg.Handler(ctx, message(t, svc.Event{Type: svc.EventDeleted, ID: 1, Number: 1027, Status: entity.StatusOpen})))
	assert.Error(t, reg.Handler(ctx, messaging.Message{Topic: topic, Value: []byte("{")}))
}

type recordingEvictor struct {
	mu  sync.Mutex
	ids []int64
}

func (r *recordingEvictor) Evict(_ context.Context, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *recordingEvictor) evicted() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.ids...)
}

// feed delivers a fixed batch to its consumer, then blocks until cancelled.
type feed struct {
	messages []messaging.Message
}

func (f *feed) Consume(ctx context.Context, handler messaging.Handler) error {
	for _, msg := range f.messages {
		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestCacheSyncEvictsOnUpdateAndDelete(t *testing.T) {
	ev := &recordingEvictor{}
	sub := &feed{messages: []messaging.Message{
		message(t, svc.Event{Type: svc.EventCreated, ID: 1, At: at}),
		message(t, svc.Event{Type: svc.EventUpdated, ID: 1, At: at}),
		{Topic: topic, Value: []byte("not json")},
		message(t, svc.Event{Type: svc.EventDeleted, ID: 2, At: at}),
	}}

	cs := newCacheSync(sub, ev, true, zap.NewNop())
	require.NoError(t, cs.Start(context.Background()))
	require.Eventually(t, func() bool { return len(ev.evicted()) == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, cs.Stop(context.Background()))

	assert.Equal(t, []int64{1, 2}, ev.evicted())
}

func TestCacheSyncOnlyRunsWithMemoryCache(t *testing.T) {
	tests := []struct {
		name      string
		enabled   bool
		driver    string
		listening bool
	}{
		{name: "memory cache", enabled: true, driver: "memory", listening: true},
		{name: "redis cache", enabled: true, driver: "redis"},
		{name: "messaging disabled", driver: "memory"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Config{}
			cfg.Messaging.Enabled = tc.enabled
			cfg.Messaging.Driver = "rabbitmq"
			cfg.Cache.Driver = tc.driver

			cs, err := NewCacheSync(fxtest.NewLifecycle(t), cfg, &recordingEvictor{}, zap.NewNop())
			require.NoError(t, err)
			assert.Equal(t, tc.listening, cs.enabled)
			assert.Equal(t, tc.listening, cs.sub != nil)
		})
	}
}

func TestDisabledCacheSyncStartsNothing(t *testing.T) {
	cs := newCacheSync(nil, &recordingEvictor{}, false, zap.NewNop())
	require.NoError(t, cs.Start(context.Background()))
	require.NoError(t, cs.Stop(context.Background()))
	assert.Nil(t, cs.group)
}
