package outbox_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockflow/internal/application/outbox"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/infrastructure/memory"
	"github.com/jhoicas/stockflow/pkg/logger"
)

type fakePublisher struct {
	mu     sync.Mutex
	sent   []string
	failOn map[string]bool
}

func (p *fakePublisher) Publish(_ context.Context, msg *entity.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failOn[msg.AggregateID] {
		return errors.New("broker caído")
	}
	p.sent = append(p.sent, msg.AggregateID)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func enqueue(t *testing.T, repo interface {
	Enqueue(context.Context, *entity.OutboxMessage) error
}, aggregate string) {
	t.Helper()
	msg, err := entity.NewOutboxMessage(entity.InventoryUpdated{InventoryID: aggregate, Field: "location", At: time.Now().UTC()})
	require.NoError(t, err)
	require.NoError(t, repo.Enqueue(context.Background(), msg))
}

func TestProcessBatch(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repo := store.Repositories().Outbox
	for _, id := range []string{"a", "b", "c"} {
		enqueue(t, repo, id)
	}
	pub := &fakePublisher{failOn: map[string]bool{"b": true}}
	relay := outbox.NewRelay(store, pub, outbox.Config{PollInterval: time.Hour, BatchSize: 10, MaxAttempts: 2}, logger.Nop())

	n, err := relay.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "c"}, pub.sent, "se respeta el orden de creación")

	pending, err := repo.FetchPending(ctx, 10, 2)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, "broker caído", pending[0].LastError)

	n, err = relay.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	pending, err = repo.FetchPending(ctx, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, pending, "agotó los intentos")

	pub.failOn = nil
	n, err = relay.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStartStop(t *testing.T) {
	store := memory.NewStore()
	repo := store.Repositories().Outbox
	enqueue(t, repo, "a")
	enqueue(t, repo, "b")
	pub := &fakePublisher{}
	relay := outbox.NewRelay(store, pub, outbox.Config{PollInterval: 5 * time.Millisecond, BatchSize: 1, MaxAttempts: 3}, logger.Nop())

	relay.Start(context.Background())
	assert.Eventually(t, func() bool { return pub.count() == 2 }, 2*time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, relay.Stop(stopCtx))
}

func TestProcessBatch_RelaysConcurrentesNoDuplican(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repo := store.Repositories().Outbox
	for i := range 30 {
		enqueue(t, repo, fmt.Sprintf("agg-%02d", i))
	}
	pub := &fakePublisher{}
	cfg := outbox.Config{PollInterval: time.Hour, BatchSize: 4, MaxAttempts: 3}
	relays := []*outbox.Relay{
		outbox.NewRelay(store, pub, cfg, logger.Nop()),
		outbox.NewRelay(store, pub, cfg, logger.Nop()),
	}

	var wg sync.WaitGroup
	for _, relay := range relays {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				n, err := relay.ProcessBatch(ctx)
				if err != nil || n == 0 {
					return
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 30, pub.count())
	seen := map[string]int{}
	for _, id := range pub.sent {
		seen[id]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "mensaje %s publicado %d veces", id, n)
	}
	pending, err := repo.FetchPending(ctx, 100, 3)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
