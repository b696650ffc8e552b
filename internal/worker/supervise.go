package worker

import (
	"context"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/Additional-Code/servicedesk/internal/messaging"
)

// Consumer delivers messages to a handler until its context ends.
// messaging.Client and messaging.Subscription both qualify.
type Consumer interface {
	Consume(ctx context.Context, handler messaging.Handler) error
}

// Consume keeps c consuming until ctx is cancelled. A consumer that fails is
// restarted after an exponential delay capped at 30s.
func Consume(ctx context.Context, logger *zap.Logger, c Consumer, handler messaging.Handler) {
	backoff := retry.WithCappedDuration(30*time.Second, retry.NewExponential(time.Second))
	_ = retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.Consume(ctx, handler)
		if err == nil || ctx.Err() != nil {
			return nil
		}
		logger.Warn("consumer failed; restarting", zap.Error(err))
		return retry.RetryableError(err)
	})
}

// Group is a set of goroutines sharing one cancellation.
type Group struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Go starts n copies of fn, numbered from 0.
func Go(n int, fn func(ctx context.Context, id int)) *Group {
	ctx, cancel := context.WithCancel(context.Background())
	g := &Group{cancel: cancel}
	for id := 0; id < n; id++ {
		g.wg.Add(1)
		go func(id int) {
			defer g.wg.Done()
			fn(ctx, id)
		}(id)
	}
	return g
}

// Stop cancels the group and waits for it, or for ctx. Safe on nil.
func (g *Group) Stop(ctx context.Context) error {
	if g == nil {
		return nil
	}
	g.cancel()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
