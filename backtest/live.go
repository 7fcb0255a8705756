package backtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"github.com/quantlab/breakout/market"
)

// LiveRunner drives the same tick pipeline from arriving bars instead of
// a stored range. Bars queue in arrival order; a single worker processes
// at most one cycle at a time, so a slow tick delays the ticks behind it
// rather than dropping or reordering them.
type LiveRunner struct {
	runner *Runner

	mu     sync.Mutex
	queue  chan market.Bar
	closed bool
	lastT  time.Time
}

// NewLiveRunner wraps a configured Runner. queueDepth bounds how many
// bars may wait behind an in-flight tick before Submit blocks.
func NewLiveRunner(r *Runner, queueDepth int) (*LiveRunner, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	if queueDepth <= 0 {
		queueDepth = 64
	}
	return &LiveRunner{
		runner: r,
		queue:  make(chan market.Bar, queueDepth),
	}, nil
}

// Submit enqueues a newly arrived bar. It blocks while the queue is full
// rather than dropping; ordering across Submit calls is preserved. The
// lock spans the send, so CloseInput can never close the channel under
// an in-flight Submit.
func (l *LiveRunner) Submit(b market.Bar) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return fmt.Errorf("backtest: live runner closed")
	}
	l.queue <- b
	return nil
}

// CloseInput signals that no further bars will arrive. Run drains the
// queue and returns.
func (l *LiveRunner) CloseInput() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
}

// Run consumes queued bars until the input closes or ctx is canceled.
// Each bar gets a full tick cycle; cancellation takes effect between
// ticks, never inside one.
func (l *LiveRunner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok := <-l.queue:
			if !ok {
				return nil
			}
			if !l.lastT.IsZero() && b.Time.Before(l.lastT) {
				// The clock never runs backwards. Duplicates of the
				// current timestamp still tick; the engine and simulator
				// drop them on their side.
				logs.Warnf("live: dropping stale bar %s@%s, clock at %s",
					b.Symbol, b.Time.Format(time.RFC3339), l.lastT.Format(time.RFC3339))
				continue
			}
			if err := l.runner.Tick(b.Time, []market.Bar{b}, false); err != nil {
				return err
			}
			l.lastT = b.Time
		}
	}
}
