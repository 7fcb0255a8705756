package backtest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/breakout/market"
)

func TestLiveRunnerProcessesQueuedBarsInOrder(t *testing.T) {
	r, j := newRunner(t, "run-live")
	r.Options.CloseEnd = false

	live, err := NewLiveRunner(r, 4)
	require.NoError(t, err)

	bars := breakoutBars()
	done := make(chan error, 1)
	go func() { done <- live.Run(context.Background()) }()

	// The queue depth is below the bar count; Submit must block, not drop.
	for _, b := range bars {
		require.NoError(t, live.Submit(b))
	}
	live.CloseInput()
	require.NoError(t, <-done)

	// Same tape, same pipeline: the breakout entry fills exactly as it
	// does in a stored-range run.
	require.NotEmpty(t, j.Fills)
	assert.Equal(t, "buy", j.Fills[0].Side)
	assert.Equal(t, 105.0, j.Fills[0].Price)
	assert.Len(t, j.Equity, len(bars))
}

func TestLiveRunnerSkipsOutOfOrderBars(t *testing.T) {
	r, j := newRunner(t, "run-live-ooo")
	r.Options.CloseEnd = false

	live, err := NewLiveRunner(r, 8)
	require.NoError(t, err)

	bars := breakoutBars()[:4]
	stale := bars[0]
	stale.Time = bars[0].Time.Add(-time.Minute)

	done := make(chan error, 1)
	go func() { done <- live.Run(context.Background()) }()

	for _, b := range bars {
		require.NoError(t, live.Submit(b))
	}
	require.NoError(t, live.Submit(stale), "stale bars are accepted then skipped")
	live.CloseInput()
	require.NoError(t, <-done)

	assert.Len(t, j.Equity, 4, "the stale bar must not produce a tick")
}

func TestLiveRunnerConcurrentSubmitAndClose(t *testing.T) {
	// Submits racing CloseInput must resolve as either an enqueue or the
	// documented error, never a send on a closed channel.
	r, _ := newRunner(t, "run-live-race")
	r.Options.CloseEnd = false

	live, err := NewLiveRunner(r, 1)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- live.Run(context.Background()) }()

	var wg sync.WaitGroup
	for _, b := range breakoutBars()[:8] {
		b := b
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = live.Submit(b)
		}()
	}
	live.CloseInput()
	wg.Wait()
	require.NoError(t, <-done)
}

func TestLiveRunnerSubmitAfterCloseFails(t *testing.T) {
	r, _ := newRunner(t, "run-live-closed")
	live, err := NewLiveRunner(r, 2)
	require.NoError(t, err)

	live.CloseInput()
	assert.Error(t, live.Submit(market.Bar{Symbol: "BTC-USD", Time: t0}))
}

func TestLiveRunnerHonorsContext(t *testing.T) {
	r, _ := newRunner(t, "run-live-ctx")
	live, err := NewLiveRunner(r, 2)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, live.Run(ctx), context.Canceled)
}
