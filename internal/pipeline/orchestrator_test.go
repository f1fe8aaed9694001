package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edtech-lab/patent-cli/internal/model"
)

func mkRecords(n int) []*model.Patent {
	out := make([]*model.Patent, n)
	for i := range out {
		out[i] = &model.Patent{OriginalID: string(rune('A'+i%26)) + "S1"}
	}
	return out
}

func collect(ch <-chan Result) []Result {
	var out []Result
	for res := range ch {
		out = append(out, res)
	}
	return out
}

func TestThrottled_OneResultPerRecord(t *testing.T) {
	records := mkRecords(17)
	orch := NewThrottled(OrchestratorConfig{MaxInFlight: 4}, func(ctx context.Context, p *model.Patent) error {
		return nil
	})

	results := collect(orch.Run(context.Background(), records))
	require.Len(t, results, len(records))
	seen := make(map[*model.Patent]bool)
	for _, res := range results {
		assert.NoError(t, res.Err)
		assert.False(t, seen[res.Record], "record produced twice")
		seen[res.Record] = true
	}
}

func TestThrottled_RespectsInFlightBound(t *testing.T) {
	var inFlight, peak atomic.Int32
	orch := NewThrottled(OrchestratorConfig{MaxInFlight: 3}, func(ctx context.Context, p *model.Patent) error {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})

	results := collect(orch.Run(context.Background(), mkRecords(20)))
	require.Len(t, results, 20)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestThrottled_ShutdownStopsAdmission(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var done atomic.Int32
	orch := NewThrottled(OrchestratorConfig{MaxInFlight: 1}, func(ctx context.Context, p *model.Patent) error {
		if done.Add(1) == 2 {
			cancel()
		}
		return nil
	})

	results := collect(orch.Run(ctx, mkRecords(6)))
	require.Len(t, results, 6)

	var ok, shutdown int
	for _, res := range results {
		switch {
		case res.Err == nil:
			ok++
		case errors.Is(res.Err, context.Canceled):
			shutdown++
		default:
			t.Fatalf("unexpected error: %v", res.Err)
		}
	}
	assert.Equal(t, 2, ok)
	assert.Equal(t, 4, shutdown)
}

func TestThrottled_AnnotatorErrorsAreCarried(t *testing.T) {
	want := errors.New("boom")
	orch := NewThrottled(OrchestratorConfig{MaxInFlight: 2}, func(ctx context.Context, p *model.Patent) error {
		if p.OriginalID == "AS1" {
			return want
		}
		return nil
	})

	results := collect(orch.Run(context.Background(), mkRecords(3)))
	require.Len(t, results, 3)
	var failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
			assert.ErrorIs(t, res.Err, want)
			assert.Equal(t, "AS1", res.Record.OriginalID)
		}
	}
	assert.Equal(t, 1, failed)
}

func TestWorkerPool_FactoryCalledPerWorker(t *testing.T) {
	var mu sync.Mutex
	factories := 0
	orch := NewWorkerPool(OrchestratorConfig{MaxInFlight: 3}, func() AnnotateFunc {
		mu.Lock()
		factories++
		mu.Unlock()
		return func(ctx context.Context, p *model.Patent) error { return nil }
	})

	results := collect(orch.Run(context.Background(), mkRecords(10)))
	require.Len(t, results, 10)
	assert.Equal(t, 3, factories)
}

func TestWorkerPool_ShutdownDrainsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var done atomic.Int32
	orch := NewWorkerPool(OrchestratorConfig{MaxInFlight: 1}, func() AnnotateFunc {
		return func(ctx context.Context, p *model.Patent) error {
			if done.Add(1) == 3 {
				cancel()
			}
			return nil
		}
	})

	results := collect(orch.Run(ctx, mkRecords(8)))
	require.Len(t, results, 8)

	var shutdown int
	for _, res := range results {
		if errors.Is(res.Err, context.Canceled) {
			shutdown++
		}
	}
	assert.GreaterOrEqual(t, shutdown, 1)
}

func TestOrchestratorConfig_Defaults(t *testing.T) {
	assert.Equal(t, 1, OrchestratorConfig{}.inFlight())
	assert.Equal(t, 5, OrchestratorConfig{MaxInFlight: 5}.inFlight())
	assert.Nil(t, OrchestratorConfig{}.limiter())

	lim := OrchestratorConfig{RatePerSec: 2}.limiter()
	require.NotNil(t, lim)
	assert.Equal(t, 1, lim.Burst())
}
