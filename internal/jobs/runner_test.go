package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Spok95/school-attendance/internal/ctxutil"
)

func TestRunner_EveryNowRecoversAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(ctx, nil)

	var calls atomic.Int32
	var op atomic.Value
	r.EveryNow(10*time.Millisecond, "probe", func(ctx context.Context) error {
		n := calls.Add(1)
		if name, ok := ctxutil.Op(ctx); ok {
			op.Store(name)
		}
		switch n {
		case 1:
			panic("boom")
		case 2:
			return errors.New("remote down")
		}
		return nil
	})

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	r.Wait()

	if calls.Load() < 3 {
		t.Fatalf("job ran %d times, want at least 3 (panic must not stop the loop)", calls.Load())
	}
	if got, _ := op.Load().(string); got != "probe" {
		t.Fatalf("op in context = %q, want probe", got)
	}

	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	if calls.Load() != after {
		t.Fatal("job kept running after cancel")
	}
}

func TestRunner_EveryWaitsForFirstTick(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(ctx, nil)

	var calls atomic.Int32
	r.Every(time.Hour, "digest", func(context.Context) error {
		calls.Add(1)
		return nil
	})
	cancel()
	r.Wait()

	if calls.Load() != 0 {
		t.Fatalf("Every ran before first tick: %d", calls.Load())
	}
}
