package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	kind Kind
	at   time.Time
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []call
}

func (r *fakeRunner) RunRegularAt(_ context.Context, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{KindRegular, at})
	return 1, nil
}

func (r *fakeRunner) RunUrgentAt(_ context.Context, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{KindUrgent, at})
	return 0, nil
}

func (r *fakeRunner) snapshot() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

var brt = time.FixedZone("BRT", -3*60*60)

func newTestTrigger(runner SweepRunner, locker Locker) *CronTrigger {
	cfg := DefaultCronTriggerConfig()
	cfg.Location = brt
	return NewCronTrigger(cfg, runner, locker, nil)
}

func TestCronTrigger_Tick(t *testing.T) {
	ctx := context.Background()

	t.Run("fires_on_configured_hours_with_slot_time", func(t *testing.T) {
		runner := &fakeRunner{}
		trig := newTestTrigger(runner, nil)

		trig.Tick(ctx, time.Date(2024, 6, 10, 6, 0, 31, 0, brt))
		trig.Tick(ctx, time.Date(2024, 6, 10, 9, 0, 0, 0, brt))
		trig.Tick(ctx, time.Date(2024, 6, 10, 12, 1, 10, 0, brt))
		trig.Tick(ctx, time.Date(2024, 6, 10, 18, 0, 5, 0, brt))

		assert.Equal(t, []call{
			{KindUrgent, time.Date(2024, 6, 10, 6, 0, 0, 0, brt)},
			{KindUrgent, time.Date(2024, 6, 10, 12, 0, 0, 0, brt)},
			{KindRegular, time.Date(2024, 6, 10, 18, 0, 0, 0, brt)},
			{KindUrgent, time.Date(2024, 6, 10, 18, 0, 0, 0, brt)},
		}, runner.snapshot())
	})

	t.Run("one_run_per_slot", func(t *testing.T) {
		runner := &fakeRunner{}
		trig := newTestTrigger(runner, nil)

		for m := 0; m < 60; m += 5 {
			trig.Tick(ctx, time.Date(2024, 6, 10, 15, m, 0, 0, brt))
		}
		require.Len(t, runner.snapshot(), 1)

		trig.Tick(ctx, time.Date(2024, 6, 11, 15, 0, 0, 0, brt))
		assert.Len(t, runner.snapshot(), 2)
	})

	t.Run("reads_hours_in_operating_timezone", func(t *testing.T) {
		runner := &fakeRunner{}
		trig := newTestTrigger(runner, nil)

		// 21:00 UTC is 18:00 BRT.
		trig.Tick(ctx, time.Date(2024, 6, 10, 21, 0, 0, 0, time.UTC))
		calls := runner.snapshot()
		require.Len(t, calls, 2)
		assert.Equal(t, KindRegular, calls[0].kind)
		assert.Equal(t, 18, calls[0].at.Hour())
	})

	t.Run("shared_locker_runs_slot_once_across_instances", func(t *testing.T) {
		locker := NewLocalLocker()
		a, b := &fakeRunner{}, &fakeRunner{}
		trigA := newTestTrigger(a, locker)
		trigB := newTestTrigger(b, locker)

		now := time.Date(2024, 6, 10, 6, 0, 0, 0, brt)
		trigA.Tick(ctx, now)
		trigB.Tick(ctx, now)

		assert.Len(t, a.snapshot(), 1)
		assert.Empty(t, b.snapshot())
	})
}

func TestCronTrigger_StartStop(t *testing.T) {
	runner := &fakeRunner{}
	cfg := DefaultCronTriggerConfig()
	cfg.CheckInterval = 5 * time.Millisecond
	trig := NewCronTrigger(cfg, runner, nil, nil)

	require.NoError(t, trig.Start(context.Background()))
	require.NoError(t, trig.Start(context.Background()))

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, trig.Stop(stopCtx))
	require.NoError(t, trig.Stop(stopCtx))
}

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()
	now := time.Date(2024, 6, 10, 6, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	ok, err := l.Acquire(ctx, "urgent:2024-06-10T06", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = l.Acquire(ctx, "urgent:2024-06-10T06", time.Hour)
	assert.False(t, ok, "held key must not be re-acquired")

	ok, _ = l.Acquire(ctx, "regular:2024-06-10T06", time.Hour)
	assert.True(t, ok, "distinct keys are independent")

	now = now.Add(time.Hour)
	ok, _ = l.Acquire(ctx, "urgent:2024-06-10T06", time.Hour)
	assert.True(t, ok, "expired key is free again")
}

type overlapRunner struct {
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (r *overlapRunner) run() {
	n := r.active.Add(1)
	for {
		seen := r.maxSeen.Load()
		if n <= seen || r.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	r.active.Add(-1)
}

func (r *overlapRunner) RunRegularAt(context.Context, time.Time) (int, error) { r.run(); return 0, nil }
func (r *overlapRunner) RunUrgentAt(context.Context, time.Time) (int, error) { r.run(); return 0, nil }
func (r *overlapRunner) RunRegularForOwnerAt(context.Context, string, time.Time) (int, error) {
	r.run()
	return 0, nil
}

func TestSerialRunner(t *testing.T) {
	inner := &overlapRunner{}
	serial := NewSerialRunner(inner)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 3 {
			case 0:
				_, _ = serial.RunRegularAt(context.Background(), time.Now())
			case 1:
				_, _ = serial.RunUrgentAt(context.Background(), time.Now())
			default:
				_, _ = serial.RunRegularForOwnerAt(context.Background(), "user-1", time.Now())
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), inner.maxSeen.Load(), "sweeps must not overlap")
}

func TestRedisLocker_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	locker := NewRedisLockerWithClient(client, "test:")
	defer locker.Close()

	ok, err := locker.Acquire(context.Background(), "regular:2024-06-10T18", time.Minute)
	assert.Error(t, err)
	assert.False(t, ok)
}
