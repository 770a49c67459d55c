package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "billminder/internal/errors"
)

// SweepRunner runs one sweep as of the given instant.
type SweepRunner interface {
	RunRegularAt(ctx context.Context, at time.Time) (int, error)
	RunUrgentAt(ctx context.Context, at time.Time) (int, error)
}

// OwnerSweepRunner can also run the regular sweep over one owner's bills.
type OwnerSweepRunner interface {
	SweepRunner
	RunRegularForOwnerAt(ctx context.Context, userID string, at time.Time) (int, error)
}

// Kind names a sweep.
type Kind string

const (
	KindRegular Kind = "regular"
	KindUrgent  Kind = "urgent"
)

// CronTriggerConfig holds the hours each sweep runs at.
type CronTriggerConfig struct {
	RegularHours []int
	UrgentHours  []int

	// CheckInterval is how often the loop looks at the clock.
	CheckInterval time.Duration
	// LockTTL is how long a claimed slot stays claimed.
	LockTTL time.Duration
	// Location is the operating timezone the hours are read in.
	Location *time.Location
}

// DefaultCronTriggerConfig returns the production schedule: one regular
// sweep at 18:00 and urgent sweeps at 06, 12, 15 and 18.
func DefaultCronTriggerConfig() CronTriggerConfig {
	return CronTriggerConfig{
		RegularHours:  []int{18},
		UrgentHours:   []int{6, 12, 15, 18},
		CheckInterval: 30 * time.Second,
		LockTTL:       2 * time.Hour,
		Location:      time.UTC,
	}
}

// CronTrigger fires the sweeps at the top of each configured hour. Each
// (kind, date, hour) slot runs at most once per process and, through the
// Locker, at most once across processes.
type CronTrigger struct {
	config CronTriggerConfig
	runner SweepRunner
	locker Locker
	logger *zap.SugaredLogger
	now    func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastSlot  map[Kind]string
}

// NewCronTrigger creates a trigger. A nil locker means an in-process one.
func NewCronTrigger(config CronTriggerConfig, runner SweepRunner, locker Locker, logger *zap.SugaredLogger) *CronTrigger {
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultCronTriggerConfig().CheckInterval
	}
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultCronTriggerConfig().LockTTL
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &CronTrigger{
		config:   config,
		runner:   runner,
		locker:   locker,
		logger:   logger,
		now:      time.Now,
		lastSlot: make(map[Kind]string),
	}
}

// Start launches the check loop. Calling Start twice is a no-op.
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Infow("Sweep scheduler started",
		"regular_hours", c.config.RegularHours,
		"urgent_hours", c.config.UrgentHours,
		"timezone", c.config.Location.String(),
	)
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep, bounded by ctx.
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Sweep scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick(ctx, c.now())
		}
	}
}

// Tick runs every sweep whose hour matches now and whose slot has not run
// yet. The urgent sweep runs after the regular one. Sweeps receive the slot
// instant (hh:00:00), so urgent slots three hours apart pass the cooldown.
func (c *CronTrigger) Tick(ctx context.Context, now time.Time) {
	now = now.In(c.config.Location)
	slot := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, c.config.Location)

	if containsHour(c.config.RegularHours, now.Hour()) {
		c.fire(ctx, KindRegular, slot, c.runner.RunRegularAt)
	}
	if containsHour(c.config.UrgentHours, now.Hour()) {
		c.fire(ctx, KindUrgent, slot, c.runner.RunUrgentAt)
	}
}

func (c *CronTrigger) fire(ctx context.Context, kind Kind, slot time.Time, run func(context.Context, time.Time) (int, error)) {
	key := slot.Format("2006-01-02T15")

	c.mu.Lock()
	if c.lastSlot[kind] == key {
		c.mu.Unlock()
		return
	}
	c.lastSlot[kind] = key
	c.mu.Unlock()

	ok, err := c.locker.Acquire(ctx, fmt.Sprintf("%s:%s", kind, key), c.config.LockTTL)
	if err != nil {
		c.logger.Errorw("Failed to claim sweep slot", "kind", kind, "slot", key, "error", err)
		return
	}
	if !ok {
		c.logger.Debugw("Sweep slot claimed elsewhere", "kind", kind, "slot", key)
		return
	}

	c.logger.Infow("Running sweep", "kind", kind, "slot", key)
	sent, err := run(ctx, slot)
	if err != nil {
		c.logger.Errorw("Sweep failed", "kind", kind, "slot", key, "error", apperrors.Detail(err))
		return
	}
	c.logger.Infow("Sweep finished", "kind", kind, "slot", key, "sent", sent)
}

func containsHour(hours []int, h int) bool {
	for _, x := range hours {
		if x == h {
			return true
		}
	}
	return false
}

// SerialRunner lets the scheduler and manual triggers share one SweepRunner
// without overlapping runs.
type SerialRunner struct {
	mu     sync.Mutex
	runner OwnerSweepRunner
}

// NewSerialRunner wraps runner.
func NewSerialRunner(runner OwnerSweepRunner) *SerialRunner {
	return &SerialRunner{runner: runner}
}

// RunRegularAt implements SweepRunner.
func (s *SerialRunner) RunRegularAt(ctx context.Context, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner.RunRegularAt(ctx, at)
}

// RunUrgentAt implements SweepRunner.
func (s *SerialRunner) RunUrgentAt(ctx context.Context, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner.RunUrgentAt(ctx, at)
}

// RunRegularForOwnerAt implements OwnerSweepRunner.
func (s *SerialRunner) RunRegularForOwnerAt(ctx context.Context, userID string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner.RunRegularForOwnerAt(ctx, userID, at)
}

var _ OwnerSweepRunner = (*SerialRunner)(nil)
