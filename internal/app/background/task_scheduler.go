package background

import (
	"context"
	"sync"
	"time"
)

// TaskScheduler runs task once after delay without blocking the caller.
type TaskScheduler interface {
	Schedule(ctx context.Context, delay time.Duration, task func(ctx context.Context))
}

// TimerScheduler backs follow-up attempts with time.AfterFunc. When ctx is
// cancelled first, the task runs immediately so it can observe the
// cancellation and clean up.
type TimerScheduler struct {
	wg sync.WaitGroup
}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{}
}

func (s *TimerScheduler) Schedule(ctx context.Context, delay time.Duration, task func(ctx context.Context)) {
	s.wg.Add(1)

	var (
		once       sync.Once
		stopCancel func() bool
		timer      *time.Timer
	)
	run := func() {
		once.Do(func() {
			defer s.wg.Done()
			stopCancel()
			task(ctx)
		})
	}

	// Both callbacks are registered before either can fire run.
	var ready sync.WaitGroup
	ready.Add(1)
	timer = time.AfterFunc(delay, func() {
		ready.Wait()
		run()
	})
	stopCancel = context.AfterFunc(ctx, func() {
		ready.Wait()
		if timer.Stop() {
			run()
		}
	})
	ready.Done()
}

// Wait blocks until every scheduled task has finished.
func (s *TimerScheduler) Wait() {
	s.wg.Wait()
}
