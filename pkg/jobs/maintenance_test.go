package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunnerExecutesTaskOnInterval(t *testing.T) {
	var runs int64
	r := NewRunner(nil)
	r.Register(Task{
		Name:     "count",
		Interval: 5 * time.Millisecond,
		Run: func(context.Context) error {
			atomic.AddInt64(&runs, 1)
			return nil
		},
	})

	r.Start(context.Background())
	defer r.Stop()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&runs) >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestRunnerKeepsScheduleAfterTaskFailure(t *testing.T) {
	var runs int64
	r := NewRunner(nil)
	r.Register(Task{
		Name:     "flaky",
		Interval: 5 * time.Millisecond,
		Run: func(context.Context) error {
			atomic.AddInt64(&runs, 1)
			return errors.New("boom")
		},
	})

	r.Start(context.Background())
	defer r.Stop()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&runs) >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestRunnerStopWaitsForTasks(t *testing.T) {
	var runs int64
	r := NewRunner(nil)
	r.Register(Task{
		Name:     "count",
		Interval: 5 * time.Millisecond,
		Run: func(context.Context) error {
			atomic.AddInt64(&runs, 1)
			return nil
		},
	})

	r.Start(context.Background())
	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&runs) >= 1
	}, time.Second, 5*time.Millisecond)

	r.Stop()
	after := atomic.LoadInt64(&runs)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt64(&runs), "no ticks after Stop returns")
}

func TestRunnerIgnoresInvalidRegistrations(t *testing.T) {
	r := NewRunner(nil)
	r.Register(Task{Name: "no-func", Interval: time.Second})
	r.Register(Task{Name: "no-interval", Run: func(context.Context) error { return nil }})
	assert.Empty(t, r.tasks)

	r.Start(context.Background())
	r.Register(Task{Name: "late", Interval: time.Second, Run: func(context.Context) error { return nil }})
	assert.Empty(t, r.tasks)
	r.Stop()
}
