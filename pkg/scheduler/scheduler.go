package scheduler

import (
	"sync"
	"time"
)

// RecurringTask runs a function at a fixed interval on a single goroutine,
// so that a run never overlaps the previous one. Ticks missed while a run is
// in progress are dropped.
type RecurringTask struct {
	interval time.Duration
	fn       func()

	mutex    sync.Mutex
	started  bool
	stopped  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewRecurringTask returns a task that, once started, runs fn every interval.
func NewRecurringTask(interval time.Duration, fn func()) *RecurringTask {
	return &RecurringTask{
		interval: interval,
		fn:       fn,
		stopChan: make(chan struct{}),
	}
}

// Start starts the task. It's a no-op if the task was already started or
// stopped.
func (t *RecurringTask) Start() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.started || t.stopped {
		return
	}
	t.started = true

	t.wg.Add(1)
	go t.loop()
}

// Stop prevents any further run and waits for the one in progress, if any,
// to complete. It can be called multiple times.
func (t *RecurringTask) Stop() {
	t.mutex.Lock()
	if !t.stopped {
		t.stopped = true
		close(t.stopChan)
	}
	t.mutex.Unlock()

	t.wg.Wait()
}

func (t *RecurringTask) loop() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopChan:
			return
		case <-ticker.C:
			// stop has priority over a tick that fired at the same time.
			select {
			case <-t.stopChan:
				return
			default:
			}
			t.fn()
		}
	}
}
