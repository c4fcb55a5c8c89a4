package sequence

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"switchboard/pkg/logging"
)

// Task is a unit of work executed on a Runner.
type Task func()

type delayedTask struct {
	due  time.Duration
	seq  uint64
	task Task
}

// Runner executes tasks one at a time in the order they were posted. State
// owned by a component is only touched from tasks on that component's
// Runner, so no further locking is needed for it.
//
// A Runner created with New drains its queue on a dedicated goroutine. A
// Runner created with NewManual has no goroutine; the owner drives it with
// RunUntilIdle and FastForward, which makes test interleavings deterministic.
type Runner struct {
	name   string
	manual bool

	mu   sync.Mutex
	cond *sync.Cond

	// queue holds ready tasks in FIFO order
	queue []Task

	// busy is true while a task executes
	busy bool

	stopped bool
	done    chan struct{}

	// manual mode keeps delayed tasks against a virtual clock
	now     time.Duration
	delayed []delayedTask
	seq     uint64
	timers  map[*time.Timer]struct{}
}

// New creates a Runner backed by its own goroutine.
func New(name string) *Runner {
	r := newRunner(name, false)
	go r.loop()
	return r
}

// NewManual creates a Runner that only executes tasks when driven by
// RunUntilIdle or FastForward.
func NewManual(name string) *Runner {
	return newRunner(name, true)
}

func newRunner(name string, manual bool) *Runner {
	r := &Runner{
		name:   name,
		manual: manual,
		done:   make(chan struct{}),
		timers: make(map[*time.Timer]struct{}),
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Name returns the label given at construction.
func (r *Runner) Name() string {
	return r.name
}

// PostTask queues task for execution. It returns false when the Runner has
// been stopped and the task was dropped.
func (r *Runner) PostTask(task Task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return false
	}
	r.queue = append(r.queue, task)
	r.cond.Broadcast()
	return true
}

// PostDelayedTask queues task after delay has elapsed.
func (r *Runner) PostDelayedTask(task Task, delay time.Duration) bool {
	if delay <= 0 {
		return r.PostTask(task)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return false
	}

	if r.manual {
		r.seq++
		r.delayed = append(r.delayed, delayedTask{due: r.now + delay, seq: r.seq, task: task})
		return true
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		r.mu.Lock()
		delete(r.timers, timer)
		r.mu.Unlock()
		r.PostTask(task)
	})
	r.timers[timer] = struct{}{}
	return true
}

// RunUntilIdle returns once the queue is empty and no task is executing.
// On a manual Runner it executes the tasks itself, including tasks posted
// while draining. Delayed tasks that are not yet due are left pending.
// It must not be called from a task on a goroutine-backed Runner.
func (r *Runner) RunUntilIdle() {
	if r.manual {
		for {
			task, ok := r.pop()
			if !ok {
				return
			}
			r.run(task)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for (len(r.queue) > 0 || r.busy) && !r.stopped {
		r.cond.Wait()
	}
}

// FastForward advances the virtual clock of a manual Runner by d, runs every
// delayed task that became due in due order, and drains the queue.
func (r *Runner) FastForward(d time.Duration) {
	if !r.manual {
		panic(fmt.Sprintf("sequence %s: FastForward on a goroutine-backed runner", r.name))
	}

	r.RunUntilIdle()

	r.mu.Lock()
	r.now += d
	sort.SliceStable(r.delayed, func(i, j int) bool {
		if r.delayed[i].due == r.delayed[j].due {
			return r.delayed[i].seq < r.delayed[j].seq
		}
		return r.delayed[i].due < r.delayed[j].due
	})
	var remaining []delayedTask
	for _, pending := range r.delayed {
		if pending.due <= r.now && !r.stopped {
			r.queue = append(r.queue, pending.task)
		} else {
			remaining = append(remaining, pending)
		}
	}
	r.delayed = remaining
	r.mu.Unlock()

	r.RunUntilIdle()
}

// Stop discards pending tasks and refuses new ones. A goroutine-backed
// Runner exits after the task in progress, if any, returns. Stop may be
// called from a task on the Runner itself.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}
	r.stopped = true
	r.queue = nil
	r.delayed = nil
	for timer := range r.timers {
		timer.Stop()
	}
	r.timers = nil
	r.cond.Broadcast()

	if r.manual {
		close(r.done)
	}
}

// Done is closed once the Runner has stopped executing tasks.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Stopped reports whether Stop has been called.
func (r *Runner) Stopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

func (r *Runner) pop() (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped || len(r.queue) == 0 {
		return nil, false
	}
	task := r.queue[0]
	r.queue[0] = nil
	r.queue = r.queue[1:]
	r.busy = true
	return task, true
}

func (r *Runner) run(task Task) {
	defer func() {
		if p := recover(); p != nil {
			logging.Error("Runner", fmt.Errorf("panic: %v", p), "Task on sequence %s panicked", r.name)
		}
		r.mu.Lock()
		r.busy = false
		r.cond.Broadcast()
		r.mu.Unlock()
	}()
	task()
}

func (r *Runner) loop() {
	defer close(r.done)

	for {
		r.mu.Lock()
		for len(r.queue) == 0 && !r.stopped {
			r.cond.Wait()
		}
		if r.stopped {
			r.mu.Unlock()
			return
		}
		r.mu.Unlock()

		task, ok := r.pop()
		if !ok {
			continue
		}
		r.run(task)
	}
}
