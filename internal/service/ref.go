package service

import (
	"sync"
	"time"

	"switchboard/pkg/logging"
)

// DefaultIdleTimeout is how long an IdleQuitter waits at zero refs before
// asking the broker to stop the instance.
const DefaultIdleTimeout = 5 * time.Second

// RefFactory counts outstanding work. The quit closure runs each time the
// count drops back to zero.
type RefFactory struct {
	mu    sync.Mutex
	count int
	quit  func()
}

// NewRefFactory creates a factory that calls quit when the last Ref is
// released.
func NewRefFactory(quit func()) *RefFactory {
	return &RefFactory{quit: quit}
}

// NewRef takes a reference.
func (f *RefFactory) NewRef() *Ref {
	f.mu.Lock()
	f.count++
	f.mu.Unlock()
	return &Ref{factory: f}
}

// HasNoRefs reports whether every Ref has been released.
func (f *RefFactory) HasNoRefs() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count == 0
}

// Count returns the number of live refs.
func (f *RefFactory) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

func (f *RefFactory) release() {
	f.mu.Lock()
	f.count--
	empty := f.count == 0
	quit := f.quit
	f.mu.Unlock()

	if empty && quit != nil {
		quit()
	}
}

// Ref is one reference on a RefFactory.
type Ref struct {
	factory *RefFactory
	once    sync.Once
}

// Clone takes another reference on the same factory.
func (r *Ref) Clone() *Ref {
	return r.factory.NewRef()
}

// Release drops the reference. Releasing twice has no further effect.
func (r *Ref) Release() {
	r.once.Do(r.factory.release)
}

// IdleQuitter requests termination of a context once its refs have stayed
// at zero for the timeout. A check is also scheduled at construction so a
// service that never takes a ref still quits.
type IdleQuitter struct {
	ctx     *Context
	timeout time.Duration
	refs    *RefFactory
}

// NewIdleQuitter must be called on ctx's sequence.
func NewIdleQuitter(ctx *Context, timeout time.Duration) *IdleQuitter {
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}
	q := &IdleQuitter{ctx: ctx, timeout: timeout}
	q.refs = NewRefFactory(q.scheduleCheck)
	q.scheduleCheck()
	return q
}

// Refs returns the factory whose refs keep the service alive.
func (q *IdleQuitter) Refs() *RefFactory {
	return q.refs
}

func (q *IdleQuitter) scheduleCheck() {
	q.ctx.runner.PostDelayedTask(func() {
		if !q.refs.HasNoRefs() {
			return
		}
		logging.Debug("ServiceContext", "%s idle for %s, requesting quit", q.ctx.Identity(), q.timeout)
		q.ctx.RequestQuit()
	}, q.timeout)
}
