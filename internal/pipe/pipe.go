package pipe

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"switchboard/internal/sequence"
)

// ErrClosed is returned by Send when either end of the pipe is closed.
var ErrClosed = errors.New("pipe closed")

// ErrAlreadyStarted is returned by Start when the endpoint is already bound.
var ErrAlreadyStarted = errors.New("pipe endpoint already started")

var nextID atomic.Uint64

// pair is the state shared by both ends. One mutex guards both endpoints so
// ordering between Send and Close is total.
type pair struct {
	id uint64
	mu sync.Mutex
}

// Endpoint is one end of an ordered, reliable, in-memory message pipe.
// Messages sent on one end are delivered to the other end's message handler
// on the Runner it was started with, in send order. Messages sent before the
// receiving end is started are buffered.
type Endpoint struct {
	p    *pair
	peer *Endpoint
	side byte

	runner    *sequence.Runner
	onMessage func(any)
	onClose   func()
	started   bool

	// pending holds messages that arrived before Start
	pending []any

	closed     bool
	peerClosed bool
}

// New returns the two connected ends of a fresh pipe.
func New() (*Endpoint, *Endpoint) {
	p := &pair{id: nextID.Add(1)}
	a := &Endpoint{p: p, side: 'a'}
	b := &Endpoint{p: p, side: 'b'}
	a.peer = b
	b.peer = a
	return a, b
}

// String identifies the endpoint in log lines.
func (e *Endpoint) String() string {
	return fmt.Sprintf("pipe-%d%c", e.p.id, e.side)
}

// Start binds the endpoint to runner. onMessage receives every inbound
// message; onClose runs once, after all messages sent before the peer closed
// have been delivered. Either callback may be nil.
func (e *Endpoint) Start(runner *sequence.Runner, onMessage func(any), onClose func()) error {
	e.p.mu.Lock()

	if e.started {
		e.p.mu.Unlock()
		return ErrAlreadyStarted
	}
	if e.closed {
		e.p.mu.Unlock()
		return ErrClosed
	}

	e.started = true
	e.runner = runner
	e.onMessage = onMessage
	e.onClose = onClose

	var dropped []any
	for _, msg := range e.pending {
		if !e.postDeliveryLocked(msg) {
			dropped = append(dropped, msg)
		}
	}
	e.pending = nil
	if e.peerClosed {
		e.postCloseLocked()
	}
	e.p.mu.Unlock()

	closeCarried(dropped)
	return nil
}

// Send transmits msg to the peer.
func (e *Endpoint) Send(msg any) error {
	e.p.mu.Lock()

	if e.closed || e.peerClosed {
		e.p.mu.Unlock()
		return ErrClosed
	}

	peer := e.peer
	if !peer.started {
		peer.pending = append(peer.pending, msg)
		e.p.mu.Unlock()
		return nil
	}
	ok := peer.postDeliveryLocked(msg)
	e.p.mu.Unlock()

	if !ok {
		closeCarried([]any{msg})
		return ErrClosed
	}
	return nil
}

// Close shuts this end. The peer observes closure after any messages already
// sent. Closing does not invoke this end's own close handler. Buffered
// messages that were never delivered to this end are discarded, and any
// endpoints they carried are closed with them.
func (e *Endpoint) Close() {
	e.p.mu.Lock()

	if e.closed {
		e.p.mu.Unlock()
		return
	}
	e.closed = true
	dropped := e.pending
	e.pending = nil

	peer := e.peer
	if !peer.closed {
		peer.peerClosed = true
		if peer.started {
			peer.postCloseLocked()
		}
	}
	e.p.mu.Unlock()

	closeCarried(dropped)
}

// IsClosed reports whether either end has been closed.
func (e *Endpoint) IsClosed() bool {
	e.p.mu.Lock()
	defer e.p.mu.Unlock()
	return e.closed || e.peerClosed
}

// Started reports whether Start has been called.
func (e *Endpoint) Started() bool {
	e.p.mu.Lock()
	defer e.p.mu.Unlock()
	return e.started
}

// postDeliveryLocked returns false when the receiving runner has stopped.
func (e *Endpoint) postDeliveryLocked(msg any) bool {
	handler := e.onMessage
	return e.runner.PostTask(func() {
		if !e.deliverable() {
			closeCarried([]any{msg})
			return
		}
		if handler != nil {
			handler(msg)
		}
	})
}

func (e *Endpoint) postCloseLocked() {
	handler := e.onClose
	e.runner.PostTask(func() {
		e.p.mu.Lock()
		closed := e.closed
		e.p.mu.Unlock()
		if closed || handler == nil {
			return
		}
		handler()
	})
}

// deliverable is checked at delivery time so a local Close suppresses
// messages still queued on the runner.
func (e *Endpoint) deliverable() bool {
	e.p.mu.Lock()
	defer e.p.mu.Unlock()
	return !e.closed
}

// Carrier is implemented by messages that transfer endpoints. Endpoints
// carried by an undeliverable message are closed so their peers observe it.
type Carrier interface {
	Endpoints() []*Endpoint
}

func closeCarried(msgs []any) {
	for _, msg := range msgs {
		switch m := msg.(type) {
		case *Endpoint:
			if m != nil {
				m.Close()
			}
		case Carrier:
			for _, ep := range m.Endpoints() {
				if ep != nil {
					ep.Close()
				}
			}
		}
	}
}
