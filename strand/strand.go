// Package strand implements a single-threaded cooperative task scheduler,
// the "strand" that every relay client owns one of. All mutable state of a
// client is strand-local: callers on other goroutines enter by submitting a
// task, and results come back through a completion callback invoked on the
// same strand, never by touching the client's fields directly.
package strand

import (
	"fmt"
	"sync"
	"time"

	"github.com/banky/relay/relayerr"
)

// Strand is a single-consumer task queue. Tasks submitted from any
// goroutine run one at a time, in FIFO submission order, on the strand's
// own goroutine.
type Strand struct {
	name string

	tasks chan func()

	closeOnce sync.Once
	done      chan struct{}
	stopped   chan struct{}
}

// New starts a strand's loop goroutine and returns a handle to it. name is
// used only for diagnostics (log fields, panics).
func New(name string) *Strand {
	s := &Strand{
		name:    name,
		tasks:   make(chan func()),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *Strand) loop() {
	defer close(s.stopped)
	for {
		select {
		case fn := <-s.tasks:
			fn()
		case <-s.done:
			// Drain anything already queued before a submitter observed
			// done, so a submitter blocked in Go never leaks.
			for {
				select {
				case fn := <-s.tasks:
					fn()
				default:
					return
				}
			}
		}
	}
}

// Go submits fn to run on the strand. It does not wait for fn to run; fn
// runs strictly after every task submitted earlier by any caller. Go is
// itself safe to call from any goroutine, including from within a task
// running on this same strand (it appends to the back of the queue).
//
// Go is a no-op (fn is dropped) if the strand has already been closed; use
// GoErr when the caller needs to observe that.
func (s *Strand) Go(fn func()) {
	select {
	case s.tasks <- fn:
	case <-s.done:
	}
}

// GoErr is like Go but reports relayerr.KindShutdown instead of silently
// dropping fn when the strand is closed.
func (s *Strand) GoErr(fn func()) error {
	select {
	case s.tasks <- fn:
		return nil
	case <-s.done:
		return relayerr.New(relayerr.KindShutdown, fmt.Errorf("strand %q is closed", s.name))
	}
}

// Call submits fn to the strand and blocks until it has run, returning
// the value and error fn returns. Call must never be invoked from within a
// task already running on this strand (it would deadlock).
func Call[T any](s *Strand, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	resCh := make(chan result, 1)
	err := s.GoErr(func() {
		v, err := fn()
		resCh <- result{v, err}
	})
	if err != nil {
		var zero T
		return zero, err
	}
	select {
	case r := <-resCh:
		return r.v, r.err
	case <-s.stopped:
		var zero T
		return zero, relayerr.New(relayerr.KindShutdown, fmt.Errorf("strand %q stopped while waiting", s.name))
	}
}

// Timer is a cancellable, single-fire alarm scheduled on a strand. Cancel
// delivers relayerr.ErrAborted to the callback as a wake-up signal distinct
// from natural expiry, mirroring operation_aborted semantics.
type Timer struct {
	cancel func()
}

// After schedules fn to run on the strand after d, unless the timer is
// cancelled first. fn receives nil on natural expiry, and
// relayerr.ErrAborted if Cancel was called before expiry.
func (s *Strand) After(d time.Duration, fn func(err error)) *Timer {
	t := time.NewTimer(d)
	cancelCh := make(chan struct{})
	var once sync.Once

	go func() {
		select {
		case <-t.C:
			s.Go(func() { fn(nil) })
		case <-cancelCh:
			t.Stop()
			s.Go(func() { fn(relayerr.ErrAborted) })
		case <-s.done:
			t.Stop()
		}
	}()

	return &Timer{cancel: func() {
		once.Do(func() { close(cancelCh) })
	}}
}

// Cancel aborts the timer if it has not already fired. Calling Cancel more
// than once, or after the timer already fired, is a no-op.
func (t *Timer) Cancel() {
	if t != nil {
		t.cancel()
	}
}

// Close drains and stops the strand. Any task already queued before Close
// is called still runs; tasks submitted after Close is called are dropped.
func (s *Strand) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	<-s.stopped
}

// Name returns the strand's diagnostic name.
func (s *Strand) Name() string { return s.name }
