// Package bridge turns callback-style audio APIs into blocking calls with a
// bounded wait.
package bridge

import (
	"errors"
	"sync"
	"time"
)

// DefaultTimeout bounds every connect, query and command stage.
const DefaultTimeout = 5 * time.Second

// ErrTimeout is returned by Wait and Await when the result did not arrive in
// time.
var ErrTimeout = errors.New("timed out waiting for completion")

type state int

const (
	pending state = iota
	completed
	abandoned
)

// Completion is a single-slot completion signal shared by a waiting caller
// and the goroutine that delivers the result. The channel is closed exactly
// once, when the slot is completed.
type Completion[T any] struct {
	mu     sync.Mutex
	state  state
	value  T
	err    error
	signal chan struct{}
}

func NewCompletion[T any]() *Completion[T] {
	return &Completion[T]{signal: make(chan struct{})}
}

// Complete stores the result and wakes the waiter. It returns false when the
// slot was already completed or the waiter gave up; the caller then owns v.
func (c *Completion[T]) Complete(v T, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != pending {
		return false
	}
	c.state = completed
	c.value = v
	c.err = err
	close(c.signal)
	return true
}

// Done reports whether a result has been stored.
func (c *Completion[T]) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == completed
}

// Wait blocks until Complete is called or timeout elapses. On timeout the
// slot is abandoned and ErrTimeout returned, unless a result slipped in
// before the slot could be abandoned.
func (c *Completion[T]) Wait(timeout time.Duration) (T, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-c.signal:
	case <-timer.C:
		if c.abandon() {
			var zero T
			return zero, ErrTimeout
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.err
}

func (c *Completion[T]) abandon() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == completed {
		return false
	}
	c.state = abandoned
	return true
}

// Op is one blocking sub-operation run under Await.
type Op[T any] struct {
	// Run performs the operation. It runs on its own goroutine.
	Run func() (T, error)
	// Cancel aborts a Run that is still in flight after the wait timed out.
	// Best effort: Run may already have finished.
	Cancel func()
	// Discard releases a successful result that arrived after the wait
	// timed out.
	Discard func(T)
}

// Await runs op.Run and waits at most timeout for it.
func Await[T any](timeout time.Duration, op Op[T]) (T, error) {
	c := NewCompletion[T]()

	go func() {
		v, err := op.Run()
		if !c.Complete(v, err) && err == nil && op.Discard != nil {
			op.Discard(v)
		}
	}()

	v, err := c.Wait(timeout)
	if errors.Is(err, ErrTimeout) && !c.Done() && op.Cancel != nil {
		op.Cancel()
	}
	return v, err
}
