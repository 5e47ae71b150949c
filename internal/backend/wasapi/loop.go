package wasapi

import (
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/vmorsell/app-mixer/internal/bridge"
)

var errLoopStopped = errors.New("apartment loop stopped")

// loop runs work on one goroutine pinned to its OS thread. COM objects are
// bound to the apartment of the thread that created them, so every call on
// them goes through the same loop.
type loop struct {
	work     chan func()
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	// Only touched from the loop goroutine.
	cleanups []func()
}

// startLoop starts the loop goroutine and runs init on it. When init
// succeeds, fini runs on the same goroutine after the loop stops and all
// registered cleanups have run.
func startLoop(init func() error, fini func()) (*loop, error) {
	l := &loop{
		work: make(chan func()),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}

	ready := make(chan error, 1)
	go l.run(init, fini, ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return l, nil
}

func (l *loop) run(init func() error, fini func(), ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(l.done)

	if err := init(); err != nil {
		ready <- err
		return
	}
	ready <- nil

	defer fini()
	defer l.unwind()

	for {
		select {
		case <-l.quit:
			return
		case fn := <-l.work:
			fn()
		}
	}
}

// onRelease registers fn to run when the loop stops. Cleanups run in reverse
// order of registration. Must be called from the loop goroutine.
func (l *loop) onRelease(fn func()) {
	l.cleanups = append(l.cleanups, fn)
}

func (l *loop) unwind() {
	for i := len(l.cleanups) - 1; i >= 0; i-- {
		l.cleanups[i]()
	}
	l.cleanups = nil
}

// call runs fn on the loop goroutine and waits for it to return.
func (l *loop) call(fn func() error) error {
	result := make(chan error, 1)
	select {
	case l.work <- func() { result <- fn() }:
	case <-l.quit:
		return errLoopStopped
	}
	return <-result
}

// stop asks the loop to exit. Work already running finishes first; stop does
// not wait for it.
func (l *loop) stop() {
	l.stopOnce.Do(func() {
		close(l.quit)
	})
}

// wait blocks until the loop goroutine has exited and torn down.
func (l *loop) wait() {
	<-l.done
}

// invoke runs fn on l and waits at most timeout for it. On timeout the loop is
// stopped, so whatever fn holds is released once it returns.
func invoke[T any](l *loop, timeout time.Duration, fn func() (T, error)) (T, error) {
	return bridge.Await(timeout, bridge.Op[T]{
		Run: func() (T, error) {
			var v T
			err := l.call(func() error {
				var err error
				v, err = fn()
				return err
			})
			return v, err
		},
		Cancel: l.stop,
	})
}
