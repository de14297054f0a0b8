package recorder

import (
	"sync"
	"time"

	"github.com/tdaugaard/wow-recorder/internal/engine"
)

// defaultSignalWait bounds how long start/stop block on one output signal.
const defaultSignalWait = 5 * time.Second

// signalQueue is an unbounded FIFO fed by the engine's asynchronous output
// signal callback and drained by awaitSignal. Pushes never block.
type signalQueue struct {
	mu    sync.Mutex
	items []engine.Signal
	wake  chan struct{}
}

func newSignalQueue() *signalQueue {
	return &signalQueue{wake: make(chan struct{}, 1)}
}

// push appends a signal and wakes at most one waiter.
func (q *signalQueue) push(sig engine.Signal) {
	q.mu.Lock()
	q.items = append(q.items, sig)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// next returns the oldest queued signal, blocking up to timeout for one to
// arrive. The race between a queued item and the timer is atomic: exactly one
// side wins and the other is abandoned.
func (q *signalQueue) next(timeout time.Duration) (engine.Signal, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			sig := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return sig, true
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-timer.C:
			return engine.Signal{}, false
		}
	}
}

// len reports how many signals are queued.
func (q *signalQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// awaitSignal drains the next signal and validates it against expected.
// Any failure is terminal for the start/stop call in progress; no retry.
func (r *Recorder) awaitSignal(expected string) error {
	sig, ok := r.signals.next(r.signalWait)
	if !ok {
		r.logger.Error("output signal never arrived", "expected", expected, "wait", r.signalWait)
		r.publish(eventSignalTimeout(expected))
		return &SignalTimeoutError{Expected: expected}
	}
	if sig.Type != engine.SignalTypeRecording {
		return &UnexpectedSignalTypeError{Got: sig.Type}
	}
	if sig.Signal != expected {
		return &UnexpectedSignalValueError{Expected: expected, Got: sig.Signal}
	}
	r.logger.Debug("got output signal", "signal", expected)
	return nil
}
