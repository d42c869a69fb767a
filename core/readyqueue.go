package core

import "github.com/eapache/queue"

// ReadyPolicy selects how newly-woken Tasks are ordered for scheduling.
// The original implementation toggled between the two without ever
// settling on a canonical default (spec.md §9 Open Question); this
// implementation exposes both and defaults to FIFO for fairness.
type ReadyPolicy uint8

const (
	ReadyFIFO ReadyPolicy = iota
	ReadyLIFO
)

// readyQueue is the per-Worker FIFO or LIFO list of runnable Tasks. It is
// touched only by its owning Worker's goroutines and is not safe for
// concurrent use from another Worker, matching the "no cross-worker
// sharing" invariant in spec.md §3.
//
// FIFO is backed by github.com/eapache/queue, a growable ring buffer
// (adopted from the dependency set of _examples/momentics-hioload-ws,
// which named it for exactly this kind of event queue but never wired it).
// LIFO has no natural ring-buffer representation (no push-front), so it
// falls back to a plain slice used as a stack.
type readyQueue struct {
	policy ReadyPolicy
	fifo   *queue.Queue
	lifo   []*Task
}

func newReadyQueue(policy ReadyPolicy) *readyQueue {
	rq := &readyQueue{policy: policy}
	if policy == ReadyFIFO {
		rq.fifo = queue.New()
	}
	return rq
}

// push inserts per the ready policy. Idempotence is not guaranteed: pushing
// the same Task twice enqueues it twice, matching spec.md §4.1's
// enqueue_ready contract.
func (rq *readyQueue) push(t *Task) {
	if rq.policy == ReadyFIFO {
		rq.fifo.Add(t)
		return
	}
	rq.lifo = append(rq.lifo, t)
}

// pop removes and returns the next Task to run, or nil if empty.
func (rq *readyQueue) pop() *Task {
	if rq.policy == ReadyFIFO {
		if rq.fifo.Length() == 0 {
			return nil
		}
		t := rq.fifo.Peek().(*Task)
		rq.fifo.Remove()
		return t
	}

	n := len(rq.lifo)
	if n == 0 {
		return nil
	}
	t := rq.lifo[n-1]
	rq.lifo[n-1] = nil
	rq.lifo = rq.lifo[:n-1]
	return t
}

// remove drops the first occurrence of t from the queue, used by destroy()
// to defensively scrub a Task that is being torn down while still enqueued
// (should not happen in correct usage, but original coroutine_destroy
// guards against it and so does this).
func (rq *readyQueue) remove(t *Task) {
	if rq.policy == ReadyFIFO {
		n := rq.fifo.Length()
		kept := make([]*Task, 0, n)
		for i := 0; i < n; i++ {
			v := rq.fifo.Peek().(*Task)
			rq.fifo.Remove()
			if v != t {
				kept = append(kept, v)
			}
		}
		for _, v := range kept {
			rq.fifo.Add(v)
		}
		return
	}

	for i, v := range rq.lifo {
		if v == t {
			rq.lifo = append(rq.lifo[:i], rq.lifo[i+1:]...)
			return
		}
	}
}

func (rq *readyQueue) len() int {
	if rq.policy == ReadyFIFO {
		return rq.fifo.Length()
	}
	return len(rq.lifo)
}
