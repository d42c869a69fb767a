package core

// Kind of readiness a Task is parked on.
type WaitKind uint8

const (
	WaitRead WaitKind = iota
	WaitWrite
)

func (k WaitKind) String() string {
	if k == WaitWrite {
		return "write"
	}
	return "read"
}

// EntryFunc is the body of a Task: the function that drives one connection
// end to end (recv -> parse -> middleware -> send, in a keep-alive loop).
type EntryFunc func(t *Task, fd int)

// Task is a stackful cooperative unit of execution, one per connection.
// Go's own goroutine stack substitutes for the original implementation's
// fixed-size ucontext stack (see DESIGN.md); resumeCh/pausedCh substitute
// for swapcontext as the context-switch primitive, so that only one Task
// per Worker is ever executing user code at a time.
type Task struct {
	worker *Worker
	fd     int // the connection fd this Task owns end to end

	resumeCh chan struct{} // scheduler -> task: "run"
	pausedCh chan struct{} // task -> scheduler: "I yielded or finished"

	finished bool

	// The fd and direction this Task is currently parked on, valid only
	// while the Task is present in its worker's wait-slot table
	// (worker.sched.waits).
	waitFD   int
	waitKind WaitKind

	// timedOut is set by the scheduler immediately before resuming a Task
	// whose read deadline expired, so RecvAsync can distinguish a timeout
	// wakeup from a genuine readability wakeup without touching the fd.
	timedOut bool

	// next is not used: readyQueue stores *Task values directly in both
	// its FIFO and LIFO modes. It is always nil.
	next *Task
}

// newTask allocates a Task and starts its goroutine, which immediately
// blocks waiting for the scheduler's first resume signal. Creation itself
// cannot fail in the Go runtime the way ucontext stack allocation can in
// the original C implementation, but the signature is kept error-returning
// for parity with spec.md's create() contract and so callers already
// handle the ResourceExhausted path.
func newTask(w *Worker, fd int, entry EntryFunc) (*Task, error) {
	t := &Task{
		worker:   w,
		fd:       fd,
		resumeCh: make(chan struct{}),
		pausedCh: make(chan struct{}),
	}

	go t.trampoline(fd, entry)

	return t, nil
}

// trampoline waits for the first resume, runs entry, marks the task
// finished, and hands control back to the scheduler permanently. It must
// not touch worker state directly outside the resume/pause handoff: all
// worker-state mutation happens on the scheduler's goroutine between pause
// and the next resume, exactly mirroring the original's single-threaded
// schedule() loop.
func (t *Task) trampoline(fd int, entry EntryFunc) {
	<-t.resumeCh

	entry(t, fd)

	t.finished = true
	t.pausedCh <- struct{}{}
}

// yield parks the current task's control with the scheduler without
// touching the wait slot table; used internally by yieldOn after the wait
// slot bookkeeping is already committed.
func (t *Task) yield() {
	t.pausedCh <- struct{}{}
	<-t.resumeCh
}
