package core

import (
	"encoding/binary"
	"log"
	"time"

	"github.com/coroserve/coroserve/core/poller"
	"golang.org/x/sys/unix"
)

// readTimeout bounds how long a Task may sit parked waiting for the next
// byte of a request (including the first byte of a new keep-alive
// request), the Go equivalent of the original connection manager's fixed
// idle timeout.
const readTimeout = 30 * time.Second

// tickInterval is the poller.Wait timeout, chosen so idle-connection
// deadlines are swept promptly even when no fd is otherwise active.
const tickInterval = 1 * time.Second

// Worker is one cooperative-scheduling thread: a goroutine that owns a
// poller instance, a ready queue, and a wait-slot table, and never runs
// more than one Task's user code at a time. It is the direct analogue of
// one worker_loop thread in the original connection manager, with a
// self-pipe used the same way: the dispatcher goroutine hands off accepted
// fds by writing them to pipeW, and the worker's own loop is the only
// reader of pipeR.
type Worker struct {
	id    int
	p     poller.Poller
	sched *scheduler

	pipeR, pipeW int
	pipeBuf      []byte // leftover partial fd bytes across reads

	entry EntryFunc
}

// NewWorker creates a Worker with its own poller and self-pipe, and
// registers the pipe's read end for edge-triggered readability so the
// worker wakes whenever the dispatcher hands off a new connection.
func NewWorker(id int, policy ReadyPolicy, entry EntryFunc) (*Worker, error) {
	p, err := poller.NewPoller()
	if err != nil {
		return nil, newErr(KindFatalWorker, "poller.NewPoller", err)
	}

	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		p.Close()
		return nil, newErr(KindFatalWorker, "pipe2", err)
	}

	w := &Worker{
		id:     id,
		p:      p,
		sched:  newScheduler(policy),
		pipeR:  fds[0],
		pipeW:  fds[1],
		entry:  entry,
	}

	if err := p.Add(w.pipeR); err != nil {
		p.Close()
		return nil, newErr(KindFatalWorker, "poller.Add(selfpipe)", err)
	}

	return w, nil
}

// Dispatch hands fd off to this worker. Safe to call from any goroutine;
// it is the sole legitimate cross-goroutine interaction in the runtime,
// mirroring the original's write() into the worker's self-pipe.
func (w *Worker) Dispatch(fd int) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(fd))
	for {
		_, err := unix.Write(w.pipeW, b[:])
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

// Run is the worker's main loop. It blocks until the process wants to
// stop; callers run it in its own goroutine, one per Worker.
func (w *Worker) Run() error {
	defer w.p.Close()

	for {
		events, err := w.p.Wait(int(tickInterval / time.Millisecond))
		if err != nil {
			return newErr(KindFatalWorker, "poller.Wait", err)
		}

		for _, ev := range events {
			if ev.Fd == w.pipeR {
				w.drainSelfPipe()
				continue
			}
			w.handleConnEvent(ev)
		}

		w.sched.sweepDeadlines(time.Now())
		w.sched.drain(w.finishTask)
	}
}

// drainSelfPipe reads every fd the dispatcher has handed off since the
// last wakeup, batching the way the original worker_loop drained
// fd_batch[32] per self-pipe readability event.
func (w *Worker) drainSelfPipe() {
	var buf [256]byte
	for {
		n, err := unix.Read(w.pipeR, buf[:])
		if n > 0 {
			w.pipeBuf = append(w.pipeBuf, buf[:n]...)
		}
		if err != nil || n == 0 {
			break
		}
	}

	for len(w.pipeBuf) >= 4 {
		fd := int(binary.LittleEndian.Uint32(w.pipeBuf[:4]))
		w.pipeBuf = w.pipeBuf[4:]
		w.acceptTask(fd)
	}
}

// acceptTask registers a freshly-handed-off connection fd and spawns its
// Task, immediately marking it ready so the first recv attempt happens on
// the next drain rather than waiting for a spurious readiness event.
func (w *Worker) acceptTask(fd int) {
	if err := poller.SetNonblock(fd); err != nil {
		log.Printf("worker %d: setnonblock fd=%d: %v", w.id, fd, err)
		unix.Close(fd)
		return
	}
	if err := w.p.Add(fd); err != nil {
		log.Printf("worker %d: poller add fd=%d: %v", w.id, fd, err)
		unix.Close(fd)
		return
	}

	t, err := newTask(w, fd, w.entry)
	if err != nil {
		log.Printf("worker %d: %v", w.id, err)
		w.p.Remove(fd)
		unix.Close(fd)
		return
	}
	w.sched.enqueueReady(t)
}

// handleConnEvent dispatches one poller.Event for a connection fd (never
// the self-pipe) to whichever Task is parked in each direction.
func (w *Worker) handleConnEvent(ev poller.Event) {
	if ev.Readable {
		w.sched.wake(ev.Fd, WaitRead)
	}
	if ev.Writable {
		w.sched.wake(ev.Fd, WaitWrite)
	}
	if ev.HangUp || ev.Err {
		// Wake both directions unconditionally: a Task parked reading
		// needs the wakeup to observe the close as EOF/ECONNRESET, and a
		// Task parked writing needs it to observe the broken pipe.
		w.sched.wakeBoth(ev.Fd)
	}
}

// finishTask runs the mandated close sequence once a Task's entry
// function returns: deregister from the poller, shut down the write half,
// then close the fd. This exact order (poller first, then shutdown, then
// close) matters because closing before deregistering can let the kernel
// recycle the fd number while a stale poller registration still
// references it.
func (w *Worker) finishTask(t *Task) {
	w.sched.destroy(t)
	if err := w.p.Remove(t.fd); err != nil {
		log.Printf("worker %d: poller remove fd=%d: %v", w.id, t.fd, err)
	}
	unix.Shutdown(t.fd, unix.SHUT_WR)
	unix.Close(t.fd)
}
