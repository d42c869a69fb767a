package core

import (
	"time"

	"golang.org/x/sys/unix"
)

// RecvAsync reads into buf, yielding on EAGAIN instead of blocking the OS
// thread. The deadline is measured from the first call for this logical
// read (callers pass the same deadline across repeated Partial results the
// way the original recv_async took its timeout relative to first entry,
// not per-yield), and a zero deadline means no timeout at all.
// ServeConnection always passes a non-zero deadline.
func RecvAsync(t *Task, fd int, buf []byte, deadline time.Time) (int, error) {
	for {
		n, err := unix.Read(fd, buf)
		switch {
		case n == 0 && err == nil:
			return 0, newErr(KindPeerClosed, "recv", ErrPeerClosed)
		case err == nil:
			return n, nil
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			timedOut := t.worker.sched.yieldOnRead(t, fd, deadline)
			if timedOut {
				return 0, newErr(KindTimeout, "recv", ErrTimeout)
			}
			continue
		case err == unix.ECONNRESET || err == unix.EPIPE:
			return 0, newErr(KindPeerClosed, "recv", err)
		default:
			return 0, newErr(KindResource, "recv", err)
		}
	}
}

// SendAsync writes the entirety of buf, yielding on EAGAIN and resuming
// from a cursor rather than restarting, mirroring the original send_async
// loop. It has no timeout: a peer that stops reading its socket buffer
// stalls the write forever, matching the original's design of leaving
// write-side hangs to be caught by whatever supervises the process, not by
// this primitive.
func SendAsync(t *Task, fd int, buf []byte) error {
	written := 0
	for written < len(buf) {
		n, err := unix.Write(fd, buf[written:])
		switch {
		case err == nil:
			written += n
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			t.worker.sched.yieldOn(t, fd, WaitWrite)
		case err == unix.ECONNRESET || err == unix.EPIPE:
			return newErr(KindPeerClosed, "send", err)
		default:
			return newErr(KindResource, "send", err)
		}
	}
	return nil
}

// SendfileAsync zero-copies count bytes of src starting at offset to fd,
// yielding on EAGAIN and retrying on EINTR, exactly as the original
// sendfile_async did, including the sequential-access readahead hint
// (posix_fadvise POSIX_FADV_SEQUENTIAL) issued once up front.
func SendfileAsync(t *Task, fd int, src int, offset int64, count int64) error {
	unix.Fadvise(src, offset, count, unix.FADV_SEQUENTIAL)

	remaining := count
	off := offset
	for remaining > 0 {
		n, err := unix.Sendfile(fd, src, &off, int(remaining))
		switch {
		case err == nil:
			if n == 0 {
				return newErr(KindResource, "sendfile", ErrPeerClosed)
			}
			remaining -= int64(n)
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			t.worker.sched.yieldOn(t, fd, WaitWrite)
		case err == unix.ECONNRESET || err == unix.EPIPE:
			return newErr(KindPeerClosed, "sendfile", err)
		default:
			return newErr(KindResource, "sendfile", err)
		}
	}
	return nil
}
