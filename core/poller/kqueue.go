//go:build darwin || freebsd || netbsd || openbsd
// +build darwin freebsd netbsd openbsd

package poller

import "golang.org/x/sys/unix"

// KqueuePoller is an edge-triggered kqueue multiplexer (EV_CLEAR), the
// BSD/Darwin counterpart to EpollPoller. Each Add registers two kevents,
// one EVFILT_READ and one EVFILT_WRITE, so a single fd behaves the same
// as epoll's combined EPOLLIN|EPOLLOUT registration.
type KqueuePoller struct {
	kqfd   int
	events []unix.Kevent_t
}

// NewPoller creates a new Poller (BSD/Darwin).
func NewPoller() (Poller, error) {
	kqfd, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &KqueuePoller{
		kqfd:   kqfd,
		events: make([]unix.Kevent_t, 1024),
	}, nil
}

func (p *KqueuePoller) Add(fd int) error {
	changes := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD | unix.EV_ENABLE | unix.EV_CLEAR},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_ADD | unix.EV_ENABLE | unix.EV_CLEAR},
	}
	_, err := unix.Kevent(p.kqfd, changes, nil, nil)
	return err
}

func (p *KqueuePoller) Remove(fd int) error {
	changes := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}
	// Deleting a filter that was never armed returns ENOENT; either half
	// may already be gone if the fd was closed out from under us.
	_, err := unix.Kevent(p.kqfd, changes, nil, nil)
	if err == unix.ENOENT {
		return nil
	}
	return err
}

func (p *KqueuePoller) Wait(timeoutMs int) ([]Event, error) {
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(timeoutMs / 1000),
			Nsec: int64((timeoutMs % 1000) * 1000000),
		}
	}

	n, err := unix.Kevent(p.kqfd, nil, p.events, ts)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	byFD := make(map[int]*Event, n)
	for i := 0; i < n; i++ {
		kv := p.events[i]
		fd := int(kv.Ident)
		e, ok := byFD[fd]
		if !ok {
			e = &Event{Fd: fd}
			byFD[fd] = e
		}
		if kv.Filter == unix.EVFILT_READ {
			e.Readable = true
		}
		if kv.Filter == unix.EVFILT_WRITE {
			e.Writable = true
		}
		if kv.Flags&unix.EV_EOF != 0 {
			e.HangUp = true
		}
		if kv.Flags&unix.EV_ERROR != 0 {
			e.Err = true
		}
	}

	out := make([]Event, 0, len(byFD))
	for _, e := range byFD {
		out = append(out, *e)
	}
	return out, nil
}

func (p *KqueuePoller) Close() error {
	return unix.Close(p.kqfd)
}

// SetNonblock puts fd into non-blocking mode.
func SetNonblock(fd int) error {
	return unix.SetNonblock(fd, true)
}
