//go:build linux
// +build linux

package poller

import "golang.org/x/sys/unix"

// EpollPoller is an edge-triggered epoll multiplexer, the Go analogue of
// the original connection manager's epoll_wait loop (EPOLLET was always
// set there so a burst of events could be batch-drained per wakeup).
type EpollPoller struct {
	epfd   int
	events []unix.EpollEvent
}

// NewPoller creates a new Poller (Linux).
func NewPoller() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}

	return &EpollPoller{
		epfd:   epfd,
		events: make([]unix.EpollEvent, 1024),
	}, nil
}

// Add registers fd for both read and write readiness, edge-triggered, plus
// peer-half-close notification.
func (p *EpollPoller) Add(fd int) error {
	ev := unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLOUT | unix.EPOLLRDHUP | unix.EPOLLET,
		Fd:     int32(fd),
	}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *EpollPoller) Remove(fd int) error {
	// Older kernels require a non-nil event pointer for EPOLL_CTL_DEL even
	// though it is ignored.
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, &unix.EpollEvent{})
}

// Wait blocks until at least one registered fd transitions readiness, or
// timeoutMs elapses (-1 blocks indefinitely).
func (p *EpollPoller) Wait(timeoutMs int) ([]Event, error) {
	n, err := unix.EpollWait(p.epfd, p.events, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		raw := p.events[i].Events
		out = append(out, Event{
			Fd:       int(p.events[i].Fd),
			Readable: raw&(unix.EPOLLIN|unix.EPOLLHUP) != 0,
			Writable: raw&unix.EPOLLOUT != 0,
			HangUp:   raw&(unix.EPOLLRDHUP|unix.EPOLLHUP) != 0,
			Err:      raw&unix.EPOLLERR != 0,
		})
	}
	return out, nil
}

func (p *EpollPoller) Close() error {
	return unix.Close(p.epfd)
}

// SetNonblock puts fd into non-blocking mode, required for every fd handed
// to the async I/O primitives.
func SetNonblock(fd int) error {
	return unix.SetNonblock(fd, true)
}
