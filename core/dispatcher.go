package core

import (
	"net"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Dispatcher owns the listening socket and hands each accepted connection
// to exactly one Worker in round-robin order. It is the direct analogue of
// the original connection manager's cm_dispatch_connection: a single
// acceptor thread that never touches a connection's data path itself,
// only its handoff.
type Dispatcher struct {
	listenFD int
	workers  []*Worker
	next     atomic.Uint64
}

// NewDispatcher binds and listens on addr (host:port) and prepares to
// round-robin accepted connections across workers. Binding happens with
// raw syscalls rather than net.Listen so the accepted fds stay entirely
// outside the Go runtime's own netpoller, which would otherwise fight the
// custom poller for ownership of readiness events on the same fd.
func NewDispatcher(addr string, workers []*Worker) (*Dispatcher, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, newErr(KindFatalProcess, "resolve listen addr", err)
	}

	domain := unix.AF_INET
	if tcpAddr.IP == nil || tcpAddr.IP.To4() == nil {
		domain = unix.AF_INET6
	}

	// The listening socket itself stays blocking: Run's accept loop is a
	// plain OS thread, not a cooperative Task, so blocking here costs
	// nothing and needs no poller registration. Only accepted connection
	// fds run through the non-blocking, poller-driven path.
	fd, err := unix.Socket(domain, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, newErr(KindFatalProcess, "socket", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, newErr(KindFatalProcess, "setsockopt SO_REUSEADDR", err)
	}

	var sa unix.Sockaddr
	if domain == unix.AF_INET {
		var addr4 [4]byte
		if ip4 := tcpAddr.IP.To4(); ip4 != nil {
			copy(addr4[:], ip4)
		}
		sa = &unix.SockaddrInet4{Port: tcpAddr.Port, Addr: addr4}
	} else {
		var addr16 [16]byte
		if tcpAddr.IP != nil {
			copy(addr16[:], tcpAddr.IP.To16())
		}
		sa = &unix.SockaddrInet6{Port: tcpAddr.Port, Addr: addr16}
	}

	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, newErr(KindFatalProcess, "bind", err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return nil, newErr(KindFatalProcess, "listen", err)
	}

	return &Dispatcher{listenFD: fd, workers: workers}, nil
}

// Run blocks accepting connections and handing each one to the next
// worker in round-robin order. There is no work-stealing and no
// connection migration: once a connection is dispatched to a worker, that
// worker owns it until close.
func (d *Dispatcher) Run() error {
	for {
		connFD, _, err := unix.Accept4(d.listenFD, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			switch err {
			case unix.EINTR, unix.EAGAIN, unix.ECONNABORTED:
				continue
			default:
				return newErr(KindFatalProcess, "accept4", err)
			}
		}

		if err := unix.SetsockoptInt(connFD, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
			// Not fatal: Nagle's algorithm staying on only costs latency.
			_ = err
		}

		w := d.pickWorker()
		if err := w.Dispatch(connFD); err != nil {
			// A self-pipe write failing means the worker pool is in an
			// inconsistent state (Fatal-to-process, not scoped to this one
			// connection): the dispatcher cannot know whether the worker's
			// side of the pipe is still being drained, so it cannot safely
			// keep handing off connections to any worker.
			unix.Close(connFD)
			return newErr(KindFatalProcess, "worker.Dispatch", err)
		}
	}
}

func (d *Dispatcher) pickWorker() *Worker {
	i := d.next.Add(1) - 1
	return d.workers[i%uint64(len(d.workers))]
}

// Close stops accepting new connections.
func (d *Dispatcher) Close() error {
	return unix.Close(d.listenFD)
}
