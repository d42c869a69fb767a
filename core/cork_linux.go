//go:build linux
// +build linux

package core

import "golang.org/x/sys/unix"

// setCork toggles TCP_CORK, the socket option the original serve_file used
// to hold back partial frames while the header write and the sendfile body
// write land as one segment instead of two. Uncorking flushes whatever is
// buffered immediately.
func setCork(fd int, on bool) {
	v := 0
	if on {
		v = 1
	}
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_CORK, v)
}
