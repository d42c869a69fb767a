//go:build darwin || freebsd || netbsd || openbsd
// +build darwin freebsd netbsd openbsd

package core

import "golang.org/x/sys/unix"

// setCork toggles TCP_NOPUSH, the BSD-family equivalent of Linux's
// TCP_CORK: set before a header+body write pair so the kernel withholds
// partial segments, cleared after so the last partial segment flushes.
func setCork(fd int, on bool) {
	v := 0
	if on {
		v = 1
	}
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NOPUSH, v)
}
