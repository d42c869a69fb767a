package core

import (
	"strings"
	"testing"
	"time"

	"github.com/coroserve/coroserve/core/http"
	"golang.org/x/sys/unix"
)

func serveOneConnection(t *testing.T, raw string) string {
	t.Helper()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatal(err)
	}
	serverFD, clientFD := fds[0], fds[1]
	defer unix.Close(clientFD)

	newCtx := func(tk *Task, fd int, req *http.Request) *Context { return NewContext(tk, fd, req) }
	releaseCtx := func(ctx *Context) {}
	dispatch := func(ctx *Context) { ctx.String(200, "ok") }

	entry := func(tk *Task, fd int) {
		ServeConnection(tk, fd, newCtx, releaseCtx, dispatch)
	}

	w, err := NewWorker(2, ReadyFIFO, entry)
	if err != nil {
		t.Fatal(err)
	}
	go w.Run()

	if err := w.Dispatch(serverFD); err != nil {
		t.Fatal(err)
	}

	if _, err := unix.Write(clientFD, []byte(raw)); err != nil {
		t.Fatal(err)
	}

	if err := unix.SetNonblock(clientFD, true); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 4096)
	total := 0
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, err := unix.Read(clientFD, buf[total:])
		if err == unix.EAGAIN {
			if total > 0 {
				return string(buf[:total])
			}
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if err != nil {
			return string(buf[:total])
		}
		if n == 0 {
			return string(buf[:total])
		}
		total += n
	}
	t.Fatal("timed out waiting for a response")
	return ""
}

func TestServeConnectionEmitsKeepAliveByDefault(t *testing.T) {
	resp := serveOneConnection(t, "GET / HTTP/1.1\r\nHost: h\r\n\r\n")
	if !strings.Contains(resp, "Connection: keep-alive") {
		t.Fatalf("expected a keep-alive Connection header, got %q", resp)
	}
}

func TestServeConnectionEmitsCloseWhenRequested(t *testing.T) {
	resp := serveOneConnection(t, "GET / HTTP/1.1\r\nHost: h\r\nConnection: close\r\n\r\n")
	if !strings.Contains(resp, "Connection: close") {
		t.Fatalf("expected a close Connection header, got %q", resp)
	}
}

func TestServeConnectionEmitsCloseForHTTP10(t *testing.T) {
	resp := serveOneConnection(t, "GET / HTTP/1.0\r\nHost: h\r\n\r\n")
	if !strings.Contains(resp, "Connection: close") {
		t.Fatalf("expected a close Connection header for HTTP/1.0, got %q", resp)
	}
}
