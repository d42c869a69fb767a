package core

import (
	"time"

	"github.com/coroserve/coroserve/core/http"
	"github.com/coroserve/coroserve/core/pools"
)

// maxRequestBodySize bounds how much body a single request may declare via
// Content-Length; the original request handler had no such limit because
// its fixed-size buffers made oversized bodies fail for a different
// reason. An explicit limit is a supplemental hardening this port adds.
const maxRequestBodySize = 10 << 20

// readChunkSize is the buffer size handed to each RecvAsync call while
// reading a request line, headers, or body.
const readChunkSize = 4096

// DispatchFunc runs one parsed request to completion, writing a response
// through ctx before returning.
type DispatchFunc func(ctx *Context)

// NewContextFunc and ReleaseContextFunc let the caller pool Context values
// (Engine backs these with its own SmartPool) without ServeConnection
// needing to know anything about pooling.
type NewContextFunc func(t *Task, fd int, req *http.Request) *Context
type ReleaseContextFunc func(ctx *Context)

// ServeConnection is the Task entry loop for one accepted connection: an
// outer keep-alive loop around an inner recv/parse/dispatch cycle, the Go
// shape of the original request-handler's per-connection loop. It returns
// when the connection should close, at which point the Worker runs the
// mandated deregister/shutdown/close sequence.
func ServeConnection(t *Task, fd int, newCtx NewContextFunc, releaseCtx ReleaseContextFunc, dispatch DispatchFunc) {
	var pending []byte

	readBuf := pools.AcquireFastBuffer(readChunkSize)
	defer pools.ReleaseFastBuffer(readBuf)
	*readBuf = (*readBuf)[:cap(*readBuf)]
	buf := *readBuf

	for {
		req := http.AcquireRequest()
		parser := http.NewParser(req)
		deadline := time.Now().Add(readTimeout)

		verdict := http.Partial
		var perr error
		if len(pending) > 0 {
			verdict, perr = parser.Feed(pending)
			pending = nil
		}

		for verdict == http.Partial {
			n, err := RecvAsync(t, fd, buf, deadline)
			if err != nil {
				http.ReleaseRequest(req)
				return
			}
			verdict, perr = parser.Feed(buf[:n])
		}

		if verdict == http.Malformed {
			ctx := newCtx(t, fd, req)
			ctx.SetKeepAlive(false)
			ctx.Error(400, perr.Error())
			releaseCtx(ctx)
			http.ReleaseRequest(req)
			return
		}

		bodyLen := req.ContentLengthInt()
		if bodyLen > maxRequestBodySize {
			ctx := newCtx(t, fd, req)
			ctx.SetKeepAlive(false)
			ctx.Error(413, "payload too large")
			releaseCtx(ctx)
			http.ReleaseRequest(req)
			return
		}

		if err := readBody(t, fd, req, parser.Unconsumed(), bodyLen, deadline, &pending, buf); err != nil {
			http.ReleaseRequest(req)
			return
		}

		ctx := newCtx(t, fd, req)
		keepAlive := shouldKeepAlive(req)
		ctx.SetKeepAlive(keepAlive)
		dispatch(ctx)
		keepAlive = keepAlive && ctx.WriteErr() == nil
		releaseCtx(ctx)
		http.ReleaseRequest(req)
		if !keepAlive {
			return
		}
	}
}

// readBody fills req.Body to exactly bodyLen bytes, using whatever the
// parser had already buffered past the header terminator before pulling
// more off the wire. Anything read past bodyLen belongs to the next
// pipelined request and is carried forward via pending.
func readBody(t *Task, fd int, req *http.Request, already []byte, bodyLen int, deadline time.Time, pending *[]byte, buf []byte) error {
	req.Body = append(req.Body[:0], already...)
	if len(req.Body) > bodyLen {
		*pending = append(*pending, req.Body[bodyLen:]...)
		req.Body = req.Body[:bodyLen]
		return nil
	}

	for len(req.Body) < bodyLen {
		n, err := RecvAsync(t, fd, buf, deadline)
		if err != nil {
			return err
		}
		need := bodyLen - len(req.Body)
		if n > need {
			req.Body = append(req.Body, buf[:need]...)
			*pending = append(*pending, buf[need:n]...)
		} else {
			req.Body = append(req.Body, buf[:n]...)
		}
	}
	return nil
}

// shouldKeepAlive reproduces the original checkKeepAlive contract exactly:
// HTTP/1.0 never persists regardless of headers, HTTP/1.1 persists unless
// the client sent "Connection: close".
func shouldKeepAlive(req *http.Request) bool {
	if req.Proto == "HTTP/1.0" {
		return false
	}
	return req.Connection != "close"
}
