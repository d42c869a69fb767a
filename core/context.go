package core

import (
	"encoding/json"
	stdhttp "net/http"

	"github.com/coroserve/coroserve/core/http"
	"github.com/coroserve/coroserve/core/sendfile"
)

// Context is the per-request handle passed to route handlers and
// middleware. It owns a pooled response buffer and drives every write
// through SendAsync/SendfileAsync so that a slow client never blocks the
// worker's OS thread, the async-first requirement the original FDContext's
// busy-looping writeResponse did not actually honor.
type Context struct {
	task *Task
	fd   int

	req *http.Request

	paramKeys        [4]string
	paramValues      [4]string
	paramCount       int
	paramMapOverflow map[string]string

	responseBuf []byte
	written     bool
	statusCode  int
	aborted     bool
	writeErr    error
	keepAlive   bool
}

func newContext(t *Task, fd int, req *http.Request) *Context {
	return &Context{
		task:        t,
		fd:          fd,
		req:         req,
		statusCode:  stdhttp.StatusOK,
		responseBuf: make([]byte, 0, 4096),
		keepAlive:   true,
	}
}

// NewContext builds a Context outside of a pool, for callers (tests,
// non-Engine embedders of the connection/scheduler machinery) that need
// one without going through Engine.acquireContext. fd may be -1 and t may
// be nil for a Context that never calls a method touching the network.
func NewContext(t *Task, fd int, req *http.Request) *Context {
	return newContext(t, fd, req)
}

// Reset clears a Context for reuse from a pool, keeping the response
// buffer's backing array the way http.Request.Reset keeps its Body's.
func (c *Context) Reset(t *Task, fd int, req *http.Request) {
	c.task = t
	c.fd = fd
	c.req = req
	c.paramCount = 0
	if c.paramMapOverflow != nil {
		for k := range c.paramMapOverflow {
			delete(c.paramMapOverflow, k)
		}
	}
	c.responseBuf = c.responseBuf[:0]
	c.written = false
	c.statusCode = stdhttp.StatusOK
	c.aborted = false
	c.writeErr = nil
	c.keepAlive = true
}

// Method, Path, Query, Header, Body mirror the request accessors the
// original context exposed unchanged, since handlers written against this
// shape need no adaptation from the C-derived API surface.
func (c *Context) Method() string           { return c.req.Method }
func (c *Context) Path() string             { return c.req.Path }
func (c *Context) Body() []byte             { return c.req.Body }
func (c *Context) Header(key string) string { return c.req.Header(key) }

// SetPath overrides the path used for subsequent routing decisions,
// letting an early pipeline stage (URI decoding, prefix stripping)
// rewrite what later stages see without touching the underlying request.
func (c *Context) SetPath(p string) { c.req.Path = p }

func (c *Context) Query(key string) string {
	if c.req.Query == nil {
		return ""
	}
	return c.req.Query[key]
}

// Param retrieves a router-populated path parameter, checking the
// fixed-size fast slots before the overflow map.
func (c *Context) Param(key string) string {
	for i := 0; i < c.paramCount && i < len(c.paramKeys); i++ {
		if c.paramKeys[i] == key {
			return c.paramValues[i]
		}
	}
	if c.paramMapOverflow != nil {
		return c.paramMapOverflow[key]
	}
	return ""
}

// SetParam is called by the engine after a route match, once per captured
// path segment.
func (c *Context) SetParam(key, value string) {
	if c.paramCount < len(c.paramKeys) {
		c.paramKeys[c.paramCount] = key
		c.paramValues[c.paramCount] = value
		c.paramCount++
		return
	}
	if c.paramMapOverflow == nil {
		c.paramMapOverflow = make(map[string]string)
	}
	c.paramMapOverflow[key] = value
}

func (c *Context) Status(code int) { c.statusCode = code }
func (c *Context) Abort()          { c.aborted = true }
func (c *Context) IsAborted() bool { return c.aborted }

// SetKeepAlive records whether the connection persists after this response,
// so writeHead can emit the matching Connection header itself: constructing
// that header is middleware's/the connection loop's responsibility, not a
// side effect the client has to infer from whether the socket stays open.
// ServeConnection calls this once per request, before dispatch runs, with
// the keep-alive decision computed from the request's own Connection header
// and protocol version.
func (c *Context) SetKeepAlive(keepAlive bool) { c.keepAlive = keepAlive }

// Bind unmarshals the request body as JSON, the only body encoding this
// server understands.
func (c *Context) Bind(v any) error {
	return json.Unmarshal(c.req.Body, v)
}

// WriteErr reports the error (if any) from the most recent write, so
// callers driving the keep-alive decision can force a close after a
// broken pipe instead of trusting a connection that just failed to
// deliver its response.
func (c *Context) WriteErr() error { return c.writeErr }

// header is one extra response header beyond the Content-Type,
// Content-Length and Connection headers every response carries, e.g.
// {"Location", "/docs/"}.
type header struct{ name, value string }

func (c *Context) writeHead(code int, contentType string, contentLength int, extra ...header) {
	c.responseBuf = c.responseBuf[:0]
	c.responseBuf = append(c.responseBuf, "HTTP/1.1 "...)
	c.responseBuf = appendInt(c.responseBuf, code)
	c.responseBuf = append(c.responseBuf, ' ')
	c.responseBuf = append(c.responseBuf, stdhttp.StatusText(code)...)
	c.responseBuf = append(c.responseBuf, "\r\nContent-Type: "...)
	c.responseBuf = append(c.responseBuf, contentType...)
	c.responseBuf = append(c.responseBuf, "\r\nContent-Length: "...)
	c.responseBuf = appendInt(c.responseBuf, contentLength)
	if c.keepAlive {
		c.responseBuf = append(c.responseBuf, "\r\nConnection: keep-alive"...)
	} else {
		c.responseBuf = append(c.responseBuf, "\r\nConnection: close"...)
	}
	for _, h := range extra {
		c.responseBuf = append(c.responseBuf, "\r\n"...)
		c.responseBuf = append(c.responseBuf, h.name...)
		c.responseBuf = append(c.responseBuf, ": "...)
		c.responseBuf = append(c.responseBuf, h.value...)
	}
	c.responseBuf = append(c.responseBuf, "\r\n\r\n"...)
}

func (c *Context) flush(body []byte) {
	c.responseBuf = append(c.responseBuf, body...)
	c.writeErr = SendAsync(c.task, c.fd, c.responseBuf)
	c.written = true
}

// Written reports whether a response has already been sent, so the
// engine's fallback 404 responder knows not to double-write.
func (c *Context) Written() bool { return c.written }

// ResponseBytes returns the raw bytes of the response written so far
// (status line, headers, body), for tests and diagnostic middleware that
// need to inspect what actually went out over the wire.
func (c *Context) ResponseBytes() []byte { return c.responseBuf }

// String sends a text/plain response.
func (c *Context) String(code int, s string) {
	c.writeHead(code, "text/plain; charset=utf-8", len(s))
	c.flush([]byte(s))
}

// Redirect sends a response with a Location header and no body, e.g. the
// static file router's trailing-slash redirect.
func (c *Context) Redirect(code int, location string) {
	c.writeHead(code, "text/plain; charset=utf-8", 0, header{"Location", location})
	c.flush(nil)
}

// JSON marshals v and sends it as application/json.
func (c *Context) JSON(code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.String(stdhttp.StatusInternalServerError, "json marshal error")
		return
	}
	c.writeHead(code, "application/json; charset=utf-8", len(data))
	c.flush(data)
}

// Bytes sends data as application/octet-stream.
func (c *Context) Bytes(code int, data []byte) {
	c.writeHead(code, "application/octet-stream", len(data))
	c.flush(data)
}

// Data sends data with a caller-chosen content type.
func (c *Context) Data(code int, contentType string, data []byte) {
	c.writeHead(code, contentType, len(data))
	c.flush(data)
}

// Error sends a JSON error envelope.
func (c *Context) Error(code int, message string) {
	c.JSON(code, map[string]any{"code": code, "message": message})
}

// Success sends a JSON success envelope.
func (c *Context) Success(data any) {
	c.JSON(stdhttp.StatusOK, map[string]any{"code": 0, "message": "success", "data": data})
}

// staticFileCache backs every Context.ServeFile call with one process-wide
// LRU of open file descriptors, the same shared-cache shape the original
// sendfile package used.
var staticFileCache = sendfile.NewFileCache(2000)

// ServeFile streams a file with a zero-copy sendfile(2), the FDContext
// method the original left as a TODO. Headers are written with SendAsync
// first, then the body is transferred with SendfileAsync directly from
// the cached file's fd, never buffered through userspace. The socket is
// corked around the two writes so they coalesce into one TCP burst instead
// of two, matching the original serve_file's cork/uncork bracket. A HEAD
// request gets the real Content-Length but no body, per RFC 7231 §4.3.2.
func (c *Context) ServeFile(filePath string, contentType string) error {
	entry, err := staticFileCache.Get(filePath)
	if err != nil {
		c.String(stdhttp.StatusNotFound, "not found")
		return err
	}

	isHead := c.Method() == "HEAD"

	c.writeHead(stdhttp.StatusOK, contentType, int(entry.Size))
	c.written = true

	setCork(c.fd, true)
	defer setCork(c.fd, false)

	if err := SendAsync(c.task, c.fd, c.responseBuf); err != nil {
		c.writeErr = err
		return err
	}
	if isHead {
		return nil
	}

	err = SendfileAsync(c.task, c.fd, int(entry.File.Fd()), 0, entry.Size)
	c.writeErr = err
	return err
}

// appendInt is the allocation-free integer formatter carried over from the
// original context implementation; status codes and content lengths are
// the only integers ever written into a response line.
func appendInt(b []byte, i int) []byte {
	if i == 0 {
		return append(b, '0')
	}
	if i < 0 {
		b = append(b, '-')
		i = -i
	}
	for n := i; n > 0; n /= 10 {
		b = append(b, '0')
	}
	for j := len(b) - 1; i > 0; j-- {
		b[j] = byte('0' + i%10)
		i /= 10
	}
	return b
}
