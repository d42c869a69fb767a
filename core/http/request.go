package http

import (
	"net/textproto"
	"strconv"
	"sync"
)

// Request is a zero-allocation HTTP request structure
type Request struct {
	Method string
	Path   string
	Proto  string

	// Predefined common header fields (zero-allocation)
	ContentType   string
	ContentLength string
	UserAgent     string
	Accept        string
	Host          string
	Connection    string

	// Extra headers (allocated only when needed)
	ExtraHeaders map[string]string

	// Query parameters
	Query map[string]string

	// Request body
	Body []byte
}

var requestPool = sync.Pool{
	New: func() any {
		return &Request{
			Body: make([]byte, 0, 1024),
		}
	},
}

func AcquireRequest() *Request {
	return requestPool.Get().(*Request)
}

// Reset resets the request for reuse (memory not freed, just reset)
func (r *Request) Reset() {
	r.Method = ""
	r.Path = ""
	r.Proto = ""
	r.ContentType = ""
	r.ContentLength = ""
	r.UserAgent = ""
	r.Accept = ""
	r.Host = ""
	r.Connection = ""

	// Clear maps without freeing memory
	if r.ExtraHeaders != nil {
		for k := range r.ExtraHeaders {
			delete(r.ExtraHeaders, k)
		}
	}

	if r.Query != nil {
		for k := range r.Query {
			delete(r.Query, k)
		}
	}

	// Keep slice capacity, just reset length
	r.Body = r.Body[:0]
}

func ReleaseRequest(req *Request) {
	req.Reset()
	requestPool.Put(req)
}

// ContentLengthInt parses the Content-Length header, returning 0 if it is
// absent, empty, or not a valid non-negative integer (treated the same as
// absent: a request with no declared body is not an error).
func (r *Request) ContentLengthInt() int {
	if r.ContentLength == "" {
		return 0
	}
	n, err := strconv.Atoi(r.ContentLength)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Header looks up a header by name, checking the predefined fast fields
// before falling back to ExtraHeaders. Lookup is case-insensitive (RFC
// 7230 §3.2): the key is canonicalized the same way SetHeader canonicalizes
// on storage, so "connection" and "Connection" resolve identically.
func (r *Request) Header(key string) string {
	switch textproto.CanonicalMIMEHeaderKey(key) {
	case "Content-Type":
		return r.ContentType
	case "Content-Length":
		return r.ContentLength
	case "User-Agent":
		return r.UserAgent
	case "Accept":
		return r.Accept
	case "Host":
		return r.Host
	case "Connection":
		return r.Connection
	default:
		if r.ExtraHeaders == nil {
			return ""
		}
		return r.ExtraHeaders[textproto.CanonicalMIMEHeaderKey(key)]
	}
}

// SetHeader sets a header (prioritizes predefined fields), canonicalizing
// key so storage and lookup agree regardless of the wire casing a client
// sent.
func (r *Request) SetHeader(key, value string) {
	switch textproto.CanonicalMIMEHeaderKey(key) {
	case "Content-Type":
		r.ContentType = value
	case "Content-Length":
		r.ContentLength = value
	case "User-Agent":
		r.UserAgent = value
	case "Accept":
		r.Accept = value
	case "Host":
		r.Host = value
	case "Connection":
		r.Connection = value
	default:
		if r.ExtraHeaders == nil {
			r.ExtraHeaders = make(map[string]string)
		}
		r.ExtraHeaders[textproto.CanonicalMIMEHeaderKey(key)] = value
	}
}
