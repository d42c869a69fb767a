package http

import (
	"strings"
	"testing"
)

func parseAll(t *testing.T, raw string) (*Request, Verdict, error) {
	t.Helper()
	req := AcquireRequest()
	p := NewParser(req)
	v, err := p.Feed([]byte(raw))
	return req, v, err
}

func TestParserSimpleGET(t *testing.T) {
	req, v, err := parseAll(t, "GET /hello?x=1 HTTP/1.1\r\nHost: example.com\r\nUser-Agent: test\r\n\r\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != HeadersComplete {
		t.Fatalf("expected HeadersComplete, got %v", v)
	}
	if req.Method != "GET" || req.Path != "/hello" || req.Proto != "HTTP/1.1" {
		t.Fatalf("unexpected request line fields: %+v", req)
	}
	if req.Host != "example.com" || req.UserAgent != "test" {
		t.Fatalf("unexpected headers: %+v", req)
	}
	if req.Query["x"] != "1" {
		t.Fatalf("expected query x=1, got %v", req.Query)
	}
}

func TestParserFeedsInArbitraryChunks(t *testing.T) {
	raw := "GET /a HTTP/1.1\r\nHost: h\r\n\r\n"
	req := AcquireRequest()
	p := NewParser(req)

	var verdict Verdict
	var err error
	for i := 0; i < len(raw); i++ {
		verdict, err = p.Feed([]byte{raw[i]})
		if err != nil {
			t.Fatalf("unexpected error at byte %d: %v", i, err)
		}
		if verdict == HeadersComplete && i != len(raw)-1 {
			t.Fatalf("HeadersComplete reported too early at byte %d", i)
		}
	}
	if verdict != HeadersComplete {
		t.Fatal("expected HeadersComplete once every byte was fed")
	}
	if req.Method != "GET" || req.Path != "/a" {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestParserPartialUntilBlankLine(t *testing.T) {
	req := AcquireRequest()
	p := NewParser(req)

	v, err := p.Feed([]byte("GET / HTTP/1.1\r\nHost: h\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != Partial {
		t.Fatalf("expected Partial before the blank line, got %v", v)
	}
}

func TestParserUnconsumedCarriesBodyBytes(t *testing.T) {
	req := AcquireRequest()
	p := NewParser(req)

	v, err := p.Feed([]byte("POST / HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != HeadersComplete {
		t.Fatalf("expected HeadersComplete, got %v", v)
	}
	if got := string(p.Unconsumed()); got != "hello" {
		t.Fatalf("expected unconsumed body 'hello', got %q", got)
	}
}

func TestParserRejectsDotDotPath(t *testing.T) {
	_, v, err := parseAll(t, "GET /../etc/passwd HTTP/1.1\r\nHost: h\r\n\r\n")
	if v != Malformed || err != ErrBadPath {
		t.Fatalf("expected Malformed/ErrBadPath, got %v/%v", v, err)
	}
}

func TestParserRejectsRequestLineWithExtraToken(t *testing.T) {
	_, v, err := parseAll(t, "GE T / HTTP/1.1\r\nHost: h\r\n\r\n")
	if v != Malformed || err != ErrMalformedLine {
		t.Fatalf("expected Malformed/ErrMalformedLine, got %v/%v", v, err)
	}
}

func TestParserRejectsInvalidMethodToken(t *testing.T) {
	_, v, err := parseAll(t, "G@T / HTTP/1.1\r\nHost: h\r\n\r\n")
	if v != Malformed || err != ErrMalformedLine {
		t.Fatalf("expected Malformed/ErrMalformedLine for an invalid method token, got %v/%v", v, err)
	}
}

func TestParserRejectsBadProto(t *testing.T) {
	_, v, err := parseAll(t, "GET / HTTP/2.0\r\nHost: h\r\n\r\n")
	if v != Malformed || err != ErrMalformedLine {
		t.Fatalf("expected Malformed for an unsupported proto, got %v/%v", v, err)
	}
}

func TestParserRejectsTooManyHeaders(t *testing.T) {
	var b strings.Builder
	b.WriteString("GET / HTTP/1.1\r\n")
	for i := 0; i < MaxHeaders+1; i++ {
		b.WriteString("X-Custom: v\r\n")
	}
	b.WriteString("\r\n")

	_, v, err := parseAll(t, b.String())
	if v != Malformed || err != ErrTooManyHeaders {
		t.Fatalf("expected Malformed/ErrTooManyHeaders, got %v/%v", v, err)
	}
}

func TestParserRejectsOverlongLine(t *testing.T) {
	longPath := "/" + strings.Repeat("a", MaxLineLen+1)
	_, v, err := parseAll(t, "GET "+longPath+" HTTP/1.1\r\nHost: h\r\n\r\n")
	if v != Malformed || err != ErrLineTooLong {
		t.Fatalf("expected Malformed/ErrLineTooLong, got %v/%v", v, err)
	}
}

func TestParserRejectsMalformedHeaderLine(t *testing.T) {
	_, v, err := parseAll(t, "GET / HTTP/1.1\r\nBadHeaderNoColon\r\n\r\n")
	if v != Malformed || err != ErrMalformedLine {
		t.Fatalf("expected Malformed/ErrMalformedLine, got %v/%v", v, err)
	}
}

func TestParserStaysErroredOnceMalformed(t *testing.T) {
	req := AcquireRequest()
	p := NewParser(req)

	if _, err := p.Feed([]byte("BAD REQUEST LINE HERE\r\n")); err == nil {
		t.Fatal("expected the malformed proto to be rejected")
	}

	v, err := p.Feed([]byte("more data\r\n"))
	if v != Malformed || err == nil {
		t.Fatal("parser should stay in the error state once malformed")
	}
}

func TestContentLengthIntAndHeaderLookup(t *testing.T) {
	req := AcquireRequest()
	req.ContentLength = "42"
	req.SetHeader("X-Extra", "value")

	if req.ContentLengthInt() != 42 {
		t.Fatalf("expected 42, got %d", req.ContentLengthInt())
	}
	if req.Header("X-Extra") != "value" {
		t.Fatalf("expected extra header lookup to work")
	}
	if req.Header("Host") != "" {
		t.Fatalf("expected empty Host, got %q", req.Header("Host"))
	}
}

func TestHeaderLookupIsCaseInsensitive(t *testing.T) {
	req := AcquireRequest()
	req.SetHeader("connection", "close")
	req.SetHeader("x-request-id", "abc123")

	if req.Connection != "close" {
		t.Fatalf("expected lowercase 'connection' to populate the Connection field, got %q", req.Connection)
	}
	if req.Header("Connection") != "close" {
		t.Fatalf("expected canonical-case lookup to find a lowercase-set header, got %q", req.Header("Connection"))
	}
	if req.Header("X-Request-Id") != "abc123" {
		t.Fatalf("expected canonical-case lookup on ExtraHeaders, got %q", req.Header("X-Request-Id"))
	}
	if req.Header("x-request-id") != "abc123" {
		t.Fatalf("expected lowercase lookup on ExtraHeaders, got %q", req.Header("x-request-id"))
	}
}

func TestParserCanonicalizesLowercaseConnectionHeader(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nHost: x\r\nconnection: close\r\n\r\n"
	req, verdict, err := parseAll(t, raw)
	if err != nil || verdict != HeadersComplete {
		t.Fatalf("expected a complete parse, got verdict=%v err=%v", verdict, err)
	}
	if req.Connection != "close" {
		t.Fatalf("expected a lowercase 'connection' header to populate Connection, got %q", req.Connection)
	}
}

func TestContentLengthIntInvalidIsZero(t *testing.T) {
	req := AcquireRequest()
	req.ContentLength = "not-a-number"
	if req.ContentLengthInt() != 0 {
		t.Fatal("expected an unparsable Content-Length to behave as 0")
	}
}
