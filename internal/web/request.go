package web

import (
	"bytes"
	"net/textproto"
	"strings"
)

// Request is the parsed form of the bytes read from one connection.
// Parsing never fails: missing parts are left empty.
type Request struct {
	RequestLine string
	Method      string
	Path        string
	Proto       string
	Headers     map[string]string
	// Truncated is set when the header block was not terminated within
	// the bytes read, typically because the request exceeded the buffer.
	Truncated bool
}

// ParseRequest extracts the request line and headers from raw.
func ParseRequest(raw []byte) Request {
	req := Request{Headers: make(map[string]string)}

	head := raw
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		head = raw[:i]
	} else if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		head = raw[:i]
	} else {
		req.Truncated = true
	}

	lines := strings.Split(string(head), "\n")
	req.RequestLine = strings.TrimRight(lines[0], "\r")
	fields := strings.Fields(req.RequestLine)
	if len(fields) > 0 {
		req.Method = fields[0]
	}
	if len(fields) > 1 {
		req.Path = fields[1]
	}
	if len(fields) > 2 {
		req.Proto = fields[2]
	}

	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		key, value, ok := strings.Cut(line, ":")
		if !ok || key == "" {
			continue
		}
		req.Headers[textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return req
}

// Header returns the value of a header, case-insensitively.
func (r Request) Header(name string) string {
	return r.Headers[textproto.CanonicalMIMEHeaderKey(name)]
}

// Route is one of the fixed endpoints.
type Route int

const (
	RouteIndex Route = iota
	RouteCapture
	RouteImage
)

func (r Route) String() string {
	switch r {
	case RouteCapture:
		return "capture"
	case RouteImage:
		return "image"
	default:
		return "index"
	}
}

// RouteFor picks the route by substring match on the request line, first
// match wins: "GET /capture", then "GET /image.jpg", then the index page.
func RouteFor(requestLine string) Route {
	switch {
	case strings.Contains(requestLine, "GET /capture"):
		return RouteCapture
	case strings.Contains(requestLine, "GET /image.jpg"):
		return RouteImage
	default:
		return RouteIndex
	}
}
