package web

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

const notFoundBody = "Image not found"

// header is one response header line. Order is preserved on the wire.
type header struct {
	name, value string
}

// writeHead writes the status line and headers, terminated by the empty line.
func writeHead(w io.Writer, status int, headers ...header) error {
	var b strings.Builder
	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", status, http.StatusText(status))
	for _, h := range headers {
		b.WriteString(h.name)
		b.WriteString(": ")
		b.WriteString(h.value)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// writeChunked writes body in pieces of at most chunk bytes.
func writeChunked(w io.Writer, body []byte, chunk int) error {
	if chunk <= 0 {
		chunk = len(body)
	}
	for len(body) > 0 {
		n := min(chunk, len(body))
		if _, err := w.Write(body[:n]); err != nil {
			return err
		}
		body = body[n:]
	}
	return nil
}

func writeRedirect(w io.Writer, location string) error {
	return writeHead(w, http.StatusSeeOther,
		header{"Location", location},
		header{"Content-Length", "0"},
		header{"Connection", "close"},
	)
}

func writeJPEG(w io.Writer, body []byte, chunk int) error {
	err := writeHead(w, http.StatusOK,
		header{"Content-Type", "image/jpeg"},
		header{"Content-Length", strconv.Itoa(len(body))},
		header{"Connection", "close"},
	)
	if err != nil {
		return err
	}
	return writeChunked(w, body, chunk)
}

func writeNotFound(w io.Writer) error {
	err := writeHead(w, http.StatusNotFound,
		header{"Content-Type", "text/plain"},
		header{"Content-Length", strconv.Itoa(len(notFoundBody))},
		header{"Connection", "close"},
	)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, notFoundBody)
	return err
}

func writeHTML(w io.Writer, page []byte, chunk int) error {
	err := writeHead(w, http.StatusOK,
		header{"Content-Type", "text/html"},
		header{"Content-Length", strconv.Itoa(len(page))},
		header{"Connection", "close"},
	)
	if err != nil {
		return err
	}
	return writeChunked(w, page, chunk)
}
