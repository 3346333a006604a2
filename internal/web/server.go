package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/cjeanneret/espcam/internal/debug"
	"github.com/cjeanneret/espcam/internal/hw/led"
	"github.com/cjeanneret/espcam/internal/store"
)

// Capturer takes a photo and stores it under the served image name.
type Capturer interface {
	CaptureAndSave(ctx context.Context) (int, error)
}

// ImageStore is the read side of the image store.
type ImageStore interface {
	Load(name string) ([]byte, error)
	List(ext string) ([]store.ImageFile, error)
}

// Signaler shows a status pattern.
type Signaler interface {
	Show(p led.Pattern)
}

// Options configures a Server. Zero values fall back to defaults.
type Options struct {
	Addr            string
	ImageName       string
	ReadBufferBytes int
	ChunkBytes      int
}

const (
	defaultBufferBytes = 1024
	acceptRetryDelay   = 100 * time.Millisecond
)

// Server answers one connection at a time: read once, respond, close.
type Server struct {
	opts    Options
	capture Capturer
	images  ImageStore
	led     Signaler
}

// NewServer creates a server for the given dependencies.
func NewServer(opts Options, c Capturer, images ImageStore, l Signaler) *Server {
	if opts.ImageName == "" {
		opts.ImageName = "webcam.jpg"
	}
	if opts.ReadBufferBytes <= 0 {
		opts.ReadBufferBytes = defaultBufferBytes
	}
	if opts.ChunkBytes <= 0 {
		opts.ChunkBytes = defaultBufferBytes
	}
	return &Server{
		opts:    opts,
		capture: c,
		images:  images,
		led:     l,
	}
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	debug.Info("web server listening on %s", ln.Addr())
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln and handles them one after another.
// Cancelling ctx closes ln and makes Serve return nil.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			debug.Info("Web server error: accept: %v", err)
			s.led.Show(led.Error)
			time.Sleep(acceptRetryDelay)
			continue
		}
		if err := s.Handle(ctx, conn); err != nil {
			debug.Info("Web server error: %v", err)
			s.led.Show(led.Error)
		}
	}
}

// Handle runs one request cycle on conn and always closes it. An empty read
// produces no response and no error.
func (s *Server) Handle(ctx context.Context, conn net.Conn) (err error) {
	id := uuid.NewString()[:8]
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("conn %s: panic: %v", id, r)
		}
		conn.Close()
	}()

	debug.Conn(id, "client connected from %s", conn.RemoteAddr())

	buf := make([]byte, s.opts.ReadBufferBytes)
	n, err := conn.Read(buf)
	if n == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			debug.Conn(id, "empty request, closing")
			return nil
		}
		return fmt.Errorf("conn %s: read: %w", id, err)
	}

	req := ParseRequest(buf[:n])
	route := RouteFor(req.RequestLine)
	debug.Conn(id, "%q -> %s", req.RequestLine, route)
	if req.Truncated {
		debug.Verbose("conn %s: request truncated at %d bytes", id, n)
	}
	if debug.IsEnabled(debug.LevelTrace) {
		debug.PrintStruct("Request headers", req.Headers)
	}

	switch route {
	case RouteCapture:
		err = s.serveCapture(ctx, id, conn)
	case RouteImage:
		err = s.serveImage(id, conn)
	default:
		err = s.serveIndex(id, conn)
	}
	if err != nil {
		return fmt.Errorf("conn %s: %s: %w", id, route, err)
	}
	return nil
}

func (s *Server) serveCapture(ctx context.Context, id string, w io.Writer) error {
	size, err := s.capture.CaptureAndSave(ctx)
	if err != nil {
		debug.Info("Capture failed: %v", err)
	} else {
		debug.Conn(id, "captured %d bytes", size)
	}
	return writeRedirect(w, "/")
}

func (s *Server) serveImage(id string, w io.Writer) error {
	data, err := s.images.Load(s.opts.ImageName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			debug.Verbose("conn %s: %s not found", id, s.opts.ImageName)
		} else {
			debug.Info("Load image failed: %v", err)
		}
		return writeNotFound(w)
	}
	debug.Conn(id, "sending %s (%d bytes)", s.opts.ImageName, len(data))
	return writeJPEG(w, data, s.opts.ChunkBytes)
}

func (s *Server) serveIndex(id string, w io.Writer) error {
	images, err := s.images.List(".jpg")
	if err != nil {
		return fmt.Errorf("list images: %w", err)
	}
	page, err := renderIndex(images)
	if err != nil {
		return fmt.Errorf("render index: %w", err)
	}
	debug.Conn(id, "index page with %d images", len(images))
	return writeHTML(w, page, s.opts.ChunkBytes)
}
