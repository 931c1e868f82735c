package link

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/golang/glog"
)

// FrameHandler is called when a frame is received.
type FrameHandler interface {
	HandleFrame(context.Context, RawFrame)
}

// HandleFrameFunc is func type of FrameHandler.
type HandleFrameFunc func(context.Context, RawFrame)

// HandleFrame implements FrameHandler.
func (f HandleFrameFunc) HandleFrame(ctx context.Context, frame RawFrame) {
	f(ctx, frame)
}

// DiscardFunc is called with the number of bytes dropped from the stream.
type DiscardFunc func(n int)

// ValidateFunc checks a frame before it is handled. A frame failing the
// check is re-scanned for a frame starting inside it.
type ValidateFunc func(frame []byte) error

// DefaultByteTimeout is the default inter-byte timeout inside a frame.
const DefaultByteTimeout = 50 * time.Millisecond

// Reader reads frames from a byte stream.
type Reader struct {
	Reader      io.Reader
	Handler     FrameHandler
	OnDiscard   DiscardFunc
	Validate    ValidateFunc
	Timeout     time.Duration
	ReadTimeout bool // set to true if Reader already supports timeout with Read
	Now         func() time.Time

	byteTimer <-chan time.Time
	parser    Parser
}

// NewReader creates a Reader.
func NewReader(r io.Reader, h FrameHandler) *Reader {
	return &Reader{
		Reader:  r,
		Handler: h,
		Timeout: DefaultByteTimeout,
		Now:     time.Now,
	}
}

// Run reads the stream until ctx is done or a read error occurs.
func (r *Reader) Run(ctx context.Context) error {
	r.applyParseResult(ctx, r.parser.Reset())

	if r.ReadTimeout {
		buf := make([]byte, MaxPayload)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.byteTimer:
				r.applyParseResult(ctx, r.parser.Timeout())
			default:
				n, err := r.Reader.Read(buf)
				if err != nil && !os.IsTimeout(err) {
					return err
				}
				if n == 0 {
					r.applyParseResult(ctx, r.parser.Timeout())
				}
				r.parseBytes(ctx, buf[:n])
			}
		}
	}

	chunkCh, errCh := make(chan []byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go r.readLoop(subCtx, chunkCh, errCh)
	for {
		select {
		case chunk := <-chunkCh:
			r.parseBytes(ctx, chunk)
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		case <-r.byteTimer:
			r.applyParseResult(ctx, r.parser.Timeout())
		}
	}
}

func (r *Reader) readLoop(ctx context.Context, chunkCh chan []byte, errCh chan error) {
	for {
		buf := make([]byte, MaxPayload)
		n, err := r.Reader.Read(buf)
		if err != nil {
			errCh <- err
			return
		}
		if n == 0 {
			continue
		}
		select {
		case chunkCh <- buf[:n]:
		case <-ctx.Done():
			return
		}
	}
}

func (r *Reader) parseBytes(ctx context.Context, chunk []byte) {
	if len(chunk) > 0 && glog.V(3) {
		glog.Infof("link: recv % x", chunk)
	}
	for _, b := range chunk {
		r.applyParseResult(ctx, r.parser.Parse(b))
	}
}

func (r *Reader) applyParseResult(ctx context.Context, pr ParseResult) {
	switch pr.WhatAboutTimer() {
	case TimerRestart:
		timeout := r.Timeout
		if timeout <= 0 {
			timeout = DefaultByteTimeout
		}
		r.byteTimer = time.After(timeout)
	case TimerStop:
		r.byteTimer = nil
	}

	if pr.Discarded > 0 {
		glog.V(2).Infof("link: discarded %d bytes", pr.Discarded)
		if fn := r.OnDiscard; fn != nil {
			fn(pr.Discarded)
		}
	}
	if pr.Frame != nil {
		if fn := r.Validate; fn != nil {
			if err := fn(pr.Frame); err != nil {
				glog.V(2).Infof("link: rejected frame % x: %v", pr.Frame, err)
				for _, res := range r.parser.Reject(pr.Frame) {
					r.applyParseResult(ctx, res)
				}
				return
			}
		}
		now := time.Now
		if r.Now != nil {
			now = r.Now
		}
		frame := RawFrame{Data: pr.Frame, Received: now()}
		glog.V(2).Infof("link: frame % x", frame.Data)
		if h := r.Handler; h != nil {
			h.HandleFrame(ctx, frame)
		}
	}
}
