package conn

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/shapestone/shape-wire/pkg/http"
)

const readBufferSize = 4096

// Serve runs one connection over nc until it closes or ctx is done. Each
// request is answered by h on its own goroutine; the connection itself is
// driven from the calling goroutine. Serve returns nil after an orderly
// close and the connection's *Error otherwise. nc is closed on return.
func Serve(ctx context.Context, nc net.Conn, h Handler, cfg Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		closeErr error
		closed   = make(chan struct{})
		results  = make(chan result)
		onClose  = cfg.OnClose
	)
	cfg.OnClose = func(c *Conn, err error) {
		closeErr = err
		close(closed)
		if onClose != nil {
			onClose(c, err)
		}
	}

	d := DispatcherFunc(func(t *Task) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := h.Serve(t.Context(), t.Request())
			select {
			case results <- result{task: t, resp: resp, err: err}:
			case <-closed:
			}
		}()
	})

	nt := newNetTransport(nc)
	c, err := New(ctx, nt, d, cfg)
	if err != nil {
		nc.Close()
		return errors.Wrap(err, "conn: serve")
	}
	go nt.readLoop()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for c.State() != StateClosed {
		var deadline <-chan time.Time
		if at, ok := c.NextDeadline(); ok {
			timer.Reset(max(at.Sub(c.cfg.Now()), 0))
			deadline = timer.C
		}

		select {
		case <-ctx.Done():
			c.Close(newError(Cancelled, ctx.Err()))
		case ev := <-nt.events:
			if ev.err != nil {
				c.ConnectionLost(ev.err)
				break
			}
			c.Feed(ev.data)
			nt.ack <- struct{}{}
		case r := <-results:
			c.Complete(r.task, r.resp, r.err)
		case <-deadline:
			c.CheckTimeouts(c.cfg.Now())
		}
		timer.Stop()
	}

	wg.Wait()
	return closeErr
}

type result struct {
	task *Task
	resp *http.Response
	err  error
}

type readEvent struct {
	data []byte
	err  error
}

// netTransport adapts a net.Conn. Writes are synchronous so the transport
// is always ready; reads run on their own goroutine and reuse one buffer,
// which is refilled only after the event loop acknowledges the last read.
type netTransport struct {
	nc     net.Conn
	events chan readEvent
	ack    chan struct{}
	done   chan struct{}

	mu     sync.Mutex
	cond   *sync.Cond
	paused bool
	closed bool
}

func newNetTransport(nc net.Conn) *netTransport {
	t := &netTransport{
		nc:     nc,
		events: make(chan readEvent),
		ack:    make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	t.cond = sync.NewCond(&t.mu)
	return t
}

func (t *netTransport) Write(p []byte) (bool, error) {
	if _, err := t.nc.Write(p); err != nil {
		return false, errors.Wrap(err, "write")
	}
	return true, nil
}

func (t *netTransport) PauseReading() {
	t.mu.Lock()
	t.paused = true
	t.mu.Unlock()
}

func (t *netTransport) ResumeReading() {
	t.mu.Lock()
	t.paused = false
	t.mu.Unlock()
	t.cond.Broadcast()
}

func (t *netTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.done)
	t.mu.Unlock()
	t.cond.Broadcast()
	return t.nc.Close()
}

// readable blocks while reading is paused. It reports false once the
// transport is closed.
func (t *netTransport) readable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.paused && !t.closed {
		t.cond.Wait()
	}
	return !t.closed
}

func (t *netTransport) readLoop() {
	buf := make([]byte, readBufferSize)
	for t.readable() {
		n, err := t.nc.Read(buf)
		if n > 0 {
			select {
			case t.events <- readEvent{data: buf[:n]}:
			case <-t.done:
				return
			}
			select {
			case <-t.ack:
			case <-t.done:
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				err = errors.Wrap(err, "read")
			}
			select {
			case t.events <- readEvent{err: err}:
			case <-t.done:
			}
			return
		}
	}
}
