package conn

import (
	"context"

	"github.com/shapestone/shape-wire/pkg/http"
)

// Transport is the non-blocking byte pipe under a connection. The event
// loop that owns it delivers inbound bytes through Conn.Feed and
// writability through Conn.Writable.
type Transport interface {
	// Write queues p for sending. It must copy or consume p before
	// returning. ready reports whether more data may be written now; when
	// false the connection waits for Conn.Writable.
	Write(p []byte) (ready bool, err error)

	// PauseReading and ResumeReading throttle inbound data. Bytes that
	// arrive while paused are still accepted by Feed.
	PauseReading()
	ResumeReading()

	Close() error
}

// Dispatcher receives complete requests. It answers each one, possibly
// later and from another goroutine handing results back to the connection's
// owner, by calling Conn.Complete.
type Dispatcher interface {
	Dispatch(t *Task)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(t *Task)

func (f DispatcherFunc) Dispatch(t *Task) { f(t) }

// Handler produces the response to one request. Returning an
// *http.StatusError answers with that status; a context error means the
// request was abandoned and nothing is written.
type Handler interface {
	Serve(ctx context.Context, req *http.Request) (*http.Response, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req *http.Request) (*http.Response, error)

func (f HandlerFunc) Serve(ctx context.Context, req *http.Request) (*http.Response, error) {
	return f(ctx, req)
}
