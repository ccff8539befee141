package conn

import (
	"context"

	"github.com/shapestone/shape-wire/pkg/http"
)

// Task is one dispatched request awaiting its response.
type Task struct {
	conn   *Conn
	seq    uint64
	req    *http.Request
	ctx    context.Context
	cancel context.CancelFunc

	done  bool
	resp  *http.Response
	close bool // last request the connection will answer
}

// Request returns the request to answer.
func (t *Task) Request() *http.Request { return t.req }

// Context is cancelled when the connection closes or the task is answered.
func (t *Task) Context() context.Context { return t.ctx }

// Seq is the request's position on the connection, starting at 1.
func (t *Task) Seq() uint64 { return t.seq }

// Conn returns the connection the task belongs to.
func (t *Task) Conn() *Conn { return t.conn }
