// Package conn drives the server side of HTTP/1.x connections over a
// non-blocking transport.
package conn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shapestone/shape-wire/pkg/http"
)

// State is the lifecycle position of a connection.
type State uint8

const (
	StateIdle State = iota
	StateReadingRequest
	StateDispatched
	StateWritingResponse
	StateClosing
	StateClosed
)

var stateNames = [...]string{
	StateIdle:            "idle",
	StateReadingRequest:  "reading",
	StateDispatched:      "dispatched",
	StateWritingResponse: "writing",
	StateClosing:         "closing",
	StateClosed:          "closed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Conn runs the server side of one HTTP/1.x connection. It parses inbound
// bytes into requests, hands them to a Dispatcher, and writes the responses
// back in request order, however the handlers finish.
//
// A Conn is not safe for concurrent use. Feed, Writable, Complete,
// CheckTimeouts, ConnectionLost and Close must all be called from the
// goroutine that owns it.
type Conn struct {
	id  string
	cfg Config
	log zerolog.Logger
	t   Transport
	d   Dispatcher

	ctx    context.Context
	cancel context.CancelFunc

	reader *http.Reader
	state  State

	// tasks holds every accepted request not yet answered, in arrival
	// order. The first inflight entries have been dispatched.
	tasks    []*Task
	inflight int
	seq      uint64

	inbox  []byte // bytes held while reading is paused
	paused bool
	noRead bool // no further requests are accepted
	eof    bool // peer finished sending

	scribe          *http.Scribe
	writing         *Task // nil while the error response is written
	blocked         bool
	closeAfterWrite bool

	failResp   *http.Response // error status owed once earlier responses flush
	failErr    error
	drainClose bool // close once every owed response is written

	wantContinue bool // a 100 Continue is owed once the write side is idle

	pumping bool
	again   bool

	lastRead  time.Time
	idleSince time.Time
	closeErr  error
}

// New creates a connection over t. Requests are handed to d; ctx is the
// parent of every task context.
func New(ctx context.Context, t Transport, d Dispatcher, cfg Config) (*Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	id := uuid.NewString()
	c := &Conn{
		id:     id,
		cfg:    cfg,
		log:    cfg.Logger.With().Str("conn_id", id).Logger(),
		t:      t,
		d:      d,
		reader: http.NewRequestReader(cfg.limits()),
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	now := cfg.Now()
	c.lastRead, c.idleSince = now, now
	c.log.Debug().Msg("connection open")
	return c, nil
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() string { return c.id }

// State returns the current lifecycle state.
func (c *Conn) State() State { return c.state }

// Err returns the reason the connection closed, or nil.
func (c *Conn) Err() error { return c.closeErr }

// Feed delivers inbound bytes. The connection does not retain data.
func (c *Conn) Feed(data []byte) {
	if c.state >= StateClosing || c.noRead || len(data) == 0 {
		return
	}
	c.lastRead = c.cfg.Now()
	if c.pumping || c.paused || len(c.inbox) > 0 {
		c.inbox = append(c.inbox, data...)
	} else {
		c.consume(data)
	}
	c.pump()
}

// Writable reports that a transport which returned ready=false can accept
// data again.
func (c *Conn) Writable() {
	if c.state >= StateClosing {
		return
	}
	c.blocked = false
	c.pump()
}

// Complete answers t. A context error from the handler closes the
// connection without writing; an *http.StatusError is answered with its
// status and any other error with 500. Calls for a foreign or already
// answered task are ignored.
func (c *Conn) Complete(t *Task, resp *http.Response, err error) {
	if t == nil || t.conn != c || t.done || c.state >= StateClosing {
		return
	}
	t.done = true

	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		c.log.Debug().Uint64("seq", t.seq).Err(err).Msg("handler cancelled")
		c.Close(newError(Cancelled, err))
		return
	case err != nil:
		var se *http.StatusError
		if !errors.As(err, &se) {
			se = http.NewStatusError(http.StatusInternalServerError, "")
			c.log.Warn().Uint64("seq", t.seq).Err(err).Msg("handler failed")
		}
		resp = se.Response()
	case resp == nil:
		c.log.Warn().Uint64("seq", t.seq).Msg("handler returned no response")
		resp = http.NewStatusError(http.StatusInternalServerError, "").Response()
	}
	t.resp = resp
	c.pump()
}

// ConnectionLost reports that the peer stopped sending. A nil or io.EOF err
// is a half close: requests already received are still answered. Any other
// error closes the connection at once.
func (c *Conn) ConnectionLost(err error) {
	if c.state >= StateClosing {
		return
	}
	if err != nil && !errors.Is(err, io.EOF) {
		c.log.Error().Err(err).Msg("transport failed")
		c.Close(newError(TransportFailure, err))
		return
	}
	c.eof = true
	if c.reader.Pending() {
		c.log.Debug().Msg("peer closed mid-request")
	}
	c.pump()
}

// CheckTimeouts closes the connection if a deadline passed by now.
func (c *Conn) CheckTimeouts(now time.Time) {
	if c.state >= StateClosing {
		return
	}
	d, ok := c.deadline()
	if !ok || now.Before(d) {
		return
	}
	which, limit := "keep-alive", c.cfg.KeepAliveTimeout
	if c.reader.Pending() {
		which, limit = "read", c.cfg.ReadTimeout
	}
	c.log.Debug().Str("timeout", which).Msg("deadline passed")
	c.Close(newError(Timeout, fmt.Errorf("%s timeout after %v", which, limit)))
}

// NextDeadline returns when CheckTimeouts should next be called. ok is
// false when no timeout is armed.
func (c *Conn) NextDeadline() (time.Time, bool) {
	if c.state >= StateClosing {
		return time.Time{}, false
	}
	return c.deadline()
}

func (c *Conn) deadline() (time.Time, bool) {
	switch {
	case c.noRead:
	case c.reader.Pending():
		if c.cfg.ReadTimeout > 0 {
			return c.lastRead.Add(c.cfg.ReadTimeout), true
		}
	case len(c.tasks) == 0 && c.scribe == nil:
		if c.cfg.KeepAliveTimeout > 0 {
			return c.idleSince.Add(c.cfg.KeepAliveTimeout), true
		}
	}
	return time.Time{}, false
}

// Close ends the connection. Pending tasks are cancelled and nothing more
// is written. err is passed to Config.OnClose; Close is idempotent.
func (c *Conn) Close(err error) {
	if c.state >= StateClosing {
		return
	}
	c.setState(StateClosing)

	for _, t := range c.tasks {
		t.cancel()
	}
	clear(c.tasks)
	c.tasks, c.inflight = nil, 0
	if c.scribe != nil {
		c.scribe.Release()
		c.scribe = nil
	}
	c.writing, c.failResp, c.inbox = nil, nil, nil
	c.wantContinue = false
	c.reader.Reset()
	c.cancel()

	if cerr := c.t.Close(); cerr != nil {
		c.log.Debug().Err(cerr).Msg("transport close")
	}
	c.closeErr = err
	c.setState(StateClosed)

	switch {
	case errors.Is(err, ErrTransportFailure):
		c.log.Error().Err(err).Msg("connection closed")
	case err != nil:
		c.log.Info().Err(err).Msg("connection closed")
	default:
		c.log.Debug().Msg("connection closed")
	}
	if c.cfg.OnClose != nil {
		c.cfg.OnClose(c, err)
	}
}

// pump runs the connection until no step makes progress. Callbacks from
// the dispatcher or transport that land while it runs only schedule
// another round.
func (c *Conn) pump() {
	if c.pumping {
		c.again = true
		return
	}
	c.pumping = true
	for {
		c.again = false
		c.step()
		if !c.again || c.state >= StateClosing {
			break
		}
	}
	c.pumping = false
	c.updateState()
}

func (c *Conn) step() {
	if !c.paused && !c.noRead && len(c.inbox) > 0 {
		data := c.inbox
		c.inbox = nil
		c.consume(data)
		if c.inbox == nil {
			c.inbox = data[:0]
		}
	}
	if c.state >= StateClosing {
		return
	}
	if c.eof && len(c.inbox) == 0 && !c.noRead {
		c.stopReading()
		c.drainClose = true
		c.wantContinue = false
	}
	c.dispatchQueued()
	c.flush()
	c.sendContinue()
	c.throttle()
}

func (c *Conn) consume(data []byte) {
	msgs, err := c.reader.Feed(data)
	for _, m := range msgs {
		if c.noRead {
			break
		}
		c.accept(m.(*http.Request))
	}
	if c.noRead {
		return
	}
	if err != nil {
		c.fail(err)
		return
	}
	if !c.cfg.NoContinue && c.reader.AwaitingContinue() {
		c.wantContinue = true
	}
}

func (c *Conn) accept(req *http.Request) {
	c.seq++
	ctx, cancel := context.WithCancel(c.ctx)
	t := &Task{conn: c, seq: c.seq, req: req, ctx: ctx, cancel: cancel}
	c.wantContinue = false
	if !req.KeepAlive() {
		t.close = true
		c.stopReading()
	}
	c.tasks = append(c.tasks, t)
	c.log.Debug().
		Uint64("seq", t.seq).
		Str("method", req.Method).
		Str("target", req.Target).
		Msg("request")
}

// fail records a parse error. The reader is not used again; responses
// already owed are written first, then the error status if one applies.
func (c *Conn) fail(err error) {
	c.log.Warn().Err(err).Msg("malformed request")
	c.failErr = newError(ProtocolViolation, err)
	c.failResp = errorResponse(err, c.reader.StartLineSeen())
	c.drainClose = true
	c.wantContinue = false
	c.stopReading()
}

// errorResponse picks the status answering a parse error, or nil when the
// input never looked like a request.
func errorResponse(err error, startLine bool) *http.Response {
	var pe *http.ParseError
	if !errors.As(err, &pe) {
		return nil
	}
	code := http.StatusBadRequest
	if pe.Kind == http.TooLarge {
		switch pe.Section {
		case http.SectionStartLine:
			code = http.StatusURITooLong
		case http.SectionHeaders, http.SectionTrailers:
			code = http.StatusRequestHeaderFieldsTooLarge
		default:
			code = http.StatusContentTooLarge
		}
	}
	if !startLine && code != http.StatusURITooLong {
		return nil
	}
	return http.NewStatusError(code, "").Response()
}

func (c *Conn) stopReading() {
	c.noRead = true
	c.inbox = nil
	if !c.paused {
		c.paused = true
		c.t.PauseReading()
	}
}

// sendContinue writes an owed 100 Continue once every earlier response has
// been written and the transport is ready.
func (c *Conn) sendContinue() {
	if !c.wantContinue || c.blocked || c.state >= StateClosing {
		return
	}
	if len(c.tasks) > 0 || c.scribe != nil || c.failResp != nil {
		return
	}
	c.wantContinue = false
	b, err := http.AppendMessage(nil, &http.Response{StatusCode: http.StatusContinue}, http.ScribeOptions{})
	if err != nil {
		return
	}
	c.write(b)
}

func (c *Conn) dispatchQueued() {
	for c.inflight < len(c.tasks) && c.inflight < c.cfg.MaxPipeline && c.state < StateClosing {
		t := c.tasks[c.inflight]
		c.inflight++
		c.d.Dispatch(t)
	}
}

// throttle pauses reading while the pipeline is full.
func (c *Conn) throttle() {
	if c.state >= StateClosing || c.noRead {
		return
	}
	full := len(c.tasks) >= c.cfg.MaxPipeline
	switch {
	case full && !c.paused:
		c.paused = true
		c.t.PauseReading()
		c.log.Debug().Int("queued", len(c.tasks)).Msg("pipeline full, reading paused")
	case !full && c.paused:
		c.paused = false
		c.t.ResumeReading()
		if len(c.inbox) > 0 {
			c.again = true
		}
	}
}

// flush writes owed responses in order until the transport blocks or the
// head of the queue is unanswered.
func (c *Conn) flush() {
	for c.state < StateClosing && !c.blocked {
		if c.scribe == nil && !c.startNext() {
			return
		}
		chunk, err := c.scribe.Next()
		if errors.Is(err, io.EOF) {
			c.finishWrite()
			continue
		}
		if err != nil {
			c.log.Warn().Err(err).Msg("response serialization failed")
			c.Close(newError(ProtocolViolation, err))
			return
		}
		if len(chunk) > 0 {
			c.write(chunk)
		}
	}
}

func (c *Conn) write(p []byte) {
	ready, err := c.t.Write(p)
	if err != nil {
		c.log.Error().Err(err).Msg("write failed")
		c.Close(newError(TransportFailure, err))
		return
	}
	c.blocked = !ready
}

// startNext prepares the next owed response. It reports false when there
// is nothing to write yet.
func (c *Conn) startNext() bool {
	if len(c.tasks) > 0 {
		t := c.tasks[0]
		if !t.done {
			return false
		}
		last := len(c.tasks) == 1 && c.noRead && c.failResp == nil
		peer10 := t.req.Version == "HTTP/1.0"
		opts := http.ScribeOptions{HeadOnly: t.req.Method == "HEAD", Close: t.close || last, PeerHTTP10: peer10}
		// An HTTP/1.0 peer cannot read chunked framing, so a body of unknown
		// length is delimited by closing the connection.
		untilClose := peer10 && t.resp.Content.Length() < 0
		if !opts.Close && !untilClose && peer10 && !t.resp.Headers.Has("Connection") {
			_ = t.resp.Headers.Add("Connection", "keep-alive")
		}
		c.writing = t
		c.scribe = http.NewScribe(t.resp, opts)
		c.closeAfterWrite = opts.Close || !t.resp.KeepAlive()
		return true
	}
	if c.failResp != nil {
		c.writing = nil
		c.scribe = http.NewScribe(c.failResp, http.ScribeOptions{Close: true})
		c.failResp = nil
		c.closeAfterWrite = true
		return true
	}
	if c.drainClose {
		c.Close(c.failErr)
	}
	return false
}

func (c *Conn) finishWrite() {
	closeWire := c.closeAfterWrite || c.scribe.CloseAfter()
	c.scribe = nil
	if t := c.writing; t != nil {
		c.writing = nil
		c.tasks[0] = nil
		c.tasks = c.tasks[1:]
		c.inflight--
		t.cancel()
		c.log.Debug().Uint64("seq", t.seq).Int("status", t.resp.StatusCode).Msg("response written")
	}
	if closeWire {
		c.Close(c.failErr)
		return
	}
	if len(c.tasks) == 0 {
		c.idleSince = c.cfg.Now()
	}
	if c.inflight < len(c.tasks) {
		c.again = true
	}
}

func (c *Conn) updateState() {
	if c.state >= StateClosing {
		return
	}
	s := StateIdle
	switch {
	case c.scribe != nil:
		s = StateWritingResponse
	case len(c.tasks) > 0:
		s = StateDispatched
	case c.reader.Pending():
		s = StateReadingRequest
	}
	c.setState(s)
}

func (c *Conn) setState(s State) {
	if s == c.state {
		return
	}
	c.log.Debug().Stringer("from", c.state).Stringer("to", s).Msg("state")
	c.state = s
}
