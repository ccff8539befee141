package http

import (
	"fmt"

	"github.com/shapestone/shape-wire/internal/fastparser"
)

// Limits bounds the resources a peer can make a Reader consume.
// Zero fields take the DefaultLimits value.
type Limits struct {
	MaxStartLine   int   // bytes in the request or status line
	MaxHeaderBytes int   // bytes in the header block
	MaxHeaderCount int   // header fields per message
	MaxBodySize    int64 // buffered body bytes per message
}

const DefaultMaxBodySize = 8 << 20

// DefaultLimits returns the limits used for zero fields.
func DefaultLimits() Limits {
	return Limits{
		MaxStartLine:   fastparser.DefaultMaxStartLine,
		MaxHeaderBytes: fastparser.DefaultMaxHeaderBytes,
		MaxHeaderCount: fastparser.DefaultMaxHeaderCount,
		MaxBodySize:    DefaultMaxBodySize,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxStartLine <= 0 {
		l.MaxStartLine = d.MaxStartLine
	}
	if l.MaxHeaderBytes <= 0 {
		l.MaxHeaderBytes = d.MaxHeaderBytes
	}
	if l.MaxHeaderCount <= 0 {
		l.MaxHeaderCount = d.MaxHeaderCount
	}
	if l.MaxBodySize <= 0 {
		l.MaxBodySize = d.MaxBodySize
	}
	return l
}

func (l Limits) parser() fastparser.Limits {
	return fastparser.Limits{
		MaxStartLine:   l.MaxStartLine,
		MaxHeaderBytes: l.MaxHeaderBytes,
		MaxHeaderCount: l.MaxHeaderCount,
	}
}

// Reader assembles parser events into complete messages. Bytes may be fed
// in arbitrary pieces; a message is returned by the Feed call that delivers
// its final byte. Bodies are copied into buffered content, so returned
// messages do not alias fed buffers.
//
// Once Feed or Finish returns an error the Reader stays failed until Reset.
type Reader struct {
	p      fastparser.Parser
	mode   fastparser.Mode
	limits Limits

	req  *Request
	resp *Response
	body []byte

	startLine bool
	expect    bool
	msgs      []Message
	err       error
}

// NewRequestReader returns a Reader for the server side of a connection.
func NewRequestReader(limits Limits) *Reader {
	return newReader(fastparser.Requests, limits)
}

// NewResponseReader returns a Reader for the client side of a connection.
func NewResponseReader(limits Limits) *Reader {
	return newReader(fastparser.Responses, limits)
}

func newReader(mode fastparser.Mode, limits Limits) *Reader {
	r := &Reader{mode: mode, limits: limits.withDefaults()}
	r.p.Init(mode, r.limits.parser())
	return r
}

// Reset discards all state, including a previous error.
func (r *Reader) Reset() {
	r.p.Reset()
	r.req, r.resp, r.body = nil, nil, nil
	r.startLine, r.expect = false, false
	clear(r.msgs)
	r.msgs = r.msgs[:0]
	r.err = nil
}

// SetRequestMethod tells a response Reader the method of the request the
// next response answers.
func (r *Reader) SetRequestMethod(method string) {
	r.p.SetRequestMethod(method)
}

// Pending reports whether a message is partially received.
func (r *Reader) Pending() bool { return r.err == nil && r.p.Pending() }

// StartLineSeen reports whether the message in progress, or the one that
// failed, got past its start line.
func (r *Reader) StartLineSeen() bool { return r.startLine }

// AwaitingContinue reports whether the request in progress sent
// "Expect: 100-continue" and none of its body has arrived. It reports true
// at most once per request.
func (r *Reader) AwaitingContinue() bool {
	if !r.expect || r.req == nil || r.err != nil || len(r.body) > 0 {
		return false
	}
	r.expect = false
	return true
}

// Err returns the error that stopped the Reader.
func (r *Reader) Err() error { return r.err }

// Feed consumes data and returns the messages it completes. On error the
// messages completed before the failure are returned with it. The returned
// slice is reused by the next call.
func (r *Reader) Feed(data []byte) ([]Message, error) {
	clear(r.msgs)
	r.msgs = r.msgs[:0]
	if r.err != nil {
		return nil, r.err
	}
	evs, err := r.p.Feed(data)
	if herr := r.handle(evs); herr != nil {
		return r.msgs, herr
	}
	if err != nil {
		r.err = wrapParseError(err)
		return r.msgs, r.err
	}
	return r.msgs, nil
}

// Finish signals end of stream. It completes a close-delimited response
// and reports Truncated for an unfinished message.
func (r *Reader) Finish() ([]Message, error) {
	clear(r.msgs)
	r.msgs = r.msgs[:0]
	if r.err != nil {
		return nil, r.err
	}
	evs, err := r.p.Finish()
	if herr := r.handle(evs); herr != nil {
		return r.msgs, herr
	}
	if err != nil {
		r.err = wrapParseError(err)
		return r.msgs, r.err
	}
	return r.msgs, nil
}

func (r *Reader) handle(evs []fastparser.Event) error {
	for i := range evs {
		if err := r.event(&evs[i]); err != nil {
			r.err = err
			r.p.Reset()
			return err
		}
	}
	return nil
}

func (r *Reader) event(ev *fastparser.Event) error {
	switch ev.Kind {
	case fastparser.EventStartLine:
		r.startLine = true
		if r.mode == fastparser.Requests {
			u, err := parseTarget(ev.Method, ev.Target)
			if err != nil {
				return &ParseError{Kind: InvalidURL, Section: SectionStartLine, Message: "invalid request target " + ev.Target, Err: err}
			}
			r.req = &Request{Method: ev.Method, Target: ev.Target, URL: u, Version: ev.Version}
		} else {
			r.resp = &Response{Version: ev.Version, StatusCode: ev.StatusCode, Reason: ev.Reason}
		}

	case fastparser.EventHeader:
		r.headers().add(ev.Name, ev.Value)

	case fastparser.EventHeadersComplete:
		if ev.Body == fastparser.BodyFixed && ev.ContentLength > r.limits.MaxBodySize {
			return r.tooLarge(ev.ContentLength)
		}
		if ev.Body == fastparser.BodyFixed && ev.ContentLength > 0 {
			r.body = make([]byte, 0, ev.ContentLength)
		}
		r.expect = r.req != nil && ev.Body != fastparser.BodyNone && r.req.Expect100Continue()

	case fastparser.EventBodyChunk:
		if int64(len(r.body)+len(ev.Data)) > r.limits.MaxBodySize {
			return r.tooLarge(int64(len(r.body) + len(ev.Data)))
		}
		r.body = append(r.body, ev.Data...)

	case fastparser.EventTrailer:
		r.trailers().add(ev.Name, ev.Value)

	case fastparser.EventMessageComplete:
		r.complete()
	}
	return nil
}

func (r *Reader) tooLarge(n int64) error {
	return &ParseError{
		Kind:    TooLarge,
		Section: SectionBody,
		Message: fmt.Sprintf("body of %d bytes exceeds limit of %d", n, r.limits.MaxBodySize),
	}
}

func (r *Reader) headers() *Headers {
	if r.req != nil {
		return &r.req.Headers
	}
	return &r.resp.Headers
}

func (r *Reader) trailers() *Headers {
	if r.req != nil {
		return &r.req.Trailers
	}
	return &r.resp.Trailers
}

func (r *Reader) complete() {
	h := r.headers()
	content := EmptyContent()
	if len(r.body) > 0 {
		content = BufferedContent(h.Get("Content-Type"), r.body)
	}
	if r.req != nil {
		r.req.Content = content
		r.msgs = append(r.msgs, r.req)
	} else {
		r.resp.Content = content
		r.msgs = append(r.msgs, r.resp)
	}
	r.req, r.resp, r.body = nil, nil, nil
	r.startLine, r.expect = false, false
}
