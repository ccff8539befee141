package http

import (
	"errors"
	"io"
	"iter"
)

// ScribeOptions adjusts how a message is written.
type ScribeOptions struct {
	HeadOnly   bool // response to HEAD: framing headers but no body
	Close      bool // add Connection: close
	PeerHTTP10 bool // peer speaks HTTP/1.0: never chunked
}

type scribeState uint8

const (
	scribeHead scribeState = iota
	scribeBuffered
	scribeStream
	scribeDone
	scribeFailed
)

// Scribe serializes one message into wire chunks on demand. The head is
// produced first, then the body in one or more chunks. A chunk returned by
// Next is valid until the following call.
//
// Streamed content is pulled from its source as Next is called, so a
// streamed message can be written only once.
type Scribe struct {
	msg   Message
	opts  ScribeOptions
	state scribeState
	plan  plan

	bp  *[]byte
	buf []byte

	src       ChunkSource
	srcDone   bool
	written   int64
	trailers  *Headers
	err       error
	closeWire bool
}

// NewScribe prepares msg for serialization. Nothing is read from the
// message until the first call to Next.
func NewScribe(msg Message, opts ScribeOptions) *Scribe {
	return &Scribe{msg: msg, opts: opts}
}

// CloseAfter reports whether the connection must be closed once the message
// is written, either because Close was requested or the body is delimited by
// connection close. It is valid after the first call to Next.
func (s *Scribe) CloseAfter() bool { return s.closeWire }

// Next returns the next chunk of wire bytes, or io.EOF when the message is
// complete. Any other error stops the scribe.
func (s *Scribe) Next() ([]byte, error) {
	switch s.state {
	case scribeHead:
		return s.head()
	case scribeBuffered:
		s.state = scribeDone
		return s.msg.GetContent().data, nil
	case scribeStream:
		return s.stream()
	case scribeFailed:
		return nil, s.err
	}
	s.Release()
	return nil, io.EOF
}

// Release returns internal buffers to the pool. It is called automatically
// when Next reports io.EOF or an error.
func (s *Scribe) Release() {
	if s.bp != nil {
		*s.bp = s.buf[:0]
		bufPool.Put(s.bp)
		s.bp, s.buf = nil, nil
	}
}

func (s *Scribe) fail(err error) ([]byte, error) {
	s.state = scribeFailed
	s.err = err
	s.Release()
	return nil, err
}

func (s *Scribe) scratch() []byte {
	if s.bp == nil {
		s.bp = bufPool.Get().(*[]byte)
		s.buf = *s.bp
	}
	return s.buf[:0]
}

func (s *Scribe) head() ([]byte, error) {
	var (
		buf = s.scratch()
		p   plan
		err error
	)
	switch m := s.msg.(type) {
	case *Request:
		buf, p, err = appendRequestHead(buf, m, ScribeOptions{Close: s.opts.Close})
		s.trailers = &m.Trailers
	case *Response:
		buf, p, err = appendResponseHead(buf, m, s.opts)
		s.trailers = &m.Trailers
	default:
		err = serializeErrorf(InvalidMessage, "unsupported message type %T", s.msg)
	}
	s.buf = buf
	if err != nil {
		return s.fail(err)
	}
	s.plan = p
	s.closeWire = p.close

	c := s.msg.GetContent()
	switch {
	case !p.writeBody || p.frame == frameNone:
		s.state = scribeDone
	case c.Kind == ContentBuffered && len(c.data) > 0:
		s.state = scribeBuffered
	case c.Kind == ContentStreamed:
		s.src = c.source
		s.state = scribeStream
	default:
		s.state = scribeDone
	}
	return s.buf, nil
}

// stream pulls from the source until it yields bytes or ends.
func (s *Scribe) stream() ([]byte, error) {
	for {
		if s.srcDone {
			return s.finishStream()
		}
		chunk, err := s.src.NextChunk()
		if err != nil && !errors.Is(err, io.EOF) {
			return s.fail(err)
		}
		s.srcDone = err != nil
		s.written += int64(len(chunk))

		switch s.plan.frame {
		case frameLength:
			if s.written > s.plan.length {
				return s.fail(serializeErrorf(ContentLengthMismatch, "source produced more than the declared %d bytes", s.plan.length))
			}
			if len(chunk) > 0 {
				return chunk, nil
			}
		case frameClose:
			if len(chunk) > 0 {
				return chunk, nil
			}
		case frameChunked:
			if len(chunk) == 0 {
				continue
			}
			buf := appendChunk(s.scratch(), chunk)
			if s.srcDone {
				buf = appendLastChunk(buf, s.trailers)
				s.state = scribeDone
			}
			s.buf = buf
			return buf, nil
		}
	}
}

func (s *Scribe) finishStream() ([]byte, error) {
	switch s.plan.frame {
	case frameLength:
		if s.written != s.plan.length {
			return s.fail(serializeErrorf(ContentLengthMismatch, "declared %d bytes, source produced %d", s.plan.length, s.written))
		}
	case frameChunked:
		s.buf = appendLastChunk(s.scratch(), s.trailers)
		s.state = scribeDone
		return s.buf, nil
	}
	s.state = scribeDone
	s.Release()
	return nil, io.EOF
}

// Serialize yields the wire chunks of msg. Iteration stops after the first
// error.
func Serialize(msg Message) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		s := NewScribe(msg, ScribeOptions{})
		defer s.Release()
		for {
			chunk, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(chunk, err) || err != nil {
				return
			}
		}
	}
}

// AppendMessage appends the complete wire form of msg to buf.
func AppendMessage(buf []byte, msg Message, opts ScribeOptions) ([]byte, error) {
	s := NewScribe(msg, opts)
	defer s.Release()
	for {
		chunk, err := s.Next()
		if errors.Is(err, io.EOF) {
			return buf, nil
		}
		if err != nil {
			return buf, err
		}
		buf = append(buf, chunk...)
	}
}
