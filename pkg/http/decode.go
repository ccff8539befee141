package http

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/shapestone/shape-wire/internal/fastparser"
)

// Decoder reads HTTP messages from an input stream in HTTP/1.x wire format.
// The first message decides whether the stream carries requests or
// responses. A single Decoder is not safe for concurrent use; create one per
// goroutine or serialize access externally.
type Decoder struct {
	r      *bufio.Reader
	limits Limits
	mr     *Reader
	queue  []Message
	buf    []byte
	done   bool
}

// NewDecoder returns a new decoder that reads from r.
// The decoder uses buffered reading for efficient parsing.
func NewDecoder(r io.Reader) *Decoder {
	return NewDecoderWithLimits(r, Limits{})
}

// NewDecoderWithLimits returns a decoder enforcing limits.
func NewDecoderWithLimits(r io.Reader, limits Limits) *Decoder {
	return &Decoder{r: bufio.NewReader(r), limits: limits}
}

// Decode reads the next HTTP message and stores it in v.
// v must be a *Request or *Response. It returns io.EOF when the stream ends
// cleanly between messages.
func (dec *Decoder) Decode(v interface{}) error {
	switch target := v.(type) {
	case *Request:
		msg, err := dec.next(false)
		if err != nil {
			return err
		}
		*target = *msg.(*Request)
		return nil
	case *Response:
		msg, err := dec.next(true)
		if err != nil {
			return err
		}
		*target = *msg.(*Response)
		return nil
	default:
		return fmt.Errorf("http: Decode unsupported type %T", v)
	}
}

// DecodeRequest reads the next HTTP request from the stream.
func (dec *Decoder) DecodeRequest() (*Request, error) {
	msg, err := dec.next(false)
	if err != nil {
		return nil, err
	}
	return msg.(*Request), nil
}

// DecodeResponse reads the next HTTP response from the stream.
func (dec *Decoder) DecodeResponse() (*Response, error) {
	msg, err := dec.next(true)
	if err != nil {
		return nil, err
	}
	return msg.(*Response), nil
}

// SetRequestMethod records the method of the request the next decoded
// response answers.
func (dec *Decoder) SetRequestMethod(method string) error {
	if dec.mr == nil {
		dec.mr = NewResponseReader(dec.limits)
		dec.buf = make([]byte, 4096)
	}
	if dec.mr.mode != fastparser.Responses {
		return fmt.Errorf("http: decoder reads requests")
	}
	dec.mr.SetRequestMethod(method)
	return nil
}

func (dec *Decoder) init(response bool) error {
	if dec.mr == nil {
		prefix, err := dec.r.Peek(5)
		if err != nil && len(prefix) == 0 {
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			return fmt.Errorf("http: decode: %w", err)
		}
		isResponse := bytes.HasPrefix(prefix, []byte("HTTP/"))
		if response != isResponse && len(prefix) == 5 {
			if isResponse {
				return fmt.Errorf("http: data appears to be a response but target is *Request")
			}
			return fmt.Errorf("http: data appears to be a request but target is *Response")
		}
		if response {
			dec.mr = NewResponseReader(dec.limits)
		} else {
			dec.mr = NewRequestReader(dec.limits)
		}
		dec.buf = make([]byte, 4096)
		return nil
	}
	if response != (dec.mr.mode == fastparser.Responses) {
		if response {
			return fmt.Errorf("http: decoder reads requests but target is *Response")
		}
		return fmt.Errorf("http: decoder reads responses but target is *Request")
	}
	return nil
}

// next returns the next queued message, reading and feeding the stream
// until one completes.
func (dec *Decoder) next(response bool) (Message, error) {
	if err := dec.init(response); err != nil {
		return nil, err
	}
	for len(dec.queue) == 0 {
		if dec.done {
			return nil, io.EOF
		}
		n, rerr := dec.r.Read(dec.buf)
		if n > 0 {
			msgs, err := dec.mr.Feed(dec.buf[:n])
			dec.queue = append(dec.queue, msgs...)
			if err != nil {
				if len(dec.queue) > 0 {
					break
				}
				return nil, err
			}
		}
		if errors.Is(rerr, io.EOF) {
			dec.done = true
			msgs, err := dec.mr.Finish()
			dec.queue = append(dec.queue, msgs...)
			if err != nil && len(dec.queue) == 0 {
				return nil, err
			}
			continue
		}
		if rerr != nil {
			return nil, fmt.Errorf("http: decode: %w", rerr)
		}
	}
	msg := dec.queue[0]
	dec.queue[0] = nil
	dec.queue = dec.queue[1:]
	return msg, nil
}
