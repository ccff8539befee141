package http

import (
	"fmt"
	"sync"
)

// bufPool pools []byte slices for the scribe and the encoder fast path.
var bufPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, 2048)
		return &b
	},
}

// Marshal returns the HTTP/1.x wire-format encoding of v.
//
// v must be a *Request or *Response. Framing headers are derived from the
// message Content: a Content-Length that disagrees with the body is
// corrected, and a missing one is added. Streamed content is drained.
func Marshal(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("http: Marshal(nil)")
	}

	// Check for Marshaler interface
	if m, ok := v.(Marshaler); ok {
		return m.MarshalHTTP()
	}

	msg, ok := v.(Message)
	if !ok {
		return nil, fmt.Errorf("http: Marshal unsupported type %T (expected *Request or *Response)", v)
	}

	bp := bufPool.Get().(*[]byte)
	buf, err := AppendMessage((*bp)[:0], msg, ScribeOptions{})
	if err != nil {
		*bp = buf[:0]
		bufPool.Put(bp)
		return nil, err
	}

	result := make([]byte, len(buf))
	copy(result, buf)
	*bp = buf[:0]
	bufPool.Put(bp)
	return result, nil
}
