package http

import (
	"fmt"
	"io"
)

// Encoder writes HTTP messages to an output stream.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns a new encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes the HTTP wire-format encoding of v to the stream.
// v must be a *Request or *Response; other values go through Marshal.
// Messages are written chunk by chunk, so streamed bodies are not buffered.
func (enc *Encoder) Encode(v interface{}) error {
	msg, ok := v.(Message)
	if !ok {
		data, err := Marshal(v)
		if err != nil {
			return err
		}
		_, err = enc.w.Write(data)
		return err
	}
	for chunk, err := range Serialize(msg) {
		if err != nil {
			return err
		}
		if _, err := enc.w.Write(chunk); err != nil {
			return fmt.Errorf("http: encode: %w", err)
		}
	}
	return nil
}
