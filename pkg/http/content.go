package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ContentKind tags the variant held by a Content.
type ContentKind uint8

const (
	ContentEmpty ContentKind = iota
	ContentBuffered
	ContentStreamed
)

func (k ContentKind) String() string {
	switch k {
	case ContentEmpty:
		return "empty"
	case ContentBuffered:
		return "buffered"
	case ContentStreamed:
		return "streamed"
	}
	return fmt.Sprintf("ContentKind(%d)", uint8(k))
}

// ChunkSource produces body bytes on demand. NextChunk returns io.EOF once
// the body is exhausted; a chunk may also be returned together with io.EOF.
// Returned slices only need to stay valid until the next call.
type ChunkSource interface {
	NextChunk() ([]byte, error)
}

// ChunkSourceFunc adapts a function to ChunkSource.
type ChunkSourceFunc func() ([]byte, error)

func (f ChunkSourceFunc) NextChunk() ([]byte, error) { return f() }

// Content is the body of a message: empty, a buffered byte slice, or a
// streamed producer. The zero value is empty content.
type Content struct {
	Kind ContentKind
	Type string // media type, "" if unset

	data   []byte
	length int64 // declared length; -1 derives from data or means unknown
	source ChunkSource
}

// EmptyContent returns content with no body.
func EmptyContent() Content { return Content{} }

// BufferedContent holds data in memory. The declared length is len(data).
func BufferedContent(contentType string, data []byte) Content {
	return Content{Kind: ContentBuffered, Type: contentType, data: data, length: -1}
}

// StreamedContent pulls the body from src. A length of -1 means unknown.
func StreamedContent(contentType string, src ChunkSource, length int64) Content {
	if length < 0 {
		length = -1
	}
	return Content{Kind: ContentStreamed, Type: contentType, source: src, length: length}
}

// ReaderContent streams r in chunks of up to 32 KiB.
func ReaderContent(contentType string, r io.Reader, length int64) Content {
	buf := make([]byte, 32<<10)
	return StreamedContent(contentType, ChunkSourceFunc(func() ([]byte, error) {
		n, err := r.Read(buf)
		return buf[:n], err
	}), length)
}

// TextContent is buffered text/plain content.
func TextContent(s string) Content {
	return BufferedContent("text/plain; charset=utf-8", []byte(s))
}

// HTMLContent is buffered text/html content.
func HTMLContent(s string) Content {
	return BufferedContent("text/html; charset=utf-8", []byte(s))
}

// JSONContent encodes v as application/json.
func JSONContent(v interface{}) (Content, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Content{}, fmt.Errorf("http: encoding json content: %w", err)
	}
	return BufferedContent("application/json", data), nil
}

// WithLength returns a copy of c with an explicit declared length.
// The serializer rejects buffered content whose declared length differs
// from the bytes it holds.
func (c Content) WithLength(n int64) Content {
	c.length = n
	return c
}

// Bytes returns buffered data, or nil for other kinds.
func (c *Content) Bytes() []byte {
	if c.Kind != ContentBuffered {
		return nil
	}
	return c.data
}

// Length returns the declared length, -1 if unknown.
func (c *Content) Length() int64 {
	switch c.Kind {
	case ContentEmpty:
		return 0
	case ContentBuffered:
		if c.length >= 0 {
			return c.length
		}
		return int64(len(c.data))
	}
	return c.length
}

// IsEmpty reports whether the content carries no bytes.
func (c *Content) IsEmpty() bool {
	switch c.Kind {
	case ContentEmpty:
		return true
	case ContentBuffered:
		return len(c.data) == 0 && c.Length() == 0
	}
	return c.length == 0
}

// Source returns the streamed producer, or nil.
func (c *Content) Source() ChunkSource { return c.source }

// ReadAll drains the content into memory. Streamed content is consumed and
// c becomes buffered. At most max bytes are read when max > 0.
func (c *Content) ReadAll(max int64) ([]byte, error) {
	switch c.Kind {
	case ContentEmpty:
		return nil, nil
	case ContentBuffered:
		return c.data, nil
	}
	var buf bytes.Buffer
	for {
		chunk, err := c.source.NextChunk()
		buf.Write(chunk)
		if max > 0 && int64(buf.Len()) > max {
			return nil, &ParseError{Kind: TooLarge, Section: SectionBody, Message: "body exceeds limit"}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	*c = BufferedContent(c.Type, buf.Bytes())
	return c.data, nil
}
