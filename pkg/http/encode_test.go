package http

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncoder_Request(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	req := &Request{
		Method:  "GET",
		Target:  "/api",
		Version: "HTTP/1.1",
	}
	_ = req.Headers.Add("Host", "example.com")

	err := enc.Encode(req)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	want := "GET /api HTTP/1.1\r\nHost: example.com\r\n\r\n"
	if buf.String() != want {
		t.Errorf("Encode() =\n%q\nwant:\n%q", buf.String(), want)
	}
}

func TestEncoder_Response(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	resp := &Response{
		Version:    "HTTP/1.1",
		StatusCode: 200,
		Reason:     "OK",
		Content:    BufferedContent("", []byte("Hello")),
	}
	_ = resp.Headers.Add("Content-Type", "text/plain")
	_ = resp.Headers.Add("Content-Length", "5")

	err := enc.Encode(resp)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	want := "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 5\r\n\r\nHello"
	if buf.String() != want {
		t.Errorf("Encode() =\n%q\nwant:\n%q", buf.String(), want)
	}
}

func TestEncoder_Streamed(t *testing.T) {
	var buf bytes.Buffer
	resp := NewResponse(StatusOK, StreamedContent("text/plain", sliceSource("ab", "c"), 3))
	if err := NewEncoder(&buf).Encode(resp); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want := "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 3\r\n\r\nabc"
	if buf.String() != want {
		t.Errorf("Encode() =\n%q\nwant:\n%q", buf.String(), want)
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestEncoder_WriteError(t *testing.T) {
	err := NewEncoder(failWriter{}).Encode(NewResponse(StatusOK, TextContent("x")))
	if err == nil {
		t.Fatal("Encode() = nil, want write error")
	}
}

func TestEncoder_SerializeError(t *testing.T) {
	var buf bytes.Buffer
	err := NewEncoder(&buf).Encode(&Response{StatusCode: 42})
	if !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("Encode() error = %v, want ErrInvalidMessage", err)
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %q before failing", buf.String())
	}
}
