package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestDecoder_Request(t *testing.T) {
	data := "GET /api HTTP/1.1\r\nHost: example.com\r\nContent-Length: 0\r\n\r\n"
	dec := NewDecoder(bytes.NewReader([]byte(data)))

	req := &Request{}
	err := dec.Decode(req)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if req.Method != "GET" {
		t.Errorf("Method = %q, want GET", req.Method)
	}
	if req.Path() != "/api" {
		t.Errorf("Path() = %q, want /api", req.Path())
	}
	if req.Version != "HTTP/1.1" {
		t.Errorf("Version = %q, want HTTP/1.1", req.Version)
	}
}

func TestDecoder_RequestWithBody(t *testing.T) {
	data := "POST /api HTTP/1.1\r\nHost: example.com\r\nContent-Length: 11\r\n\r\nhello world"
	dec := NewDecoder(bytes.NewReader([]byte(data)))

	req, err := dec.DecodeRequest()
	if err != nil {
		t.Fatalf("DecodeRequest() error = %v", err)
	}

	if string(req.Content.Bytes()) != "hello world" {
		t.Errorf("Body = %q, want hello world", req.Content.Bytes())
	}
}

func TestDecoder_Response(t *testing.T) {
	data := "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 5\r\n\r\nHello"
	dec := NewDecoder(bytes.NewReader([]byte(data)))

	resp := &Response{}
	err := dec.Decode(resp)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if resp.Version != "HTTP/1.1" {
		t.Errorf("Version = %q, want HTTP/1.1", resp.Version)
	}
	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if resp.Reason != "OK" {
		t.Errorf("Reason = %q, want OK", resp.Reason)
	}
	if string(resp.Content.Bytes()) != "Hello" {
		t.Errorf("Body = %q, want Hello", resp.Content.Bytes())
	}
}

func TestDecoder_ResponseWithChunkedBody(t *testing.T) {
	data := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nHello\r\n7\r\n, World\r\n0\r\n\r\n"
	dec := NewDecoder(bytes.NewReader([]byte(data)))

	resp, err := dec.DecodeResponse()
	if err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}

	if string(resp.Content.Bytes()) != "Hello, World" {
		t.Errorf("Body = %q, want Hello, World", resp.Content.Bytes())
	}
}

func TestDecoder_OneByteReader(t *testing.T) {
	data := "POST /a HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n5;ext=foo\r\nhello\r\n0\r\nX-T: 1\r\n\r\n" +
		"GET /b HTTP/1.1\r\n\r\n"
	dec := NewDecoder(iotest.OneByteReader(strings.NewReader(data)))

	first, err := dec.DecodeRequest()
	if err != nil {
		t.Fatalf("first DecodeRequest() error = %v", err)
	}
	if string(first.Content.Bytes()) != "hello" || first.Trailers.Get("X-T") != "1" {
		t.Errorf("first = %q trailers %v", first.Content.Bytes(), first.Trailers.Get("X-T"))
	}
	second, err := dec.DecodeRequest()
	if err != nil {
		t.Fatalf("second DecodeRequest() error = %v", err)
	}
	if second.Path() != "/b" {
		t.Errorf("second Path() = %q", second.Path())
	}
	if _, err := dec.DecodeRequest(); !errors.Is(err, io.EOF) {
		t.Errorf("third DecodeRequest() error = %v, want io.EOF", err)
	}
}

func TestDecoder_Pipelined(t *testing.T) {
	var data string
	for i := range 5 {
		data += fmt.Sprintf("GET /%d HTTP/1.1\r\nHost: h\r\n\r\n", i)
	}
	dec := NewDecoder(strings.NewReader(data))
	for i := range 5 {
		req, err := dec.DecodeRequest()
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if want := fmt.Sprintf("/%d", i); req.Target != want {
			t.Errorf("request %d target = %q, want %q", i, req.Target, want)
		}
	}
	if _, err := dec.DecodeRequest(); !errors.Is(err, io.EOF) {
		t.Errorf("after last request: %v, want io.EOF", err)
	}
}

func TestDecoder_HeadResponse(t *testing.T) {
	data := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nHTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok"
	dec := NewDecoder(strings.NewReader(data))
	if err := dec.SetRequestMethod("HEAD"); err != nil {
		t.Fatal(err)
	}
	head, err := dec.DecodeResponse()
	if err != nil {
		t.Fatal(err)
	}
	if head.HasBody() {
		t.Errorf("HEAD response body = %q", head.Content.Bytes())
	}
	next, err := dec.DecodeResponse()
	if err != nil {
		t.Fatal(err)
	}
	if string(next.Content.Bytes()) != "ok" {
		t.Errorf("next body = %q", next.Content.Bytes())
	}
}

func TestDecoder_SetRequestMethodOnRequests(t *testing.T) {
	dec := NewDecoder(strings.NewReader("GET / HTTP/1.1\r\n\r\n"))
	if _, err := dec.DecodeRequest(); err != nil {
		t.Fatal(err)
	}
	if err := dec.SetRequestMethod("GET"); err == nil {
		t.Error("SetRequestMethod() on a request decoder succeeded")
	}
}

func TestDecoder_TypeMismatch(t *testing.T) {
	data := "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n"
	dec := NewDecoder(bytes.NewReader([]byte(data)))

	req := &Request{}
	err := dec.Decode(req)
	if err == nil {
		t.Error("expected error for type mismatch")
	}
}

func TestDecoder_DecodeResponse_Convenience(t *testing.T) {
	data := "HTTP/1.1 404 Not Found\r\nContent-Length: 9\r\n\r\nNot Found"
	dec := NewDecoder(bytes.NewReader([]byte(data)))

	resp, err := dec.DecodeResponse()
	if err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}

	if resp.StatusCode != 404 {
		t.Errorf("StatusCode = %d, want 404", resp.StatusCode)
	}
	if string(resp.Content.Bytes()) != "Not Found" {
		t.Errorf("Body = %q, want 'Not Found'", resp.Content.Bytes())
	}
}

func TestDecoder_UnsupportedType(t *testing.T) {
	data := "GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"
	dec := NewDecoder(bytes.NewReader([]byte(data)))

	err := dec.Decode("not a request or response")
	if err == nil {
		t.Error("Decode() = nil, want error for unsupported type")
	}
}

func TestDecoder_ResponseTargetWithRequestData(t *testing.T) {
	// Request data decoded into *Response target should fail
	data := "GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"
	dec := NewDecoder(bytes.NewReader([]byte(data)))

	resp := &Response{}
	err := dec.Decode(resp)
	if err == nil {
		t.Error("Decode() = nil, want error when decoding request into *Response")
	}
}

func TestDecoder_EmptyReader(t *testing.T) {
	dec := NewDecoder(bytes.NewReader([]byte{}))
	err := dec.Decode(&Request{})
	if !errors.Is(err, io.EOF) {
		t.Errorf("Decode() = %v, want io.EOF for empty reader", err)
	}
}

func TestDecoder_Errors(t *testing.T) {
	tests := []struct {
		name     string
		response bool
		data     string
		want     error
	}{
		{"malformed request line", false, "BADREQUEST\r\nHost: example.com\r\n\r\n", ErrMalformedStartLine},
		{"malformed status line", true, "HTTP/1.1\r\nContent-Length: 0\r\n\r\n", ErrMalformedStartLine},
		{"non-numeric status", true, "HTTP/1.1 abc OK\r\n\r\n", ErrMalformedStartLine},
		{"malformed header", false, "GET / HTTP/1.1\r\nMalformedHeaderLine\r\n\r\n", ErrMalformedHeader},
		{"chunked truncated", true, "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhel", ErrTruncated},
		{"chunked missing", true, "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n", ErrTruncated},
		{"chunked bad size", true, "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\nZZZZ\r\nhello\r\n0\r\n\r\n", ErrMalformedChunk},
		{"response body truncated", true, "HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\nshort", ErrTruncated},
		{"request body truncated", false, "POST / HTTP/1.1\r\nContent-Length: 100\r\n\r\nshort", ErrTruncated},
		{"no header terminator", false, "GET / HTTP/1.1\r\n", ErrTruncated},
		{"status line only", true, "HTTP/1.1 200 OK\r\n", ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := NewDecoder(strings.NewReader(tt.data))
			var err error
			if tt.response {
				_, err = dec.DecodeResponse()
			} else {
				_, err = dec.DecodeRequest()
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecoder_ResponseWithNoBody(t *testing.T) {
	data := "HTTP/1.1 204 No Content\r\nContent-Length: 0\r\n\r\n"
	dec := NewDecoder(bytes.NewReader([]byte(data)))

	resp, err := dec.DecodeResponse()
	if err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if resp.StatusCode != 204 {
		t.Errorf("StatusCode = %d, want 204", resp.StatusCode)
	}
	if resp.Content.Kind != ContentEmpty {
		t.Errorf("Content.Kind = %v, want empty", resp.Content.Kind)
	}
}

func TestDecoder_ResponseStatusOnly(t *testing.T) {
	// Status line with version and code but no reason phrase
	data := "HTTP/1.1 201\r\nContent-Length: 0\r\n\r\n"
	dec := NewDecoder(bytes.NewReader([]byte(data)))

	resp, err := dec.DecodeResponse()
	if err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if resp.StatusCode != 201 {
		t.Errorf("StatusCode = %d, want 201", resp.StatusCode)
	}
}

func TestDecoder_RequestWithLargeBody(t *testing.T) {
	body := bytes.Repeat([]byte("x"), 10000)
	data := "POST / HTTP/1.1\r\nContent-Length: 10000\r\n\r\n" + string(body)
	dec := NewDecoder(bytes.NewReader([]byte(data)))

	req, err := dec.DecodeRequest()
	if err != nil {
		t.Fatalf("DecodeRequest() error = %v", err)
	}
	if !bytes.Equal(req.Content.Bytes(), body) {
		t.Errorf("Body length = %d, want 10000", len(req.Content.Bytes()))
	}
}

func TestDecoder_Limits(t *testing.T) {
	data := "POST / HTTP/1.1\r\nContent-Length: 100\r\n\r\n" + strings.Repeat("x", 100)
	dec := NewDecoderWithLimits(strings.NewReader(data), Limits{MaxBodySize: 10})
	if _, err := dec.DecodeRequest(); !errors.Is(err, ErrTooLarge) {
		t.Errorf("DecodeRequest() error = %v, want ErrTooLarge", err)
	}
}

func TestDecoder_CloseDelimitedResponse(t *testing.T) {
	dec := NewDecoder(strings.NewReader("HTTP/1.0 200 OK\r\n\r\nall of it"))
	resp, err := dec.DecodeResponse()
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Content.Bytes()) != "all of it" {
		t.Errorf("Body = %q", resp.Content.Bytes())
	}
}

// errImmediateFail is returned by a reader that fails on first Read.
var errImmediateFail = errors.New("immediate read failure")

func TestDecoder_ReadError(t *testing.T) {
	dec := NewDecoder(iotest.ErrReader(errImmediateFail))
	_, err := dec.DecodeRequest()
	if !errors.Is(err, errImmediateFail) {
		t.Errorf("DecodeRequest() error = %v, want read failure", err)
	}
}

func TestDecoder_ReadErrorMidMessage(t *testing.T) {
	r := io.MultiReader(strings.NewReader("GET / HTTP/1.1\r\n"), iotest.ErrReader(errImmediateFail))
	dec := NewDecoder(r)
	_, err := dec.DecodeRequest()
	if !errors.Is(err, errImmediateFail) {
		t.Errorf("DecodeRequest() error = %v, want read failure", err)
	}
}
