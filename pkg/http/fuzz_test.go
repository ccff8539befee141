package http

import (
	"bytes"
	"errors"
	"testing"
)

// Seed corpora for requests and responses used across multiple fuzz targets.

var requestSeeds = [][]byte{
	[]byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"),
	[]byte("POST /api/users HTTP/1.1\r\nHost: api.example.com\r\nContent-Type: application/json\r\nContent-Length: 16\r\n\r\n{\"name\":\"alice\"}"),
	[]byte("PUT /resource/1 HTTP/1.1\r\nHost: example.com\r\nAuthorization: Bearer token123\r\nContent-Length: 4\r\n\r\ndata"),
	[]byte("DELETE /item/42 HTTP/1.1\r\nHost: example.com\r\n\r\n"),
	[]byte("HEAD /status HTTP/1.1\r\nHost: example.com\r\n\r\n"),
	[]byte("OPTIONS * HTTP/1.1\r\nHost: example.com\r\n\r\n"),
	[]byte("GET /path?q=hello+world&page=2 HTTP/1.1\r\nHost: example.com\r\nAccept: text/html,application/json\r\nAccept-Encoding: gzip, deflate\r\nConnection: keep-alive\r\n\r\n"),
	[]byte("POST /upload HTTP/1.1\r\nHost: example.com\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n6\r\nworld!\r\n0\r\n\r\n"),
	// Edge cases
	[]byte("GET / HTTP/1.0\r\n\r\n"),
	[]byte("GET / HTTP/1.1\r\nHost: example.com\r\nX-Empty:\r\n\r\n"),
	[]byte("GET / HTTP/1.1\r\nHost: example.com\r\nCookie: a=1; b=2; c=3\r\n\r\n"),
	[]byte("POST / HTTP/1.1\r\nHost: example.com\r\nContent-Length: 0\r\n\r\n"),
}

var responseSeeds = [][]byte{
	[]byte("HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 5\r\n\r\nhello"),
	[]byte("HTTP/1.1 404 Not Found\r\nContent-Type: application/json\r\nContent-Length: 14\r\n\r\n{\"error\":\"gone\"}"),
	[]byte("HTTP/1.1 204 No Content\r\n\r\n"),
	[]byte("HTTP/1.1 301 Moved Permanently\r\nLocation: https://example.com/\r\nContent-Length: 0\r\n\r\n"),
	[]byte("HTTP/1.1 500 Internal Server Error\r\nContent-Type: text/plain\r\nContent-Length: 5\r\n\r\noops!"),
	[]byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n6\r\nworld!\r\n0\r\n\r\n"),
	[]byte("HTTP/1.1 200 OK\r\nSet-Cookie: session=abc123; Path=/; HttpOnly\r\nContent-Length: 2\r\n\r\nok"),
	[]byte("HTTP/1.1 100 Continue\r\n\r\n"),
	// Edge cases
	[]byte("HTTP/1.0 200 OK\r\nContent-Length: 0\r\n\r\n"),
	[]byte("HTTP/1.1 200 OK\r\n\r\n"),
	[]byte("HTTP/1.1 200 OK\r\nContent-Type: text/html\r\nX-Custom-Header: value with spaces\r\nContent-Length: 6\r\n\r\n<html>"),
}

// FuzzUnmarshalRequest fuzzes the request parser.
// The invariant: never panic regardless of input.
func FuzzUnmarshalRequest(f *testing.F) {
	for _, seed := range requestSeeds {
		f.Add(seed)
	}
	// Pathological inputs
	f.Add([]byte(""))
	f.Add([]byte("\r\n\r\n"))
	f.Add([]byte("GET"))
	f.Add([]byte("GET / HTTP/1.1"))
	f.Add([]byte("GET / HTTP/1.1\r\n"))
	f.Add([]byte("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"))
	f.Add(bytes.Repeat([]byte("X-Header: value\r\n"), 100))

	f.Fuzz(func(t *testing.T, data []byte) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("UnmarshalRequest panicked on input %q: %v", data, r)
			}
		}()
		_, _ = UnmarshalRequest(data)
	})
}

// FuzzUnmarshalResponse fuzzes the response parser.
// The invariant: never panic regardless of input.
func FuzzUnmarshalResponse(f *testing.F) {
	for _, seed := range responseSeeds {
		f.Add(seed)
	}
	// Pathological inputs
	f.Add([]byte(""))
	f.Add([]byte("HTTP/1.1"))
	f.Add([]byte("HTTP/1.1 200"))
	f.Add([]byte("HTTP/1.1 200 OK\r\n"))
	f.Add([]byte("HTTP/1.1 99999 Status\r\n\r\n"))
	f.Add([]byte("HTTP/1.1 -1 Bad\r\n\r\n"))
	f.Add([]byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\nFFFFFFFF\r\n"))

	f.Fuzz(func(t *testing.T, data []byte) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("UnmarshalResponse panicked on input %q: %v", data, r)
			}
		}()
		_, _ = UnmarshalResponse(data)
	})
}

// FuzzUnmarshal fuzzes the auto-detecting Unmarshal function.
func FuzzUnmarshal(f *testing.F) {
	for _, seed := range requestSeeds {
		f.Add(seed)
	}
	for _, seed := range responseSeeds {
		f.Add(seed)
	}
	f.Add([]byte(""))
	f.Add([]byte("\x00\x01\x02\x03"))

	f.Fuzz(func(t *testing.T, data []byte) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("Unmarshal panicked on input %q: %v", data, r)
			}
		}()

		if bytes.HasPrefix(data, []byte("HTTP/")) {
			var resp Response
			_ = Unmarshal(data, &resp)
		} else {
			var req Request
			_ = Unmarshal(data, &req)
		}
	})
}

// FuzzReaderSplit verifies that splitting the input at any point yields the
// same messages and error kind as feeding it in one piece.
func FuzzReaderSplit(f *testing.F) {
	for _, seed := range requestSeeds {
		f.Add(seed, uint16(len(seed)/2))
	}
	f.Add([]byte("POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n0\r\n\r\n"), uint16(40))

	f.Fuzz(func(t *testing.T, data []byte, at uint16) {
		split := int(at) % (len(data) + 1)

		whole := NewRequestReader(Limits{})
		want, werr := whole.Feed(data)
		want = append([]Message(nil), want...)
		if werr == nil {
			tail, err := whole.Finish()
			want, werr = append(want, tail...), err
		}

		parts := NewRequestReader(Limits{})
		var got []Message
		msgs, gerr := parts.Feed(data[:split])
		got = append(got, msgs...)
		if gerr == nil {
			msgs, gerr = parts.Feed(data[split:])
			got = append(got, msgs...)
		}
		if gerr == nil {
			msgs, gerr = parts.Finish()
			got = append(got, msgs...)
		}

		if (werr == nil) != (gerr == nil) {
			t.Fatalf("split at %d: error %v, whole input error %v", split, gerr, werr)
		}
		var wpe, gpe *ParseError
		if errors.As(werr, &wpe) && errors.As(gerr, &gpe) && wpe.Kind != gpe.Kind {
			t.Errorf("split at %d: kind %v, whole input kind %v", split, gpe.Kind, wpe.Kind)
		}
		if len(got) != len(want) {
			t.Fatalf("split at %d: %d messages, whole input %d", split, len(got), len(want))
		}
		for i := range got {
			a, b := want[i].(*Request), got[i].(*Request)
			if a.Method != b.Method || a.Target != b.Target || !bytes.Equal(a.Content.Bytes(), b.Content.Bytes()) {
				t.Errorf("message %d differs after split at %d", i, split)
			}
		}
	})
}

// FuzzMarshalRequest fuzzes that Marshal never panics on a *Request.
func FuzzMarshalRequest(f *testing.F) {
	f.Add("GET", "/", "HTTP/1.1", "Host", "example.com", []byte(nil))
	f.Add("POST", "/api", "HTTP/1.1", "Content-Type", "application/json", []byte(`{"x":1}`))
	f.Add("", "", "", "", "", []byte(nil))
	f.Add("GET", "/", "", "", "", []byte(nil))
	f.Add("CUSTOM-METHOD", "/path with spaces", "HTTP/1.1", "X-Key", "val", []byte("body"))

	f.Fuzz(func(t *testing.T, method, target, version, headerKey, headerVal string, body []byte) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("Marshal(*Request) panicked: %v", r)
			}
		}()

		req := &Request{
			Method:  method,
			Target:  target,
			Version: version,
		}
		if body != nil {
			req.Content = BufferedContent("", body)
		}
		if headerKey != "" {
			_ = req.Headers.Add(headerKey, headerVal)
		}
		_, _ = Marshal(req)
	})
}

// FuzzMarshalResponse fuzzes that Marshal never panics on a *Response.
func FuzzMarshalResponse(f *testing.F) {
	f.Add("HTTP/1.1", 200, "OK", "Content-Type", "text/plain", []byte("hello"))
	f.Add("HTTP/1.1", 404, "Not Found", "", "", []byte(nil))
	f.Add("", 0, "", "", "", []byte(nil))
	f.Add("HTTP/1.1", -1, "", "", "", []byte(nil))
	f.Add("HTTP/1.1", 99999, "Unknown", "X-Key", "val", []byte("body"))

	f.Fuzz(func(t *testing.T, version string, statusCode int, reason, headerKey, headerVal string, body []byte) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("Marshal(*Response) panicked: %v", r)
			}
		}()

		resp := &Response{
			Version:    version,
			StatusCode: statusCode,
			Reason:     reason,
		}
		if body != nil {
			resp.Content = BufferedContent("", body)
		}
		if headerKey != "" {
			_ = resp.Headers.Add(headerKey, headerVal)
		}
		_, _ = Marshal(resp)
	})
}

// FuzzRoundTripRequest verifies that a successfully parsed request can be
// marshaled and re-parsed to produce the same result.
func FuzzRoundTripRequest(f *testing.F) {
	for _, seed := range requestSeeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		req1, err := UnmarshalRequest(data)
		if err != nil {
			return // invalid input, skip
		}

		wire, err := Marshal(req1)
		if err != nil {
			t.Fatalf("Marshal failed after successful UnmarshalRequest: %v", err)
		}

		req2, err := UnmarshalRequest(wire)
		if err != nil {
			t.Fatalf("UnmarshalRequest failed on re-serialized data: %v\noriginal wire: %q\nre-serialized: %q", err, data, wire)
		}

		if req1.Method != req2.Method {
			t.Errorf("Method mismatch: %q != %q", req1.Method, req2.Method)
		}
		if req1.Target != req2.Target {
			t.Errorf("Target mismatch: %q != %q", req1.Target, req2.Target)
		}
		if !bytes.Equal(req1.Content.Bytes(), req2.Content.Bytes()) {
			t.Errorf("Body mismatch: %q != %q", req1.Content.Bytes(), req2.Content.Bytes())
		}
	})
}

// FuzzRoundTripResponse verifies that a successfully parsed response can be
// marshaled and re-parsed to produce the same result.
func FuzzRoundTripResponse(f *testing.F) {
	for _, seed := range responseSeeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		resp1, err := UnmarshalResponse(data)
		if err != nil {
			return // invalid input, skip
		}

		wire, err := Marshal(resp1)
		if err != nil {
			t.Fatalf("Marshal failed after successful UnmarshalResponse: %v", err)
		}

		resp2, err := UnmarshalResponse(wire)
		if err != nil {
			t.Fatalf("UnmarshalResponse failed on re-serialized data: %v\noriginal wire: %q\nre-serialized: %q", err, data, wire)
		}

		if resp1.StatusCode != resp2.StatusCode {
			t.Errorf("StatusCode mismatch: %d != %d", resp1.StatusCode, resp2.StatusCode)
		}
		// An empty reason is filled in from the status text.
		if resp1.Reason != "" && resp1.Reason != resp2.Reason {
			t.Errorf("Reason mismatch: %q != %q", resp1.Reason, resp2.Reason)
		}
		if !bytes.Equal(resp1.Content.Bytes(), resp2.Content.Bytes()) {
			t.Errorf("Body mismatch: %q != %q", resp1.Content.Bytes(), resp2.Content.Bytes())
		}
	})
}

// FuzzParse fuzzes the AST-based Parse path.
func FuzzParse(f *testing.F) {
	for _, seed := range requestSeeds {
		f.Add(string(seed))
	}
	for _, seed := range responseSeeds {
		f.Add(string(seed))
	}
	f.Add("")
	f.Add("not http")
	f.Add("\x00\x01\x02")

	f.Fuzz(func(t *testing.T, input string) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("Parse panicked on input %q: %v", input, r)
			}
		}()
		_, _ = Parse(input)
	})
}
