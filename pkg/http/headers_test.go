package http

import (
	"errors"
	"slices"
	"testing"
)

func mustHeaders(t *testing.T, kv ...string) Headers {
	t.Helper()
	var h Headers
	for i := 0; i+1 < len(kv); i += 2 {
		if err := h.Add(kv[i], kv[i+1]); err != nil {
			t.Fatalf("Add(%q, %q) error = %v", kv[i], kv[i+1], err)
		}
	}
	return h
}

func TestHeaders_Get(t *testing.T) {
	h := mustHeaders(t,
		"Content-Type", "application/json",
		"Host", "example.com",
		"X-Custom", "value1",
	)

	tests := []struct {
		key  string
		want string
	}{
		{"Content-Type", "application/json"},
		{"content-type", "application/json"},
		{"CONTENT-TYPE", "application/json"},
		{"Host", "example.com"},
		{"X-Missing", ""},
	}

	for _, tt := range tests {
		got := h.Get(tt.key)
		if got != tt.want {
			t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}

	if _, ok := h.Lookup("X-Missing"); ok {
		t.Error("Lookup(X-Missing) reported present")
	}
	if v, ok := h.Lookup("x-custom"); !ok || v != "value1" {
		t.Errorf("Lookup(x-custom) = %q, %v", v, ok)
	}
}

func TestHeaders_Values(t *testing.T) {
	h := mustHeaders(t,
		"Set-Cookie", "a=1",
		"Content-Type", "text/html",
		"set-cookie", "b=2",
		"Set-Cookie", "c=3",
	)

	vals := h.Values("Set-Cookie")
	if !slices.Equal(vals, []string{"a=1", "b=2", "c=3"}) {
		t.Errorf("Values(Set-Cookie) = %v, want [a=1 b=2 c=3]", vals)
	}
	if vals := h.Values("X-Missing"); len(vals) != 0 {
		t.Errorf("Values(X-Missing) = %v, want empty", vals)
	}
}

func TestHeaders_SetReplacesAllDuplicates(t *testing.T) {
	tests := []struct {
		name  string
		start []string
	}{
		{"absent", []string{"Host", "example.com"}},
		{"single", []string{"X-A", "1", "Host", "example.com"}},
		{"duplicates", []string{"X-A", "1", "Host", "example.com", "x-a", "2", "X-A", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := mustHeaders(t, tt.start...)
			if err := h.Set("X-A", "final"); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if got := h.Values("x-a"); !slices.Equal(got, []string{"final"}) {
				t.Errorf("Values after Set = %v, want [final]", got)
			}
			if h.Get("Host") != "example.com" {
				t.Errorf("Host lost after Set: %q", h.Get("Host"))
			}
		})
	}
}

func TestHeaders_SetKeepsFirstPosition(t *testing.T) {
	h := mustHeaders(t, "A", "1", "B", "2", "A", "3", "C", "4")
	if err := h.Set("a", "x"); err != nil {
		t.Fatal(err)
	}

	var keys []string
	for k, v := range h.All() {
		keys = append(keys, k+"="+v)
	}
	want := []string{"a=x", "B=2", "C=4"}
	if !slices.Equal(keys, want) {
		t.Errorf("All() = %v, want %v", keys, want)
	}
}

func TestHeaders_DelAndIndex(t *testing.T) {
	h := mustHeaders(t, "A", "1", "B", "2", "A", "3")
	_ = h.Get("A") // build the index

	h.Del("a")
	if h.Has("A") {
		t.Error("A still present after Del")
	}
	if h.Len() != 1 || h.At(0).Key != "B" {
		t.Fatalf("after Del: %v", h.list)
	}

	// The index must follow later appends.
	if err := h.Add("A", "4"); err != nil {
		t.Fatal(err)
	}
	if got := h.Values("A"); !slices.Equal(got, []string{"4"}) {
		t.Errorf("Values(A) = %v, want [4]", got)
	}
	if h.Get("B") != "2" {
		t.Errorf("Get(B) = %q", h.Get("B"))
	}
}

func TestHeaders_Validation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  error
	}{
		{"CR in value", "X-A", "a\rb", ErrInvalidHeaderValue},
		{"LF in value", "X-A", "a\nInjected: yes", ErrInvalidHeaderValue},
		{"NUL in value", "X-A", "a\x00", ErrInvalidHeaderValue},
		{"space in name", "X A", "v", ErrMalformedHeader},
		{"colon in name", "X:A", "v", ErrMalformedHeader},
		{"empty name", "", "v", ErrMalformedHeader},
		{"newline in name", "X\r\nA", "v", ErrMalformedHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h Headers
			if err := h.Add(tt.key, tt.value); !errors.Is(err, tt.want) {
				t.Errorf("Add() error = %v, want %v", err, tt.want)
			}
			if err := h.Set(tt.key, tt.value); !errors.Is(err, tt.want) {
				t.Errorf("Set() error = %v, want %v", err, tt.want)
			}
			if h.Len() != 0 {
				t.Errorf("invalid header was stored")
			}
		})
	}
}

func TestHeaders_Clone(t *testing.T) {
	h := mustHeaders(t, "A", "1")
	c := h.Clone()
	if err := c.Set("A", "2"); err != nil {
		t.Fatal(err)
	}
	if h.Get("A") != "1" {
		t.Errorf("original changed through clone: %q", h.Get("A"))
	}
	if c.Get("A") != "2" {
		t.Errorf("clone Get = %q", c.Get("A"))
	}
}

func TestHeaders_ContentLength(t *testing.T) {
	tests := []struct {
		kv   []string
		want int64
	}{
		{nil, -1},
		{[]string{"Content-Length", "42"}, 42},
		{[]string{"content-length", " 7 "}, 7},
		{[]string{"Content-Length", "abc"}, -1},
		{[]string{"Content-Length", "-3"}, -1},
	}
	for _, tt := range tests {
		h := mustHeaders(t, tt.kv...)
		if got := h.ContentLength(); got != tt.want {
			t.Errorf("ContentLength(%v) = %d, want %d", tt.kv, got, tt.want)
		}
	}
}

func TestHeaders_IsChunked(t *testing.T) {
	tests := []struct {
		kv   []string
		want bool
	}{
		{nil, false},
		{[]string{"Transfer-Encoding", "chunked"}, true},
		{[]string{"Transfer-Encoding", "Chunked"}, true},
		{[]string{"Transfer-Encoding", "gzip, chunked"}, true},
		{[]string{"Transfer-Encoding", "chunked, gzip"}, false},
		{[]string{"Transfer-Encoding", "gzip", "Transfer-Encoding", "chunked"}, true},
	}
	for _, tt := range tests {
		h := mustHeaders(t, tt.kv...)
		if got := h.IsChunked(); got != tt.want {
			t.Errorf("IsChunked(%v) = %v, want %v", tt.kv, got, tt.want)
		}
	}
}

func TestHeaders_HasToken(t *testing.T) {
	h := mustHeaders(t, "Connection", "keep-alive, Upgrade", "Connection", "TE")
	for _, tok := range []string{"keep-alive", "upgrade", "te"} {
		if !h.HasToken("connection", tok) {
			t.Errorf("HasToken(%q) = false", tok)
		}
	}
	if h.HasToken("Connection", "close") {
		t.Error("HasToken(close) = true")
	}
}

func TestNewHeaders(t *testing.T) {
	h, err := NewHeaders(Header{"Host", "a"}, Header{"Accept", "*/*"})
	if err != nil {
		t.Fatal(err)
	}
	if h.Len() != 2 || h.Get("accept") != "*/*" {
		t.Errorf("NewHeaders = %v", h.list)
	}
	if _, err := NewHeaders(Header{"Bad Name", "x"}); !errors.Is(err, ErrMalformedHeader) {
		t.Errorf("NewHeaders(bad) error = %v", err)
	}
}
