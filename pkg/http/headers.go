package http

import (
	"iter"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Header represents a single HTTP header key-value pair.
type Header struct {
	Key   string
	Value string
}

// Headers is an ordered, repeatable list of HTTP headers with
// case-insensitive lookup. The original case of names is preserved.
//
// The zero value is an empty list ready to use.
type Headers struct {
	list  []Header
	index map[string][]int // lower-cased name -> positions in list, built on demand
}

// NewHeaders builds Headers from key/value pairs, validating each one.
func NewHeaders(pairs ...Header) (Headers, error) {
	var h Headers
	for _, p := range pairs {
		if err := h.Add(p.Key, p.Value); err != nil {
			return Headers{}, err
		}
	}
	return h, nil
}

func foldName(name string) string { return strings.ToLower(name) }

func validateField(name, value string) error {
	if !httpguts.ValidHeaderFieldName(name) {
		return &ParseError{Kind: MalformedHeader, Section: SectionHeaders, Message: "invalid header name " + strconv.Quote(name)}
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return &ParseError{Kind: InvalidHeaderValue, Section: SectionHeaders, Message: "invalid value for header " + name}
	}
	return nil
}

func (h *Headers) buildIndex() {
	h.index = make(map[string][]int, len(h.list))
	for i, hdr := range h.list {
		k := foldName(hdr.Key)
		h.index[k] = append(h.index[k], i)
	}
}

func (h *Headers) positions(name string) []int {
	if len(h.list) == 0 {
		return nil
	}
	if h.index == nil {
		h.buildIndex()
	}
	return h.index[foldName(name)]
}

// Get returns the first value for name, or "" if absent.
func (h *Headers) Get(name string) string {
	v, _ := h.Lookup(name)
	return v
}

// Lookup returns the first value for name and whether it was present.
func (h *Headers) Lookup(name string) (string, bool) {
	if pos := h.positions(name); len(pos) > 0 {
		return h.list[pos[0]].Value, true
	}
	return "", false
}

// Has reports whether name is present.
func (h *Headers) Has(name string) bool {
	return len(h.positions(name)) > 0
}

// Values returns all values for name in order.
func (h *Headers) Values(name string) []string {
	pos := h.positions(name)
	if len(pos) == 0 {
		return nil
	}
	vals := make([]string, len(pos))
	for i, p := range pos {
		vals[i] = h.list[p].Value
	}
	return vals
}

// Add appends a header without replacing existing ones.
func (h *Headers) Add(name, value string) error {
	if err := validateField(name, value); err != nil {
		return err
	}
	h.add(name, value)
	return nil
}

// add appends a header that is already known to be valid.
func (h *Headers) add(name, value string) {
	h.list = append(h.list, Header{Key: name, Value: value})
	if h.index != nil {
		k := foldName(name)
		h.index[k] = append(h.index[k], len(h.list)-1)
	}
}

// Set replaces every header named name with a single one, kept at the
// position of the first occurrence, or appends it.
func (h *Headers) Set(name, value string) error {
	if err := validateField(name, value); err != nil {
		return err
	}
	h.set(name, value)
	return nil
}

func (h *Headers) set(name, value string) {
	pos := h.positions(name)
	switch len(pos) {
	case 0:
		h.add(name, value)
	case 1:
		h.list[pos[0]] = Header{Key: name, Value: value}
	default:
		first := pos[0]
		h.list[first] = Header{Key: name, Value: value}
		h.remove(pos[1:])
	}
}

// Del removes all headers named name.
func (h *Headers) Del(name string) {
	if pos := h.positions(name); len(pos) > 0 {
		h.remove(pos)
	}
}

// remove deletes the entries at the given ascending positions.
func (h *Headers) remove(pos []int) {
	j, k := 0, 0
	for i, hdr := range h.list {
		if k < len(pos) && pos[k] == i {
			k++
			continue
		}
		h.list[j] = hdr
		j++
	}
	clear(h.list[j:])
	h.list = h.list[:j]
	h.index = nil
}

// Len returns the number of header lines.
func (h *Headers) Len() int { return len(h.list) }

// At returns the i-th header line.
func (h *Headers) At(i int) Header { return h.list[i] }

// All iterates over headers in order.
func (h *Headers) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, hdr := range h.list {
			if !yield(hdr.Key, hdr.Value) {
				return
			}
		}
	}
}

// Clone returns a deep copy of the headers.
func (h *Headers) Clone() Headers {
	return Headers{list: slices.Clone(h.list)}
}

// ContentLength returns the Content-Length header value, or -1 if absent or invalid.
func (h *Headers) ContentLength() int64 {
	v, ok := h.Lookup("Content-Length")
	if !ok {
		return -1
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// IsChunked reports whether the final transfer coding is chunked.
func (h *Headers) IsChunked() bool {
	vals := h.Values("Transfer-Encoding")
	for i := len(vals) - 1; i >= 0; i-- {
		codings := strings.Split(vals[i], ",")
		for j := len(codings) - 1; j >= 0; j-- {
			if c := strings.TrimSpace(codings[j]); c != "" {
				return strings.EqualFold(c, "chunked")
			}
		}
	}
	return false
}

// HasToken reports whether any value of name, read as a comma-separated
// list, contains token (case-insensitive).
func (h *Headers) HasToken(name, token string) bool {
	for _, p := range h.positions(name) {
		if httpguts.HeaderValuesContainsToken([]string{h.list[p].Value}, token) {
			return true
		}
	}
	return false
}
