package url

import "strings"

// Character classes from RFC 3986 §2 and §3, one bit per class.
const (
	classUnreserved uint8 = 1 << iota // ALPHA DIGIT - . _ ~
	classSubDelim                     // ! $ & ' ( ) * + , ; =
	classScheme                       // ALPHA DIGIT + - .
)

var charClass = func() (t [256]uint8) {
	for c := 'a'; c <= 'z'; c++ {
		t[c] |= classUnreserved | classScheme
		t[c-'a'+'A'] |= classUnreserved | classScheme
	}
	for c := '0'; c <= '9'; c++ {
		t[c] |= classUnreserved | classScheme
	}
	for _, c := range "-._~" {
		t[c] |= classUnreserved
	}
	for _, c := range "!$&'()*+,;=" {
		t[c] |= classSubDelim
	}
	for _, c := range "+-." {
		t[c] |= classScheme
	}
	return t
}()

func isUnreserved(c byte) bool { return charClass[c]&classUnreserved != 0 }
func isSubDelim(c byte) bool   { return charClass[c]&classSubDelim != 0 }
func isSchemeChar(c byte) bool { return charClass[c]&classScheme != 0 }

func isAlpha(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }

func isPchar(c byte) bool {
	return isUnreserved(c) || isSubDelim(c) || c == ':' || c == '@'
}

type component uint8

const (
	componentPath component = iota
	componentQuery
	componentFragment
	componentUser
)

// shouldEscape reports whether c must be percent-encoded in the component.
func shouldEscape(c byte, comp component) bool {
	switch comp {
	case componentPath:
		return !isPchar(c) && c != '/'
	case componentQuery:
		// '&', '=' and '+' delimit or encode form values.
		if c == '&' || c == '=' || c == '+' {
			return true
		}
		return !isPchar(c) && c != '/' && c != '?'
	case componentFragment:
		return !isPchar(c) && c != '/' && c != '?'
	case componentUser:
		return !isUnreserved(c) && !isSubDelim(c) && c != ':'
	}
	return true
}

const upperHex = "0123456789ABCDEF"

func escape(s string, comp component) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if shouldEscape(s[i], comp) && !(comp == componentQuery && s[i] == ' ') {
			n++
		}
	}
	spaces := comp == componentQuery && strings.IndexByte(s, ' ') >= 0
	if n == 0 && !spaces {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case comp == componentQuery && c == ' ':
			b.WriteByte('+')
		case shouldEscape(c, comp):
			b.WriteByte('%')
			b.WriteByte(upperHex[c>>4])
			b.WriteByte(upperHex[c&15])
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// unescape decodes %XX escapes. In form mode '+' decodes to a space.
func unescape(s string, form bool) (string, bool) {
	n := 0
	plus := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%':
			if i+2 >= len(s) {
				return "", false
			}
			if _, ok := unhex(s[i+1]); !ok {
				return "", false
			}
			if _, ok := unhex(s[i+2]); !ok {
				return "", false
			}
			n++
			i += 2
		case '+':
			plus = form
		}
	}
	if n == 0 && !plus {
		return s, true
	}

	b := make([]byte, 0, len(s)-2*n)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '%':
			hi, _ := unhex(s[i+1])
			lo, _ := unhex(s[i+2])
			b = append(b, hi<<4|lo)
			i += 2
		case c == '+' && form:
			b = append(b, ' ')
		default:
			b = append(b, c)
		}
	}
	return string(b), true
}

// validEncoded reports whether s is already a valid encoding for comp, so
// it can be emitted unchanged.
func validEncoded(s string, comp component) bool {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c != '%' && shouldEscape(c, comp) {
			return false
		}
	}
	return true
}

// QueryPair is one key/value element of a query string.
type QueryPair struct {
	Key   string
	Value string
}

func parseQuery(raw string) ([]QueryPair, bool) {
	var pairs []QueryPair
	for raw != "" {
		var seg string
		seg, raw, _ = strings.Cut(raw, "&")
		if seg == "" {
			continue
		}
		k, v, _ := strings.Cut(seg, "=")
		key, ok := unescape(k, true)
		if !ok {
			return nil, false
		}
		value, ok := unescape(v, true)
		if !ok {
			return nil, false
		}
		pairs = append(pairs, QueryPair{Key: key, Value: value})
	}
	return pairs, true
}

// ParseQuery decodes an application/x-www-form-urlencoded string.
func ParseQuery(raw string) ([]QueryPair, error) {
	pairs, ok := parseQuery(raw)
	if !ok {
		return nil, invalid(raw, "malformed query escape")
	}
	return pairs, nil
}

// EncodeQuery renders pairs in order. A pair with an empty value is written
// as a bare key.
func EncodeQuery(pairs []QueryPair) string {
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escape(p.Key, componentQuery))
		if p.Value != "" || p.Key == "" {
			b.WriteByte('=')
			b.WriteString(escape(p.Value, componentQuery))
		}
	}
	return b.String()
}

// PathEscape percent-encodes s for use in a path.
func PathEscape(s string) string { return escape(s, componentPath) }

// QueryEscape percent-encodes s for use as a query key or value.
func QueryEscape(s string) string { return escape(s, componentQuery) }

// Unescape decodes percent escapes in s.
func Unescape(s string) (string, error) {
	out, ok := unescape(s, false)
	if !ok {
		return "", invalid(s, "malformed percent escape")
	}
	return out, nil
}
