// Package url parses and formats absolute and relative URLs.
//
// Path, query and fragment are stored decoded and re-encoded on output, so
// Parse(u.String()) yields a URL equal to u. Hosts are lower-cased and
// internationalized names are converted to their ASCII form.
package url

import (
	"net/netip"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

// Scheme classifies the URL scheme.
type Scheme uint8

const (
	SchemeNone Scheme = iota
	SchemeHTTP
	SchemeHTTPS
	SchemeOther
)

func (s Scheme) String() string {
	switch s {
	case SchemeHTTP:
		return "http"
	case SchemeHTTPS:
		return "https"
	case SchemeOther:
		return "other"
	}
	return ""
}

// URL is a parsed URL or relative reference.
type URL struct {
	Scheme    Scheme
	RawScheme string // lower-cased scheme text, set for every scheme

	User string // raw userinfo, without the '@'
	Host string // lower-cased; IPv6 literals without brackets
	Port int    // 0 when absent

	Path    string // decoded
	RawPath string // original encoding, when it differs from the default

	Query []QueryPair // decoded, in order

	Fragment    string // decoded
	HasFragment bool
}

// Parse parses raw as a URL or relative reference.
func Parse(raw string) (*URL, error) {
	u, _, err := parse(raw)
	return u, err
}

// ParseBytes parses raw as a URL or relative reference.
func ParseBytes(raw []byte) (*URL, error) {
	return Parse(string(raw))
}

// refInfo records which optional components were present, which matters
// only for reference resolution.
type refInfo struct {
	authority bool
	query     bool
}

func parse(raw string) (*URL, refInfo, error) {
	var info refInfo
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c <= ' ' || c == 0x7f {
			return nil, info, invalid(raw, "invalid character "+strconv.QuoteRune(rune(c)))
		}
	}

	u := &URL{}
	rest := raw

	if i := strings.IndexByte(rest, '#'); i >= 0 {
		frag, ok := unescape(rest[i+1:], false)
		if !ok {
			return nil, info, invalid(raw, "malformed percent escape in fragment")
		}
		u.Fragment, u.HasFragment = frag, true
		rest = rest[:i]
	}

	scheme, rest, err := splitScheme(raw, rest)
	if err != nil {
		return nil, info, err
	}
	u.setScheme(scheme)

	if i := strings.IndexByte(rest, '?'); i >= 0 {
		q, ok := parseQuery(rest[i+1:])
		if !ok {
			return nil, info, invalid(raw, "malformed percent escape in query")
		}
		u.Query = q
		info.query = true
		rest = rest[:i]
	}

	if strings.HasPrefix(rest, "//") {
		info.authority = true
		authority := rest[2:]
		rest = ""
		if i := strings.IndexByte(authority, '/'); i >= 0 {
			authority, rest = authority[:i], authority[i:]
		}
		if err := u.parseAuthority(raw, authority); err != nil {
			return nil, info, err
		}
	}

	if err := u.setPath(raw, rest); err != nil {
		return nil, info, err
	}
	return u, info, nil
}

// splitScheme separates "scheme:" from the rest of the reference.
func splitScheme(raw, s string) (scheme, rest string, err error) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ':':
			if i == 0 {
				return "", "", invalid(raw, "missing scheme")
			}
			return strings.ToLower(s[:i]), s[i+1:], nil
		case c == '/' || c == '?':
			return "", s, nil
		case isAlpha(c):
		case isSchemeChar(c) && i > 0:
		default:
			// a relative path whose first segment holds a colon is ambiguous
			if j := strings.IndexByte(s, ':'); j >= 0 {
				if k := strings.IndexByte(s, '/'); k < 0 || j < k {
					return "", "", invalid(raw, "first path segment cannot contain a colon")
				}
			}
			return "", s, nil
		}
	}
	return "", s, nil
}

func (u *URL) setScheme(scheme string) {
	u.RawScheme = scheme
	switch scheme {
	case "":
		u.Scheme = SchemeNone
	case "http":
		u.Scheme = SchemeHTTP
	case "https":
		u.Scheme = SchemeHTTPS
	default:
		u.Scheme = SchemeOther
	}
}

func (u *URL) parseAuthority(raw, authority string) error {
	if i := strings.LastIndexByte(authority, '@'); i >= 0 {
		user := authority[:i]
		for j := 0; j < len(user); j++ {
			if c := user[j]; c != '%' && shouldEscape(c, componentUser) {
				return invalid(raw, "invalid character in userinfo")
			}
		}
		if _, ok := unescape(user, false); !ok {
			return invalid(raw, "malformed percent escape in userinfo")
		}
		u.User = user
		authority = authority[i+1:]
	}

	host, port := authority, ""
	if strings.HasPrefix(authority, "[") {
		end := strings.IndexByte(authority, ']')
		if end < 0 {
			return invalid(raw, "missing ']' in host")
		}
		host = authority[1:end]
		switch tail := authority[end+1:]; {
		case tail == "":
		case tail[0] == ':':
			port = tail[1:]
		default:
			return invalid(raw, "unexpected characters after IPv6 literal")
		}
		addr, err := netip.ParseAddr(host)
		if err != nil || !addr.Is6() || addr.Zone() != "" {
			return invalid(raw, "invalid IPv6 literal")
		}
		u.Host = strings.ToLower(host)
	} else {
		if i := strings.LastIndexByte(authority, ':'); i >= 0 {
			host, port = authority[:i], authority[i+1:]
		}
		h, err := normalizeHost(host)
		if err != nil {
			return invalid(raw, err.Error())
		}
		u.Host = h
	}

	if port != "" {
		n, err := parsePort(port)
		if err != nil {
			return invalid(raw, err.Error())
		}
		u.Port = n
	}
	return nil
}

type reasonError string

func (e reasonError) Error() string { return string(e) }

func normalizeHost(host string) (string, error) {
	ascii := true
	for i := 0; i < len(host); i++ {
		c := host[i]
		if c >= 0x80 {
			ascii = false
			continue
		}
		if !isUnreserved(c) && !isSubDelim(c) {
			return "", reasonError("invalid character " + strconv.QuoteRune(rune(c)) + " in host")
		}
	}
	if ascii {
		return strings.ToLower(host), nil
	}
	h, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", reasonError("invalid internationalized host: " + err.Error())
	}
	return h, nil
}

func parsePort(s string) (int, error) {
	if len(s) > 5 {
		return 0, reasonError("port out of range")
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, reasonError("invalid port " + strconv.Quote(s))
		}
		n = n*10 + int(c-'0')
	}
	if n > 65535 {
		return 0, reasonError("port out of range")
	}
	return n, nil
}

func (u *URL) setPath(raw, p string) error {
	decoded, ok := unescape(p, false)
	if !ok {
		return invalid(raw, "malformed percent escape in path")
	}
	u.Path = decoded
	u.RawPath = ""
	if escape(decoded, componentPath) != p {
		u.RawPath = p
	}
	return nil
}

// SchemeName returns the scheme text, or "" for a relative reference.
func (u *URL) SchemeName() string {
	if u.RawScheme != "" {
		return u.RawScheme
	}
	switch u.Scheme {
	case SchemeHTTP, SchemeHTTPS:
		return u.Scheme.String()
	}
	return ""
}

// IsAbsolute reports whether the URL has a scheme.
func (u *URL) IsAbsolute() bool { return u.SchemeName() != "" }

func (u *URL) hasAuthority() bool {
	return u.Host != "" || u.User != "" || u.Port != 0
}

// EffectivePort returns Port, or the default port of the scheme.
func (u *URL) EffectivePort() int {
	if u.Port != 0 {
		return u.Port
	}
	switch u.Scheme {
	case SchemeHTTP:
		return 80
	case SchemeHTTPS:
		return 443
	}
	return 0
}

// EscapedPath returns the encoded path, preferring RawPath when it is a
// valid encoding of Path.
func (u *URL) EscapedPath() string {
	if u.RawPath != "" && validEncoded(u.RawPath, componentPath) {
		if p, ok := unescape(u.RawPath, false); ok && p == u.Path {
			return u.RawPath
		}
	}
	return escape(u.Path, componentPath)
}

// RequestURI returns the encoded path and query as sent in a request line.
func (u *URL) RequestURI() string {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if len(u.Query) > 0 {
		p += "?" + EncodeQuery(u.Query)
	}
	return p
}

// Base returns scheme://host[:port] with no path.
func (u *URL) Base() string {
	var b strings.Builder
	if s := u.SchemeName(); s != "" {
		b.WriteString(s)
		b.WriteByte(':')
	}
	b.WriteString("//")
	u.writeHostPort(&b)
	return b.String()
}

func (u *URL) writeHostPort(b *strings.Builder) {
	if strings.IndexByte(u.Host, ':') >= 0 {
		b.WriteByte('[')
		b.WriteString(u.Host)
		b.WriteByte(']')
	} else {
		b.WriteString(u.Host)
	}
	if u.Port != 0 {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(u.Port))
	}
}

// String reassembles the URL, percent-encoding reserved characters.
func (u *URL) String() string {
	var b strings.Builder
	scheme := u.SchemeName()
	if scheme != "" {
		b.WriteString(scheme)
		b.WriteByte(':')
	}

	path := u.EscapedPath()
	switch {
	case u.hasAuthority() || strings.HasPrefix(path, "//"):
		b.WriteString("//")
		if u.User != "" {
			b.WriteString(u.User)
			b.WriteByte('@')
		}
		u.writeHostPort(&b)
		if path != "" && path[0] != '/' {
			b.WriteByte('/')
		}
	case scheme == "":
		// keep a colon in the first segment from reading as a scheme
		seg := path
		if i := strings.IndexByte(seg, '/'); i >= 0 {
			seg = seg[:i]
		}
		if strings.IndexByte(seg, ':') >= 0 {
			path = strings.ReplaceAll(seg, ":", "%3A") + path[len(seg):]
		}
	}
	b.WriteString(path)

	if len(u.Query) > 0 {
		b.WriteByte('?')
		b.WriteString(EncodeQuery(u.Query))
	}
	if u.HasFragment {
		b.WriteByte('#')
		b.WriteString(escape(u.Fragment, componentFragment))
	}
	return b.String()
}

// Equal reports whether u and v denote the same URL, ignoring differences
// in percent-encoding.
func (u *URL) Equal(v *URL) bool {
	if u == nil || v == nil {
		return u == v
	}
	return u.SchemeName() == v.SchemeName() &&
		u.User == v.User &&
		u.Host == v.Host &&
		u.Port == v.Port &&
		u.Path == v.Path &&
		slices.Equal(u.Query, v.Query) &&
		u.Fragment == v.Fragment &&
		u.HasFragment == v.HasFragment
}

// Clone returns a deep copy of u.
func (u *URL) Clone() *URL {
	c := *u
	c.Query = slices.Clone(u.Query)
	return &c
}

// QueryGet returns the first value for name.
func (u *URL) QueryGet(name string) (string, bool) {
	for _, p := range u.Query {
		if p.Key == name {
			return p.Value, true
		}
	}
	return "", false
}

// QueryGetAll returns every value for name, in order.
func (u *URL) QueryGetAll(name string) []string {
	var values []string
	for _, p := range u.Query {
		if p.Key == name {
			values = append(values, p.Value)
		}
	}
	return values
}

// QueryAdd appends a pair.
func (u *URL) QueryAdd(name, value string) {
	u.Query = append(u.Query, QueryPair{Key: name, Value: value})
}

// QuerySet replaces all values for name with a single pair, kept at the
// position of the first existing one.
func (u *URL) QuerySet(name, value string) {
	idx := -1
	out := u.Query[:0]
	for _, p := range u.Query {
		if p.Key == name {
			if idx >= 0 {
				continue
			}
			idx = len(out)
			p.Value = value
		}
		out = append(out, p)
	}
	u.Query = out
	if idx < 0 {
		u.QueryAdd(name, value)
	}
}

// QueryDel removes all pairs for name.
func (u *URL) QueryDel(name string) {
	u.Query = slices.DeleteFunc(u.Query, func(p QueryPair) bool { return p.Key == name })
}
