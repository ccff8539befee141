package url

import "strings"

// ParseRelative parses raw and resolves it against base per RFC 3986 §5.2.
// base must be absolute.
func ParseRelative(raw string, base *URL) (*URL, error) {
	if base == nil || !base.IsAbsolute() {
		return nil, invalid(raw, "base URL is not absolute")
	}
	ref, info, err := parse(raw)
	if err != nil {
		return nil, err
	}
	return resolve(base, ref, info), nil
}

// Join resolves ref against u.
func (u *URL) Join(ref string) (*URL, error) {
	return ParseRelative(ref, u)
}

func resolve(base, ref *URL, info refInfo) *URL {
	t := &URL{Fragment: ref.Fragment, HasFragment: ref.HasFragment}

	if ref.IsAbsolute() {
		t.Scheme, t.RawScheme = ref.Scheme, ref.RawScheme
		t.User, t.Host, t.Port = ref.User, ref.Host, ref.Port
		t.setResolvedPath(ref.EscapedPath())
		t.Query = cloneQuery(ref.Query)
		return t
	}

	t.Scheme, t.RawScheme = base.Scheme, base.RawScheme
	switch {
	case info.authority:
		t.User, t.Host, t.Port = ref.User, ref.Host, ref.Port
		t.setResolvedPath(ref.EscapedPath())
		t.Query = cloneQuery(ref.Query)
	default:
		t.User, t.Host, t.Port = base.User, base.Host, base.Port
		switch {
		case ref.Path == "":
			t.Path, t.RawPath = base.Path, base.RawPath
			if info.query {
				t.Query = cloneQuery(ref.Query)
			} else {
				t.Query = cloneQuery(base.Query)
			}
		case ref.Path[0] == '/':
			t.setResolvedPath(ref.EscapedPath())
			t.Query = cloneQuery(ref.Query)
		default:
			t.setResolvedPath(merge(base, ref.EscapedPath()))
			t.Query = cloneQuery(ref.Query)
		}
	}
	return t
}

func cloneQuery(q []QueryPair) []QueryPair {
	if len(q) == 0 {
		return nil
	}
	return append([]QueryPair(nil), q...)
}

// setResolvedPath removes dot segments from an encoded path and stores the
// result. Dot segments are matched before decoding, so an encoded slash
// never acts as a segment boundary.
func (u *URL) setResolvedPath(escaped string) {
	p := removeDotSegments(escaped)
	decoded, ok := unescape(p, false)
	if !ok {
		decoded = p
	}
	u.Path, u.RawPath = decoded, ""
	if escape(decoded, componentPath) != p {
		u.RawPath = p
	}
}

// merge implements RFC 3986 §5.2.3 over encoded paths.
func merge(base *URL, ref string) string {
	bp := base.EscapedPath()
	if base.hasAuthority() && bp == "" {
		return "/" + ref
	}
	if i := strings.LastIndexByte(bp, '/'); i >= 0 {
		return bp[:i+1] + ref
	}
	return ref
}

// removeDotSegments implements RFC 3986 §5.2.4.
func removeDotSegments(in string) string {
	if in == "" {
		return ""
	}
	out := make([]byte, 0, len(in))
	popSegment := func() {
		if i := strings.LastIndexByte(string(out), '/'); i >= 0 {
			out = out[:i]
		} else {
			out = out[:0]
		}
	}
	for len(in) > 0 {
		switch {
		case strings.HasPrefix(in, "../"):
			in = in[3:]
		case strings.HasPrefix(in, "./"):
			in = in[2:]
		case strings.HasPrefix(in, "/./"):
			in = in[2:]
		case in == "/.":
			in = "/"
		case strings.HasPrefix(in, "/../"):
			in = in[3:]
			popSegment()
		case in == "/..":
			in = "/"
			popSegment()
		case in == "." || in == "..":
			in = ""
		default:
			start := 0
			if in[0] == '/' {
				start = 1
			}
			end := len(in)
			if i := strings.IndexByte(in[start:], '/'); i >= 0 {
				end = start + i
			}
			out = append(out, in[:end]...)
			in = in[end:]
		}
	}
	return string(out)
}
