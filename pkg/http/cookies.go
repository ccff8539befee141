package http

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"

	"github.com/shapestone/shape-wire/internal/tokenizer"
)

// SameSite is the value of a cookie's SameSite attribute.
type SameSite uint8

const (
	SameSiteDefault SameSite = iota // attribute absent
	SameSiteLax
	SameSiteStrict
	SameSiteNone
)

func (s SameSite) String() string {
	switch s {
	case SameSiteLax:
		return "Lax"
	case SameSiteStrict:
		return "Strict"
	case SameSiteNone:
		return "None"
	}
	return ""
}

// CookieAttr is an attribute the cookie model does not know about.
type CookieAttr struct {
	Name     string
	Value    string
	HasValue bool
}

// Cookie is a cookie as carried by a Set-Cookie header.
type Cookie struct {
	Name  string
	Value string

	Domain    string
	Path      string
	Expires   time.Time // zero if absent
	MaxAge    int
	HasMaxAge bool
	Secure    bool
	HttpOnly  bool
	SameSite  SameSite

	Extensions []CookieAttr // unknown attributes in order of appearance
	Warnings   []string     // malformed attributes dropped while parsing
}

// TimeFormat is the date format written in the Expires attribute.
const TimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// FormatCookieTime formats t for an Expires attribute.
func FormatCookieTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

var cookieTimeLayouts = []string{
	TimeFormat,
	"Mon, 02-Jan-2006 15:04:05 GMT",
	"Monday, 02-Jan-06 15:04:05 GMT",
	"Mon, 02 Jan 2006 15:04:05 -0700",
	"Mon Jan _2 15:04:05 2006",
	"Mon, 2 Jan 2006 15:04:05 GMT",
}

func parseCookieTime(s string) (time.Time, bool) {
	for _, layout := range cookieTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func unquoteCookieValue(v string) string {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return v[1 : len(v)-1]
	}
	return v
}

// ParseCookieHeader parses a request Cookie header into name/value pairs.
// When a name repeats, the first value wins. Elements without '=' are skipped.
func ParseCookieHeader(value string) map[string]string {
	cookies := make(map[string]string)
	parseCookieInto(cookies, value)
	return cookies
}

func parseCookieInto(dst map[string]string, value string) {
	for _, p := range tokenizer.Pairs(value) {
		if !p.HasValue || p.Name == "" {
			continue
		}
		if _, dup := dst[p.Name]; dup {
			continue
		}
		dst[p.Name] = unquoteCookieValue(p.Value)
	}
}

// ParseSetCookie parses one Set-Cookie header value. Only a missing or
// invalid name=value pair fails; bad attribute values are dropped and noted
// in Warnings.
func ParseSetCookie(value string) (*Cookie, error) {
	pairs := tokenizer.Pairs(value)
	if len(pairs) == 0 || !pairs[0].HasValue {
		return nil, newParseError(MalformedHeader, "set-cookie: missing name=value pair")
	}
	first := pairs[0]
	if !httpguts.ValidHeaderFieldName(first.Name) {
		return nil, newParseError(MalformedHeader, "set-cookie: invalid cookie name "+strconv.Quote(first.Name))
	}
	c := &Cookie{Name: first.Name, Value: unquoteCookieValue(first.Value)}

	for _, attr := range pairs[1:] {
		switch strings.ToLower(attr.Name) {
		case "domain":
			c.Domain = strings.ToLower(strings.TrimPrefix(attr.Value, "."))
		case "path":
			if strings.HasPrefix(attr.Value, "/") {
				c.Path = attr.Value
			} else {
				c.warn("path %q is not absolute", attr.Value)
			}
		case "expires":
			if t, ok := parseCookieTime(attr.Value); ok {
				c.Expires = t
			} else {
				c.warn("unparsable expires %q", attr.Value)
			}
		case "max-age":
			n, err := strconv.Atoi(attr.Value)
			if err != nil {
				c.warn("unparsable max-age %q", attr.Value)
				continue
			}
			c.MaxAge, c.HasMaxAge = n, true
		case "secure":
			c.Secure = true
		case "httponly":
			c.HttpOnly = true
		case "samesite":
			switch strings.ToLower(attr.Value) {
			case "lax":
				c.SameSite = SameSiteLax
			case "strict":
				c.SameSite = SameSiteStrict
			case "none":
				c.SameSite = SameSiteNone
			default:
				c.warn("unknown samesite %q", attr.Value)
			}
		default:
			c.Extensions = append(c.Extensions, CookieAttr{Name: attr.Name, Value: attr.Value, HasValue: attr.HasValue})
		}
	}
	return c, nil
}

func (c *Cookie) warn(format string, args ...interface{}) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

// String renders the cookie as a Set-Cookie value. Attributes are written
// in a fixed order: Expires, Max-Age, Domain, Path, Secure, HttpOnly,
// SameSite, then extensions.
func (c *Cookie) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte('=')
	if strings.ContainsAny(c.Value, " ,") {
		b.WriteByte('"')
		b.WriteString(c.Value)
		b.WriteByte('"')
	} else {
		b.WriteString(c.Value)
	}
	if !c.Expires.IsZero() {
		b.WriteString("; Expires=")
		b.WriteString(FormatCookieTime(c.Expires))
	}
	if c.HasMaxAge {
		b.WriteString("; Max-Age=")
		b.WriteString(strconv.Itoa(c.MaxAge))
	}
	if c.Domain != "" {
		b.WriteString("; Domain=")
		b.WriteString(c.Domain)
	}
	if c.Path != "" {
		b.WriteString("; Path=")
		b.WriteString(c.Path)
	}
	if c.Secure {
		b.WriteString("; Secure")
	}
	if c.HttpOnly {
		b.WriteString("; HttpOnly")
	}
	if c.SameSite != SameSiteDefault {
		b.WriteString("; SameSite=")
		b.WriteString(c.SameSite.String())
	}
	for _, ext := range c.Extensions {
		b.WriteString("; ")
		b.WriteString(ext.Name)
		if ext.HasValue {
			b.WriteByte('=')
			b.WriteString(ext.Value)
		}
	}
	return b.String()
}
