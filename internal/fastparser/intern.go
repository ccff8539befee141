package fastparser

// String interning for common HTTP tokens.
//
// Map lookups keyed by string([]byte) do not allocate, so interning a known
// method, version, header name or reason costs no garbage per message.

func internTable(values ...string) map[string]string {
	m := make(map[string]string, len(values))
	for _, v := range values {
		m[v] = v
	}
	return m
}

var methods = internTable(
	"GET", "HEAD", "POST", "PUT", "DELETE", "CONNECT", "OPTIONS", "TRACE", "PATCH",
)

var versions = internTable("HTTP/1.0", "HTTP/1.1")

var headerNames = internTable(
	"Accept", "Accept-Charset", "Accept-Encoding", "Accept-Language", "Accept-Ranges",
	"Age", "Allow", "Authorization", "Cache-Control", "Connection",
	"Content-Disposition", "Content-Encoding", "Content-Language", "Content-Length",
	"Content-Location", "Content-Range", "Content-Type", "Cookie", "Date", "ETag",
	"Expect", "Expires", "From", "Host", "If-Match", "If-Modified-Since",
	"If-None-Match", "If-Range", "If-Unmodified-Since", "Keep-Alive", "Last-Modified",
	"Location", "Max-Forwards", "Origin", "Pragma", "Proxy-Authenticate",
	"Proxy-Authorization", "Range", "Referer", "Retry-After", "Server", "Set-Cookie",
	"TE", "Trailer", "Transfer-Encoding", "Upgrade", "User-Agent", "Vary", "Via",
	"Warning", "WWW-Authenticate", "X-Forwarded-For", "X-Forwarded-Host",
	"X-Forwarded-Proto", "X-Request-ID", "X-Real-IP",
	// lower-case spellings sent by many clients and proxies
	"host", "content-length", "content-type", "transfer-encoding", "connection",
	"user-agent", "accept", "cookie",
)

var reasons = internTable(
	"Continue", "Switching Protocols", "OK", "Created", "Accepted", "No Content",
	"Partial Content", "Moved Permanently", "Found", "See Other", "Not Modified",
	"Temporary Redirect", "Permanent Redirect", "Bad Request", "Unauthorized",
	"Forbidden", "Not Found", "Method Not Allowed", "Conflict", "Gone",
	"Content Too Large", "Payload Too Large", "URI Too Long",
	"Request Header Fields Too Large", "Internal Server Error", "Not Implemented",
	"Bad Gateway", "Service Unavailable", "Gateway Timeout",
)

func intern(table map[string]string, b []byte) string {
	if s, ok := table[string(b)]; ok {
		return s
	}
	return string(b)
}

func internMethod(b []byte) string     { return intern(methods, b) }
func internVersion(b []byte) string    { return intern(versions, b) }
func internHeaderName(b []byte) string { return intern(headerNames, b) }
func internReason(b []byte) string     { return intern(reasons, b) }
