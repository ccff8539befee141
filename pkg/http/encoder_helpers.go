package http

import "strconv"

// appendCRLF appends \r\n to buf.
func appendCRLF(buf []byte) []byte {
	return append(buf, '\r', '\n')
}

// appendRequestLine appends "METHOD TARGET VERSION\r\n" to buf.
func appendRequestLine(buf []byte, method, target, version string) []byte {
	buf = append(buf, method...)
	buf = append(buf, ' ')
	buf = append(buf, target...)
	buf = append(buf, ' ')
	buf = append(buf, version...)
	return appendCRLF(buf)
}

// appendStatusLine appends "VERSION STATUS REASON\r\n" to buf.
func appendStatusLine(buf []byte, version string, statusCode int, reason string) []byte {
	buf = append(buf, version...)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(statusCode), 10)
	buf = append(buf, ' ')
	buf = append(buf, reason...)
	return appendCRLF(buf)
}

// appendHeader appends "Key: Value\r\n" to buf.
func appendHeader(buf []byte, key, value string) []byte {
	buf = append(buf, key...)
	buf = append(buf, ':', ' ')
	buf = append(buf, value...)
	return appendCRLF(buf)
}

// appendChunk appends one chunked-coding frame holding data.
func appendChunk(buf, data []byte) []byte {
	buf = strconv.AppendInt(buf, int64(len(data)), 16)
	buf = appendCRLF(buf)
	buf = append(buf, data...)
	return appendCRLF(buf)
}

// appendLastChunk appends the zero-size chunk, trailer fields and the final CRLF.
func appendLastChunk(buf []byte, trailers *Headers) []byte {
	buf = append(buf, '0', '\r', '\n')
	for k, v := range trailers.All() {
		buf = appendHeader(buf, k, v)
	}
	return appendCRLF(buf)
}
