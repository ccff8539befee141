package fastparser

import "bytes"

// Chunked framing per RFC 9112 §7.1:
//
//	hex-size [; ext] CRLF data CRLF ... 0 CRLF [trailers] CRLF
//
// The size line and the CRLF after chunk data must use CRLF exactly; a bare LF
// there is a framing error. Chunk extensions are ignored.

// maxChunkSizeDigits is the widest hex size that fits an int64.
const maxChunkSizeDigits = 16

func (p *Parser) parseChunkSize(line []byte) *Error {
	if semi := bytes.IndexByte(line, ';'); semi >= 0 {
		line = line[:semi]
	}
	line = trimOWS(line)

	size, ok := parseHexSize(line)
	if !ok {
		return p.errorf(MalformedChunk, "invalid chunk size %q", line)
	}
	if size == 0 {
		p.state = stateTrailers
		return nil
	}
	p.remaining = size
	p.state = stateChunkData
	return nil
}

// parseHexSize parses a chunk size. It rejects empty input, non-hex digits and
// values that do not fit in an int64.
func parseHexSize(b []byte) (int64, bool) {
	if len(b) == 0 || len(b) > maxChunkSizeDigits {
		return 0, false
	}
	var n int64
	for _, c := range b {
		var d int64
		switch {
		case c >= '0' && c <= '9':
			d = int64(c - '0')
		case c >= 'a' && c <= 'f':
			d = int64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = int64(c-'A') + 10
		default:
			return 0, false
		}
		if n > (1<<63-1)>>4 {
			return 0, false
		}
		n = n<<4 | d
	}
	return n, true
}
