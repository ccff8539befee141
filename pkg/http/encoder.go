package http

import (
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// framing is the body delimitation chosen for an outgoing message.
type framing uint8

const (
	frameNone    framing = iota // no body, no framing header
	frameLength                 // Content-Length
	frameChunked                // Transfer-Encoding: chunked
	frameClose                  // body ends when the connection closes
)

// plan records what the scribe decided for one message.
type plan struct {
	frame     framing
	length    int64 // for frameLength
	writeBody bool  // false for HEAD responses and body-less statuses
	passFrame bool  // emit caller framing headers untouched (304)
	dropFrame bool  // strip caller framing headers (1xx, 204)
	close     bool  // add Connection: close
}

func methodHasBody(method string) bool {
	return method == "POST" || method == "PUT" || method == "PATCH"
}

func normalizeVersion(v string) (string, error) {
	switch v {
	case "":
		return "HTTP/1.1", nil
	case "HTTP/1.1", "HTTP/1.0":
		return v, nil
	}
	return "", serializeErrorf(InvalidMessage, "unsupported version %q", v)
}

// planContent picks framing for c from the HTTP version and, for requests,
// whether the method expects a body.
func planContent(c *Content, version string, request, bodyMethod bool) (plan, error) {
	switch c.Kind {
	case ContentEmpty:
		if request && !bodyMethod {
			return plan{frame: frameNone}, nil
		}
		return plan{frame: frameLength, length: 0, writeBody: true}, nil

	case ContentBuffered:
		if c.length >= 0 && c.length != int64(len(c.data)) {
			return plan{}, serializeErrorf(ContentLengthMismatch, "declared %d bytes, buffer holds %d", c.length, len(c.data))
		}
		return plan{frame: frameLength, length: int64(len(c.data)), writeBody: true}, nil

	case ContentStreamed:
		if c.source == nil {
			return plan{}, serializeErrorf(InvalidMessage, "streamed content without a source")
		}
		if c.length >= 0 {
			return plan{frame: frameLength, length: c.length, writeBody: true}, nil
		}
		if version == "HTTP/1.1" {
			return plan{frame: frameChunked, writeBody: true}, nil
		}
		if request {
			return plan{}, serializeErrorf(UnframeableBody, "HTTP/1.0 request body of unknown length")
		}
		return plan{frame: frameClose, writeBody: true, close: true}, nil
	}
	return plan{}, serializeErrorf(InvalidMessage, "unknown content kind %d", c.Kind)
}

func validTarget(target string) bool {
	if target == "" {
		return false
	}
	for i := 0; i < len(target); i++ {
		if c := target[i]; c <= ' ' || c == 0x7f {
			return false
		}
	}
	return true
}

// appendRequestHead serializes the request line and header block.
func appendRequestHead(buf []byte, req *Request, opts ScribeOptions) ([]byte, plan, error) {
	if !httpguts.ValidHeaderFieldName(req.Method) {
		return buf, plan{}, serializeErrorf(InvalidMessage, "invalid method %q", req.Method)
	}
	target := req.Target
	if target == "" && req.URL != nil {
		target = req.URL.RequestURI()
	}
	if !validTarget(target) {
		return buf, plan{}, serializeErrorf(InvalidMessage, "invalid request target %q", target)
	}
	version, err := normalizeVersion(req.Version)
	if err != nil {
		return buf, plan{}, err
	}
	if !httpguts.ValidHeaderFieldValue(req.Content.Type) {
		return buf, plan{}, serializeErrorf(InvalidMessage, "invalid content type %q", req.Content.Type)
	}
	p, err := planContent(&req.Content, version, true, methodHasBody(req.Method))
	if err != nil {
		return buf, plan{}, err
	}
	p.close = p.close || opts.Close

	buf = appendRequestLine(buf, req.Method, target, version)
	buf = appendFields(buf, &req.Headers, req.Content.Type, p)
	return buf, p, nil
}

// appendResponseHead serializes the status line and header block.
func appendResponseHead(buf []byte, resp *Response, opts ScribeOptions) ([]byte, plan, error) {
	if resp.StatusCode < 100 || resp.StatusCode > 999 {
		return buf, plan{}, serializeErrorf(InvalidMessage, "invalid status code %d", resp.StatusCode)
	}
	if strings.ContainsAny(resp.Reason, "\r\n") {
		return buf, plan{}, serializeErrorf(InvalidMessage, "reason phrase contains a line break")
	}
	if !httpguts.ValidHeaderFieldValue(resp.Content.Type) {
		return buf, plan{}, serializeErrorf(InvalidMessage, "invalid content type %q", resp.Content.Type)
	}
	version, err := normalizeVersion(resp.Version)
	if err != nil {
		return buf, plan{}, err
	}
	// The framing version is the one the peer reads, which can be older
	// than the version on the status line.
	frameVersion := version
	if opts.PeerHTTP10 {
		frameVersion = "HTTP/1.0"
	}
	reason := resp.Reason
	if reason == "" {
		reason = StatusText(resp.StatusCode)
	}

	var p plan
	switch {
	case resp.StatusCode == StatusNotModified:
		p = plan{frame: frameNone, passFrame: true}
	case bodylessStatus(resp.StatusCode):
		p = plan{frame: frameNone, dropFrame: true}
	default:
		p, err = planContent(&resp.Content, frameVersion, false, false)
		if err != nil {
			return buf, plan{}, err
		}
		if opts.HeadOnly {
			p.writeBody = false
		}
	}
	p.close = p.close || opts.Close

	buf = appendStatusLine(buf, version, resp.StatusCode, reason)
	contentType := resp.Content.Type
	if p.passFrame || p.dropFrame {
		contentType = ""
	}
	buf = appendFields(buf, &resp.Headers, contentType, p)
	return buf, p, nil
}

// appendFields writes caller headers in order, correcting or dropping
// framing headers that disagree with p, then appends whatever framing,
// Content-Type and Connection headers are still missing, and the blank line.
func appendFields(buf []byte, h *Headers, contentType string, p plan) []byte {
	wroteLength, wroteTE := false, false
	lengthValue := strconv.FormatInt(p.length, 10)

	for i := 0; i < h.Len(); i++ {
		hdr := h.At(i)
		switch {
		case p.passFrame:
		case strings.EqualFold(hdr.Key, "Content-Length"):
			if p.dropFrame || p.frame != frameLength || wroteLength {
				continue
			}
			if strings.TrimSpace(hdr.Value) != lengthValue {
				hdr.Value = lengthValue
			}
			wroteLength = true
		case strings.EqualFold(hdr.Key, "Transfer-Encoding"):
			if p.dropFrame || p.frame != frameChunked || wroteTE {
				continue
			}
			if !singleChunked(hdr.Value) {
				hdr.Value = "chunked"
			}
			wroteTE = true
		}
		buf = appendHeader(buf, hdr.Key, hdr.Value)
	}

	if contentType != "" && !h.Has("Content-Type") {
		buf = appendHeader(buf, "Content-Type", contentType)
	}
	if p.close && !h.HasToken("Connection", "close") {
		buf = appendHeader(buf, "Connection", "close")
	}
	if !p.passFrame && !p.dropFrame {
		switch {
		case p.frame == frameLength && !wroteLength:
			buf = appendHeader(buf, "Content-Length", lengthValue)
		case p.frame == frameChunked && !wroteTE:
			buf = appendHeader(buf, "Transfer-Encoding", "chunked")
		}
	}
	return appendCRLF(buf)
}

// singleChunked reports whether v is exactly the chunked coding. Other
// codings are not applied by the scribe, so they cannot be advertised.
func singleChunked(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "chunked")
}
