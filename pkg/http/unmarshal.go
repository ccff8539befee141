package http

import (
	"fmt"

	"github.com/shapestone/shape-wire/internal/fastparser"
)

// Unmarshal parses the HTTP wire-format data and stores the result in v.
//
// v must be a *Request or *Response. The function auto-detects the message type
// based on whether data starts with "HTTP/" (response) or not (request).
// The end of data is treated as the end of the stream, so a response
// without framing headers takes every remaining byte as its body. Bytes
// after the first complete message are ignored.
//
// Authentication headers are parsed as ordinary HTTP headers and are available
// via req.Headers.Get:
//
//	req.Headers.Get("Authorization")   // "Basic dXNlcm5hbWU6cGFzc3dvcmQ="
//	req.Headers.Get("X-API-Key")       // "abc123def456"
//
// Query-string API keys land in req.URL:
//
//	// GET /api/users?api_key=abc123 HTTP/1.1  →  req.Query("api_key") = "abc123"
func Unmarshal(data []byte, v interface{}) error {
	if v == nil {
		return fmt.Errorf("http: Unmarshal(nil)")
	}

	// Check for Unmarshaler interface
	if u, ok := v.(Unmarshaler); ok {
		return u.UnmarshalHTTP(data)
	}

	isResp := fastparser.DetectMode(data) == fastparser.Responses

	switch target := v.(type) {
	case *Request:
		if isResp {
			return fmt.Errorf("http: data appears to be a response but target is *Request")
		}
		req, err := UnmarshalRequest(data)
		if err != nil {
			return err
		}
		*target = *req
		return nil

	case *Response:
		if !isResp {
			return fmt.Errorf("http: data appears to be a request but target is *Response")
		}
		resp, err := UnmarshalResponse(data)
		if err != nil {
			return err
		}
		*target = *resp
		return nil

	default:
		return fmt.Errorf("http: Unmarshal unsupported type %T (expected *Request or *Response)", v)
	}
}

// UnmarshalRequest parses HTTP wire-format data as a request.
func UnmarshalRequest(data []byte) (*Request, error) {
	msg, err := unmarshalFirst(NewRequestReader(Limits{}), data)
	if err != nil {
		return nil, err
	}
	return msg.(*Request), nil
}

// UnmarshalResponse parses HTTP wire-format data as a response.
func UnmarshalResponse(data []byte) (*Response, error) {
	msg, err := unmarshalFirst(NewResponseReader(Limits{}), data)
	if err != nil {
		return nil, err
	}
	return msg.(*Response), nil
}

// DetectMessageType returns "request" or "response" based on the data prefix.
// Data starting with "HTTP/" is detected as a response; everything else as a request.
func DetectMessageType(data []byte) string {
	return fastparser.DetectMessageType(data)
}

func unmarshalFirst(r *Reader, data []byte) (Message, error) {
	msgs, err := r.Feed(data)
	if len(msgs) > 0 {
		return msgs[0], nil
	}
	if err != nil {
		return nil, err
	}
	msgs, err = r.Finish()
	if len(msgs) > 0 {
		return msgs[0], nil
	}
	if err != nil {
		return nil, err
	}
	return nil, newParseError(Truncated, "no message in input")
}
