package fastparser

import (
	"bytes"
	"fmt"
)

// ParseAll decodes a complete byte sequence, treating its end as end of
// stream. The returned events are owned by the caller.
func ParseAll(mode Mode, data []byte, limits Limits) ([]Event, error) {
	var p Parser
	p.Init(mode, limits)

	evs, err := p.Feed(data)
	out := append([]Event(nil), evs...)
	if err != nil {
		return out, err
	}
	tail, err := p.Finish()
	out = append(out, tail...)
	return out, err
}

// DetectMode picks Responses for data starting with "HTTP/".
func DetectMode(data []byte) Mode {
	if bytes.HasPrefix(data, []byte("HTTP/")) {
		return Responses
	}
	return Requests
}

// DetectMessageType returns "request" or "response" based on the data prefix.
func DetectMessageType(data []byte) string {
	if DetectMode(data) == Responses {
		return "response"
	}
	return "request"
}

// Validate checks that data holds at least one complete, well-framed message.
func Validate(data []byte) error {
	evs, err := ParseAll(DetectMode(data), data, DefaultLimits())
	if err != nil {
		return fmt.Errorf("http: %w", err)
	}
	for _, ev := range evs {
		if ev.Kind == EventMessageComplete {
			return nil
		}
	}
	return fmt.Errorf("http: no complete message in %d bytes", len(data))
}
