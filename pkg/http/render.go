package http

import (
	"fmt"

	"github.com/shapestone/shape-core/pkg/ast"
	"github.com/shapestone/shape-wire/internal/parser"
)

// Render converts an AST node (from Parse) back to HTTP wire format bytes.
//
// The node must be an ObjectNode with a "type" property of "request" or "response",
// as produced by Parse() or ParseReader().
func Render(node ast.SchemaNode) ([]byte, error) {
	props, err := parser.Properties(node)
	if err != nil {
		return nil, fmt.Errorf("http: Render: %w", err)
	}
	if _, ok := props["type"]; !ok {
		return nil, fmt.Errorf("http: Render: missing 'type' property")
	}

	switch msgType := parser.String(props, "type"); msgType {
	case "request":
		req, err := NodeToRequest(node)
		if err != nil {
			return nil, fmt.Errorf("http: Render: %w", err)
		}
		return Marshal(req)

	case "response":
		resp, err := NodeToResponse(node)
		if err != nil {
			return nil, fmt.Errorf("http: Render: %w", err)
		}
		return Marshal(resp)

	default:
		return nil, fmt.Errorf("http: Render: unknown message type %q", msgType)
	}
}
