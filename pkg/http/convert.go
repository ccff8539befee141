package http

import (
	"fmt"

	"github.com/shapestone/shape-core/pkg/ast"
	"github.com/shapestone/shape-wire/internal/parser"
)

// NodeToRequest converts an AST ObjectNode to a Request.
func NodeToRequest(node ast.SchemaNode) (*Request, error) {
	props, err := parser.Properties(node)
	if err != nil {
		return nil, err
	}
	if t := parser.String(props, "type"); t != "request" {
		return nil, fmt.Errorf("expected type \"request\", got %q", t)
	}
	req, err := NewRequest(parser.String(props, "method"), parser.String(props, "target"), EmptyContent())
	if err != nil {
		return nil, err
	}
	req.Version = parser.String(props, "version")
	if err := fillMessage(props, &req.Headers, &req.Trailers, &req.Content); err != nil {
		return nil, err
	}
	return req, nil
}

// NodeToResponse converts an AST ObjectNode to a Response.
func NodeToResponse(node ast.SchemaNode) (*Response, error) {
	props, err := parser.Properties(node)
	if err != nil {
		return nil, err
	}
	if t := parser.String(props, "type"); t != "response" {
		return nil, fmt.Errorf("expected type \"response\", got %q", t)
	}
	resp := &Response{
		Version:    parser.String(props, "version"),
		StatusCode: parser.Int(props, "statusCode"),
		Reason:     parser.String(props, "reason"),
	}
	if err := fillMessage(props, &resp.Headers, &resp.Trailers, &resp.Content); err != nil {
		return nil, err
	}
	return resp, nil
}

func fillMessage(props map[string]ast.SchemaNode, headers, trailers *Headers, content *Content) error {
	if err := fillFields(props, "headers", headers); err != nil {
		return err
	}
	if err := fillFields(props, "trailers", trailers); err != nil {
		return err
	}
	if _, ok := props["body"]; ok {
		*content = BufferedContent(headers.Get("Content-Type"), []byte(parser.String(props, "body")))
	}
	return nil
}

func fillFields(props map[string]ast.SchemaNode, key string, dst *Headers) error {
	fields, err := parser.Fields(props, key)
	if err != nil {
		return err
	}
	for _, f := range fields {
		if err := dst.Add(f.Key, f.Value); err != nil {
			return err
		}
	}
	return nil
}

var zeroPos = ast.Position{}

// RequestToNode converts a Request to an AST ObjectNode.
func RequestToNode(req *Request) ast.SchemaNode {
	target := req.Target
	if target == "" && req.URL != nil {
		target = req.URL.RequestURI()
	}
	props := map[string]ast.SchemaNode{
		"type":    ast.NewLiteralNode("request", zeroPos),
		"method":  ast.NewLiteralNode(req.Method, zeroPos),
		"target":  ast.NewLiteralNode(target, zeroPos),
		"version": ast.NewLiteralNode(req.Version, zeroPos),
		"headers": headersToNode(&req.Headers),
	}
	addBodyNodes(props, &req.Content, &req.Trailers)
	return ast.NewObjectNode(props, zeroPos)
}

// ResponseToNode converts a Response to an AST ObjectNode.
func ResponseToNode(resp *Response) ast.SchemaNode {
	props := map[string]ast.SchemaNode{
		"type":       ast.NewLiteralNode("response", zeroPos),
		"version":    ast.NewLiteralNode(resp.Version, zeroPos),
		"statusCode": ast.NewLiteralNode(int64(resp.StatusCode), zeroPos),
		"reason":     ast.NewLiteralNode(resp.Reason, zeroPos),
		"headers":    headersToNode(&resp.Headers),
	}
	addBodyNodes(props, &resp.Content, &resp.Trailers)
	return ast.NewObjectNode(props, zeroPos)
}

// addBodyNodes records buffered body bytes and trailers. Streamed content
// has no AST form and is omitted.
func addBodyNodes(props map[string]ast.SchemaNode, c *Content, trailers *Headers) {
	if c.Kind == ContentBuffered {
		props["body"] = ast.NewLiteralNode(string(c.Bytes()), zeroPos)
	}
	if trailers.Len() > 0 {
		props["trailers"] = headersToNode(trailers)
	}
}

// NodeToInterface converts an AST node to native Go types.
func NodeToInterface(node ast.SchemaNode) interface{} {
	switch n := node.(type) {
	case *ast.LiteralNode:
		return n.Value()
	case *ast.ArrayDataNode:
		elements := n.Elements()
		arr := make([]interface{}, len(elements))
		for i, elem := range elements {
			arr[i] = NodeToInterface(elem)
		}
		return arr
	case *ast.ObjectNode:
		props := n.Properties()
		m := make(map[string]interface{}, len(props))
		for k, v := range props {
			m[k] = NodeToInterface(v)
		}
		return m
	default:
		return nil
	}
}

func headersToNode(h *Headers) ast.SchemaNode {
	fields := make([]parser.Field, h.Len())
	for i := range fields {
		hdr := h.At(i)
		fields[i] = parser.Field{Key: hdr.Key, Value: hdr.Value}
	}
	return parser.FieldsNode(fields)
}
