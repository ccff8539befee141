// Package parser builds shape-core AST nodes from HTTP/1.x wire data.
//
// Each message becomes an ObjectNode:
//
// Request:
//
//	{ "type": "request", "method": "POST", "target": "/api?q=1",
//	  "version": "HTTP/1.1",
//	  "headers": [{"key": "Host", "value": "example.com"}, ...],
//	  "body": "...", "trailers": [...] }
//
// Response:
//
//	{ "type": "response", "version": "HTTP/1.1", "statusCode": 200,
//	  "reason": "OK",
//	  "headers": [{"key": "Content-Type", "value": "text/plain"}, ...],
//	  "body": "..." }
//
// "body" is present only when the message carried body bytes, "trailers"
// only when a chunked body ended with trailer fields.
package parser

import (
	"fmt"
	"strconv"

	"github.com/shapestone/shape-core/pkg/ast"
	"github.com/shapestone/shape-wire/internal/fastparser"
)

var zeroPos = ast.Position{}

// Field is a header or trailer line as stored in the AST.
type Field struct {
	Key   string
	Value string
}

// Parser produces AST nodes from HTTP wire-format data.
type Parser struct {
	data   []byte
	limits fastparser.Limits
}

// NewParser creates a new AST parser for the given input.
func NewParser(data []byte) *Parser {
	return &Parser{data: data, limits: fastparser.DefaultLimits()}
}

// NewParserWithLimits creates an AST parser with explicit parser limits.
func NewParserWithLimits(data []byte, limits fastparser.Limits) *Parser {
	return &Parser{data: data, limits: limits}
}

// Parse returns the first message in the input.
func (p *Parser) Parse() (ast.SchemaNode, error) {
	nodes, err := p.ParseAll()
	if len(nodes) > 0 {
		return nodes[0], nil
	}
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("http: no complete message in %d bytes", len(p.data))
}

// ParseAll returns every complete message in the input, in order. On error
// it returns the messages completed before the failure.
func (p *Parser) ParseAll() ([]ast.SchemaNode, error) {
	mode := fastparser.DetectMode(p.data)
	evs, err := fastparser.ParseAll(mode, p.data, p.limits)

	var (
		nodes []ast.SchemaNode
		b     builder
	)
	b.reset(mode)
	for _, ev := range evs {
		if n := b.add(ev); n != nil {
			nodes = append(nodes, n)
			b.reset(mode)
		}
	}
	return nodes, err
}

type builder struct {
	mode     fastparser.Mode
	props    map[string]ast.SchemaNode
	headers  []ast.SchemaNode
	trailers []ast.SchemaNode
	body     []byte
	hasBody  bool
}

func (b *builder) reset(mode fastparser.Mode) {
	*b = builder{mode: mode, props: make(map[string]ast.SchemaNode, 8)}
}

// add folds one event into the message under construction and returns the
// finished node on MessageComplete.
func (b *builder) add(ev fastparser.Event) ast.SchemaNode {
	switch ev.Kind {
	case fastparser.EventStartLine:
		b.props["version"] = ast.NewLiteralNode(ev.Version, zeroPos)
		if b.mode == fastparser.Requests {
			b.props["type"] = ast.NewLiteralNode("request", zeroPos)
			b.props["method"] = ast.NewLiteralNode(ev.Method, zeroPos)
			b.props["target"] = ast.NewLiteralNode(ev.Target, zeroPos)
		} else {
			b.props["type"] = ast.NewLiteralNode("response", zeroPos)
			b.props["statusCode"] = ast.NewLiteralNode(int64(ev.StatusCode), zeroPos)
			b.props["reason"] = ast.NewLiteralNode(ev.Reason, zeroPos)
		}
	case fastparser.EventHeader:
		b.headers = append(b.headers, fieldNode(ev.Name, ev.Value))
	case fastparser.EventTrailer:
		b.trailers = append(b.trailers, fieldNode(ev.Name, ev.Value))
	case fastparser.EventBodyChunk:
		b.body = append(b.body, ev.Data...)
		b.hasBody = true
	case fastparser.EventMessageComplete:
		b.props["headers"] = ast.NewArrayDataNode(b.headers, zeroPos)
		if b.hasBody {
			b.props["body"] = ast.NewLiteralNode(string(b.body), zeroPos)
		}
		if len(b.trailers) > 0 {
			b.props["trailers"] = ast.NewArrayDataNode(b.trailers, zeroPos)
		}
		return ast.NewObjectNode(b.props, zeroPos)
	}
	return nil
}

func fieldNode(key, value string) ast.SchemaNode {
	return ast.NewObjectNode(map[string]ast.SchemaNode{
		"key":   ast.NewLiteralNode(key, zeroPos),
		"value": ast.NewLiteralNode(value, zeroPos),
	}, zeroPos)
}

// FieldsNode converts fields to an AST array.
func FieldsNode(fields []Field) ast.SchemaNode {
	elements := make([]ast.SchemaNode, len(fields))
	for i, f := range fields {
		elements[i] = fieldNode(f.Key, f.Value)
	}
	return ast.NewArrayDataNode(elements, zeroPos)
}

// Properties returns the properties of an ObjectNode.
func Properties(node ast.SchemaNode) (map[string]ast.SchemaNode, error) {
	obj, ok := node.(*ast.ObjectNode)
	if !ok {
		return nil, fmt.Errorf("expected ObjectNode, got %T", node)
	}
	return obj.Properties(), nil
}

// String returns a string literal property, or "" when absent.
func String(props map[string]ast.SchemaNode, key string) string {
	if lit, ok := props[key].(*ast.LiteralNode); ok {
		s, _ := lit.Value().(string)
		return s
	}
	return ""
}

// Int returns an integer literal property. Numeric strings are accepted.
func Int(props map[string]ast.SchemaNode, key string) int {
	lit, ok := props[key].(*ast.LiteralNode)
	if !ok {
		return 0
	}
	switch v := lit.Value().(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

// Fields decodes a headers or trailers array. A missing property yields nil.
func Fields(props map[string]ast.SchemaNode, key string) ([]Field, error) {
	node, ok := props[key]
	if !ok {
		return nil, nil
	}
	arr, ok := node.(*ast.ArrayDataNode)
	if !ok {
		return nil, fmt.Errorf("expected ArrayDataNode for %s, got %T", key, node)
	}
	elements := arr.Elements()
	fields := make([]Field, 0, len(elements))
	for _, elem := range elements {
		obj, ok := elem.(*ast.ObjectNode)
		if !ok {
			continue
		}
		p := obj.Properties()
		fields = append(fields, Field{Key: String(p, "key"), Value: String(p, "value")})
	}
	return fields, nil
}
