package http

import (
	"io"

	"github.com/shapestone/shape-core/pkg/ast"
	"github.com/shapestone/shape-wire/internal/parser"
)

// Parse parses HTTP wire format into an AST from a string.
//
// The input is a complete HTTP/1.x message (request or response).
// Returns an ast.ObjectNode with properties matching the message type.
//
// For requests:
//
//	{ "type": "request", "method": "GET", "target": "/api",
//	  "version": "HTTP/1.1",
//	  "headers": [{"key": "Host", "value": "example.com"}, ...],
//	  "body": "..." }
//
// For responses:
//
//	{ "type": "response", "version": "HTTP/1.1", "statusCode": 200,
//	  "reason": "OK",
//	  "headers": [{"key": "Content-Type", "value": "text/plain"}, ...],
//	  "body": "..." }
//
// Chunked messages with trailer fields also carry a "trailers" array.
func Parse(input string) (ast.SchemaNode, error) {
	p := parser.NewParser([]byte(input))
	node, err := p.Parse()
	return node, wrapParseError(err)
}

// ParseReader reads all data from r and parses it as an HTTP message into an AST.
func ParseReader(r io.Reader) (ast.SchemaNode, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, err
	}
	p := parser.NewParser(data)
	node, err := p.Parse()
	return node, wrapParseError(err)
}

// ParseAll parses every message in input into AST nodes. On error the
// messages completed before it are returned along with it.
func ParseAll(input string) ([]ast.SchemaNode, error) {
	p := parser.NewParser([]byte(input))
	nodes, err := p.ParseAll()
	return nodes, wrapParseError(err)
}
