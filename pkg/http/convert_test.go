package http

import (
	"testing"

	"github.com/shapestone/shape-core/pkg/ast"
	"github.com/shapestone/shape-wire/pkg/url"
)

func TestRequestToNode_AndBack(t *testing.T) {
	req, err := NewRequest("POST", "/api/users", BufferedContent("application/json", []byte(`{"name":"Alice"}`)))
	if err != nil {
		t.Fatal(err)
	}
	_ = req.Headers.Add("Host", "example.com")
	_ = req.Headers.Add("Content-Type", "application/json")

	node := RequestToNode(req)

	obj, ok := node.(*ast.ObjectNode)
	if !ok {
		t.Fatalf("expected ObjectNode, got %T", node)
	}

	props := obj.Properties()
	if lit := props["type"].(*ast.LiteralNode); lit.Value() != "request" {
		t.Errorf("type = %v, want request", lit.Value())
	}
	if lit := props["method"].(*ast.LiteralNode); lit.Value() != "POST" {
		t.Errorf("method = %v, want POST", lit.Value())
	}

	// Convert back
	req2, err := NodeToRequest(node)
	if err != nil {
		t.Fatalf("NodeToRequest() error = %v", err)
	}
	if req2.Method != "POST" {
		t.Errorf("Method = %q, want POST", req2.Method)
	}
	if req2.Path() != "/api/users" {
		t.Errorf("Path() = %q, want /api/users", req2.Path())
	}
	if string(req2.Content.Bytes()) != `{"name":"Alice"}` {
		t.Errorf("Body = %q", req2.Content.Bytes())
	}
	if req2.Content.Type != "application/json" {
		t.Errorf("Content.Type = %q", req2.Content.Type)
	}
}

func TestResponseToNode_AndBack(t *testing.T) {
	resp := NewResponse(StatusNotFound, BufferedContent("", []byte("<h1>Not Found</h1>")))
	_ = resp.Headers.Add("Content-Type", "text/html")
	_ = resp.Trailers.Add("X-Checksum", "abc")

	node := ResponseToNode(resp)

	obj, ok := node.(*ast.ObjectNode)
	if !ok {
		t.Fatalf("expected ObjectNode, got %T", node)
	}

	props := obj.Properties()
	if lit := props["statusCode"].(*ast.LiteralNode); lit.Value() != int64(404) {
		t.Errorf("statusCode = %v, want 404", lit.Value())
	}

	// Convert back
	resp2, err := NodeToResponse(node)
	if err != nil {
		t.Fatalf("NodeToResponse() error = %v", err)
	}
	if resp2.StatusCode != 404 {
		t.Errorf("StatusCode = %d, want 404", resp2.StatusCode)
	}
	if resp2.Reason != "Not Found" {
		t.Errorf("Reason = %q, want Not Found", resp2.Reason)
	}
	if resp2.Trailers.Get("X-Checksum") != "abc" {
		t.Errorf("Trailers = %v", resp2.Trailers.Get("X-Checksum"))
	}
	if resp2.Content.Type != "text/html" {
		t.Errorf("Content.Type = %q", resp2.Content.Type)
	}
}

func TestNodeToRequest_NonObjectNode(t *testing.T) {
	// Passing a non-ObjectNode should return an error
	node := ast.NewLiteralNode("not an object", zeroPos)
	_, err := NodeToRequest(node)
	if err == nil {
		t.Error("NodeToRequest() = nil, want error for non-ObjectNode")
	}
}

func TestNodeToResponse_NonObjectNode(t *testing.T) {
	// Passing a non-ObjectNode should return an error
	node := ast.NewLiteralNode("not an object", zeroPos)
	_, err := NodeToResponse(node)
	if err == nil {
		t.Error("NodeToResponse() = nil, want error for non-ObjectNode")
	}
}

func TestNodeToRequest_NoBody(t *testing.T) {
	// Request without body property should have empty content
	req := getRequest(t)
	node := RequestToNode(req)
	req2, err := NodeToRequest(node)
	if err != nil {
		t.Fatalf("NodeToRequest() error = %v", err)
	}
	if req2.Content.Kind != ContentEmpty {
		t.Errorf("Content.Kind = %v, want empty", req2.Content.Kind)
	}
}

func TestNodeToInterface(t *testing.T) {
	req := getRequest(t)
	node := RequestToNode(req)

	iface := NodeToInterface(node)
	m, ok := iface.(map[string]interface{})
	if !ok {
		t.Fatalf("expected map, got %T", iface)
	}

	if m["type"] != "request" {
		t.Errorf("type = %v, want request", m["type"])
	}
	if m["method"] != "GET" {
		t.Errorf("method = %v, want GET", m["method"])
	}
}

func TestNodeToInterface_Array(t *testing.T) {
	// Test with an ArrayDataNode to cover the array branch
	req := getRequest(t)
	node := RequestToNode(req)

	// The "headers" property is an ArrayDataNode
	obj := node.(*ast.ObjectNode)
	headersNode := obj.Properties()["headers"]

	iface := NodeToInterface(headersNode)
	arr, ok := iface.([]interface{})
	if !ok {
		t.Fatalf("expected []interface{}, got %T", iface)
	}
	if len(arr) != 1 {
		t.Errorf("expected 1 header, got %d", len(arr))
	}
}

func TestNodeToInterface_UnknownType(t *testing.T) {
	// Passing a nil or unknown node type returns nil
	result := NodeToInterface(nil)
	if result != nil {
		t.Errorf("NodeToInterface(nil) = %v, want nil", result)
	}
}

func getRequest(t *testing.T) *Request {
	t.Helper()
	req, err := NewRequest("GET", "/", EmptyContent())
	if err != nil {
		t.Fatal(err)
	}
	_ = req.Headers.Add("Host", "example.com")
	return req
}

func TestNodeToRequest_WrongType(t *testing.T) {
	if _, err := NodeToRequest(ResponseToNode(NewResponse(StatusOK, EmptyContent()))); err == nil {
		t.Error("NodeToRequest(response node) succeeded")
	}
	if _, err := NodeToResponse(RequestToNode(getRequest(t))); err == nil {
		t.Error("NodeToResponse(request node) succeeded")
	}
}

func TestRequestToNode_TargetFromURL(t *testing.T) {
	req := getRequest(t)
	req.Target = ""
	req.URL.Query = []url.QueryPair{{Key: "q", Value: "a b"}}
	props := RequestToNode(req).(*ast.ObjectNode).Properties()
	if got := props["target"].(*ast.LiteralNode).Value(); got != "/?q=a+b" {
		t.Errorf("target = %v", got)
	}
}
