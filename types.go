package mypermobil

import (
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// HTTP methods accepted by Client.Request.
const (
	MethodGet    = http.MethodGet
	MethodPost   = http.MethodPost
	MethodPut    = http.MethodPut
	MethodDelete = http.MethodDelete
)

// Middleware represents a middleware function
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// RoundTripper represents the HTTP transport interface
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// RoundTripperFunc is a helper type for middleware
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Option represents a configuration option
type Option func(*Client)

// Response is a fully read backend response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// JSON decodes the body into a tree of maps, slices, strings, float64s,
// bools and nils.
func (r *Response) JSON() (interface{}, error) {
	var tree interface{}
	if err := json.Unmarshal(r.Body, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// cloneTree deep-copies the maps and slices of a decoded JSON tree. Leaves
// are immutable values and are shared.
func cloneTree(node interface{}) interface{} {
	switch n := node.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(n))
		for k, v := range n {
			out[k] = cloneTree(v)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(n))
		for i, v := range n {
			out[i] = cloneTree(v)
		}
		return out
	default:
		return node
	}
}

// IsJSON reports whether the response declares a JSON body.
func (r *Response) IsJSON() bool {
	return strings.Contains(r.Header.Get("Content-Type"), "json")
}
