// Package cache defines the named request/response store used by the
// offline cache proxy.
package cache

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

var ErrInvalidName = errors.New("cache name is required")

// Request is the identity half of a cache entry.
type Request struct {
	Method   string
	URL      string
	Header   http.Header
	Navigate bool
}

// NewRequest builds a GET request for rawURL with the fragment stripped.
func NewRequest(rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	u.Fragment = ""
	return &Request{Method: http.MethodGet, URL: u.String(), Header: http.Header{}}, nil
}

// Key is the store identity of the request: method and URL.
func (r *Request) Key() string {
	method := strings.ToUpper(r.Method)
	if method == "" {
		method = http.MethodGet
	}
	return method + " " + r.URL
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	FromCache  bool
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Clone returns a copy safe to hand to a caller.
func (r *Response) Clone() *Response {
	body := make([]byte, len(r.Body))
	copy(body, r.Body)
	return &Response{
		StatusCode: r.StatusCode,
		Header:     r.Header.Clone(),
		Body:       body,
		FromCache:  r.FromCache,
	}
}

// Cache is one named collection of request/response pairs.
type Cache interface {
	Name() string
	Match(ctx context.Context, req *Request) (*Response, bool, error)
	Put(ctx context.Context, req *Request, resp *Response) error
	Keys(ctx context.Context) ([]string, error)
}

// Storage holds every named cache, across generations.
type Storage interface {
	Open(ctx context.Context, name string) (Cache, error)
	Keys(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) (bool, error)
	Close() error
}
