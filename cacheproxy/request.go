package cacheproxy

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ChrisTheAbysswalker/wildlife-atlas/cache"
)

var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// IsNavigation reports whether r loads a full page rather than a
// sub-resource.
func IsNavigation(r *http.Request) bool {
	if mode := r.Header.Get("Sec-Fetch-Mode"); mode != "" {
		return mode == "navigate"
	}
	return r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/html")
}

// FromHTTP maps an incoming request onto origin, keeping its path and query.
// The escaped form is carried along so reserved characters such as %2F
// reach origin unchanged.
func FromHTTP(r *http.Request, origin *url.URL) *cache.Request {
	target := *origin
	target.Path = strings.TrimSuffix(origin.Path, "/") + r.URL.Path
	target.RawPath = strings.TrimSuffix(origin.EscapedPath(), "/") + r.URL.EscapedPath()
	target.RawQuery = r.URL.RawQuery
	target.Fragment = ""

	header := r.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	removeHopHeaders(header)

	return &cache.Request{
		Method:   r.Method,
		URL:      target.String(),
		Header:   header,
		Navigate: IsNavigation(r),
	}
}

// ToHTTP builds the client-side view of a proxied response.
func ToHTTP(resp *cache.Response, req *http.Request) *http.Response {
	header := resp.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		StatusCode:    resp.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Request:       req,
	}
}

func removeHopHeaders(h http.Header) {
	for _, name := range hopHeaders {
		h.Del(name)
	}
}
