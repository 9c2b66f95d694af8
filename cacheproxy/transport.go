package cacheproxy

import (
	"errors"
	"net/http"

	"github.com/ChrisTheAbysswalker/wildlife-atlas/cache"
)

// Transport routes an http.Client's requests through the controller. Calls
// the controller does not intercept go to Base unchanged.
type Transport struct {
	Controller *Controller
	Base       http.RoundTripper
}

var _ http.RoundTripper = (*Transport)(nil)

func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	u := *r.URL
	u.Fragment = ""
	req := &cache.Request{
		Method:   r.Method,
		URL:      u.String(),
		Header:   r.Header.Clone(),
		Navigate: IsNavigation(r),
	}

	resp, err := t.Controller.Fetch(r.Context(), req)
	if errors.Is(err, ErrNotIntercepted) {
		return t.base().RoundTrip(r)
	}
	if r.Body != nil {
		_ = r.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return ToHTTP(resp, r), nil
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}
