package cacheproxy

import (
	"context"
	"io"
	"net/http"

	"github.com/ChrisTheAbysswalker/wildlife-atlas/cache"
)

//go:generate mockgen -source=fetcher.go -destination=mocks/mock_fetcher.go -package=mocks

// Fetcher is the network side of the proxy. An error means the request
// never produced a response; any HTTP status is a response.
type Fetcher interface {
	Fetch(ctx context.Context, req *cache.Request) (*cache.Response, error)
}

type NetworkFetcher struct {
	client *http.Client
}

func NewNetworkFetcher(client *http.Client) *NetworkFetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &NetworkFetcher{client: client}
}

func (f *NetworkFetcher) Fetch(ctx context.Context, req *cache.Request) (*cache.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	if err != nil {
		return nil, err
	}
	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &cache.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
	}, nil
}
