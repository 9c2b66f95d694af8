package cacheproxy

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/ChrisTheAbysswalker/wildlife-atlas/cache"
)

// Controller owns the generation currently answering requests.
type Controller struct {
	storage cache.Storage
	fetcher Fetcher

	mu     sync.Mutex
	active atomic.Pointer[Proxy]
}

func NewController(storage cache.Storage, fetcher Fetcher) *Controller {
	return &Controller{storage: storage, fetcher: fetcher}
}

// Register installs and activates a new generation, then hands it every
// subsequent request at once. The previous generation becomes redundant.
func (c *Controller) Register(ctx context.Context, opts Options) (*Proxy, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := New(c.storage, c.fetcher, opts)
	if err != nil {
		return nil, err
	}
	if err := p.Install(ctx); err != nil {
		return nil, err
	}
	if err := p.Activate(ctx); err != nil {
		return nil, err
	}

	if prev := c.active.Swap(p); prev != nil {
		prev.retire()
	}
	log.Printf("✅ Cache %s active and controlling all clients", p.Version())
	return p, nil
}

// Active returns the controlling generation, or nil before the first
// successful Register.
func (c *Controller) Active() *Proxy {
	return c.active.Load()
}

// Phase reports the controlling generation's phase.
func (c *Controller) Phase() Phase {
	if p := c.Active(); p != nil {
		return p.Phase()
	}
	return PhaseUninstalled
}

func (c *Controller) Fetch(ctx context.Context, req *cache.Request) (*cache.Response, error) {
	p := c.Active()
	if p == nil {
		return nil, ErrNotIntercepted
	}
	return p.Fetch(ctx, req)
}
