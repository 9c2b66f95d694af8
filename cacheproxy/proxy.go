// Package cacheproxy serves GET requests from a versioned, pre-populated
// cache and falls back to the network on a miss.
//
// A generation moves through Install, Activate and then serves Fetch. Only
// Install writes to the cache; a new version is the only way to refresh it.
package cacheproxy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ChrisTheAbysswalker/wildlife-atlas/cache"
)

var tracer = otel.Tracer("github.com/ChrisTheAbysswalker/wildlife-atlas/cacheproxy")

type Options struct {
	// Version names the live cache. Every other cache is purged on Activate.
	Version string
	// Scope is the base URL manifest paths resolve against.
	Scope string
	// Assets are pre-fetched at Install, in order.
	Assets []string
	// Fallback is served for navigations that miss the cache while offline.
	Fallback string
	// Concurrency bounds parallel asset fetches during Install.
	Concurrency int
}

// Proxy is one cache generation.
type Proxy struct {
	storage  cache.Storage
	fetcher  Fetcher
	version  string
	scope    *url.URL
	assets   []string
	fallback string
	limit    int

	phase atomic.Int32

	mu   sync.RWMutex
	live cache.Cache
}

func New(storage cache.Storage, fetcher Fetcher, opts Options) (*Proxy, error) {
	if storage == nil || fetcher == nil {
		return nil, errors.New("cache storage and fetcher are required")
	}
	if strings.TrimSpace(opts.Version) == "" {
		return nil, cache.ErrInvalidName
	}

	scope, err := url.Parse(opts.Scope)
	if err != nil {
		return nil, fmt.Errorf("parse scope %q: %w", opts.Scope, err)
	}
	if !scope.IsAbs() {
		return nil, fmt.Errorf("scope %q must be an absolute URL", opts.Scope)
	}
	if !strings.HasSuffix(scope.Path, "/") {
		scope.Path += "/"
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = 1
	}

	return &Proxy{
		storage:  storage,
		fetcher:  fetcher,
		version:  opts.Version,
		scope:    scope,
		assets:   append([]string(nil), opts.Assets...),
		fallback: opts.Fallback,
		limit:    limit,
	}, nil
}

func (p *Proxy) Version() string {
	return p.version
}

func (p *Proxy) Phase() Phase {
	return Phase(p.phase.Load())
}

func (p *Proxy) setPhase(phase Phase) {
	p.phase.Store(int32(phase))
}

// Resolve turns a manifest path into the GET request it is cached under.
func (p *Proxy) Resolve(path string) (*cache.Request, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse asset %q: %w", path, err)
	}
	return cache.NewRequest(p.scope.ResolveReference(ref).String())
}

// Install opens the versioned cache and pre-populates it from the network.
// Assets that fail to download are skipped. Once every fetch has settled the
// generation is ready to activate.
func (p *Proxy) Install(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "cacheproxy.Install",
		trace.WithAttributes(attribute.String("cache.version", p.version)))
	defer span.End()

	if !p.phase.CompareAndSwap(int32(PhaseUninstalled), int32(PhaseInstalling)) {
		return &PhaseError{Op: "install", Phase: p.Phase()}
	}

	c, err := p.storage.Open(ctx, p.version)
	if err != nil {
		p.setPhase(PhaseUninstalled)
		span.RecordError(err)
		span.SetStatus(codes.Error, "open cache")
		return fmt.Errorf("open cache %s: %w", p.version, err)
	}

	var (
		g      errgroup.Group
		stored atomic.Int32
	)
	g.SetLimit(p.limit)
	for _, asset := range p.assets {
		g.Go(func() error {
			if p.precache(ctx, c, asset) {
				stored.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	p.mu.Lock()
	p.live = c
	p.mu.Unlock()
	p.setPhase(PhaseActivating)

	span.SetAttributes(
		attribute.Int("cache.assets", len(p.assets)),
		attribute.Int("cache.stored", int(stored.Load())),
	)
	log.Printf("📦 Cache %s installed: %d/%d assets stored", p.version, stored.Load(), len(p.assets))
	return nil
}

func (p *Proxy) precache(ctx context.Context, c cache.Cache, asset string) bool {
	req, err := p.Resolve(asset)
	if err != nil {
		log.Printf("⚠️ Skipping invalid asset %s: %v", asset, err)
		return false
	}

	fetchReq := &cache.Request{
		Method: req.Method,
		URL:    req.URL,
		Header: http.Header{"Cache-Control": []string{"no-cache"}},
	}
	resp, err := p.fetcher.Fetch(ctx, fetchReq)
	if err != nil {
		log.Printf("⚠️ Could not fetch %s: %v", req.URL, err)
		return false
	}
	if !resp.OK() {
		log.Printf("⚠️ Skipping %s: status %d", req.URL, resp.StatusCode)
		return false
	}

	if err := c.Put(ctx, req, resp); err != nil {
		log.Printf("⚠️ Could not store %s: %v", req.URL, err)
		return false
	}
	return true
}

// Activate deletes every cache but the live one and starts serving.
func (p *Proxy) Activate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "cacheproxy.Activate",
		trace.WithAttributes(attribute.String("cache.version", p.version)))
	defer span.End()

	if phase := p.Phase(); phase != PhaseActivating {
		return &PhaseError{Op: "activate", Phase: phase}
	}

	names, err := p.storage.Keys(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list caches")
		return fmt.Errorf("list caches: %w", err)
	}

	purged := 0
	for _, name := range names {
		if name == p.version {
			continue
		}
		if _, err := p.storage.Delete(ctx, name); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "delete cache")
			return fmt.Errorf("delete cache %s: %w", name, err)
		}
		purged++
		log.Printf("🧹 Stale cache deleted: %s", name)
	}

	p.setPhase(PhaseActive)
	span.SetAttributes(attribute.Int("cache.purged", purged))
	return nil
}

// Fetch answers one intercepted request: cache first, then network, then
// the fallback document for navigations.
func (p *Proxy) Fetch(ctx context.Context, req *cache.Request) (*cache.Response, error) {
	if !strings.EqualFold(req.Method, http.MethodGet) || p.Phase() != PhaseActive {
		return nil, ErrNotIntercepted
	}

	ctx, span := tracer.Start(ctx, "cacheproxy.Fetch", trace.WithAttributes(
		attribute.String("http.url", req.URL),
		attribute.Bool("http.navigate", req.Navigate),
	))
	defer span.End()

	p.mu.RLock()
	live := p.live
	p.mu.RUnlock()

	cached, ok, err := live.Match(ctx, req)
	if err != nil {
		log.Printf("⚠️ Cache read failed for %s: %v", req.URL, err)
	}
	if ok {
		span.SetAttributes(attribute.String("cache.result", "hit"))
		return cached, nil
	}

	resp, netErr := p.fetcher.Fetch(ctx, req)
	if netErr == nil {
		span.SetAttributes(attribute.String("cache.result", "miss"))
		return resp, nil
	}

	if req.Navigate && p.fallback != "" {
		if fallback, ok := p.matchFallback(ctx, live); ok {
			span.SetAttributes(attribute.String("cache.result", "fallback"))
			return fallback, nil
		}
	}

	span.RecordError(netErr)
	span.SetStatus(codes.Error, "offline")
	return nil, fmt.Errorf("%w: %s: %w", ErrOffline, req.URL, netErr)
}

func (p *Proxy) matchFallback(ctx context.Context, live cache.Cache) (*cache.Response, bool) {
	req, err := p.Resolve(p.fallback)
	if err != nil {
		return nil, false
	}
	resp, ok, err := live.Match(ctx, req)
	if err != nil {
		log.Printf("⚠️ Fallback lookup failed: %v", err)
		return nil, false
	}
	return resp, ok
}

// retire marks a replaced generation; it stops intercepting.
func (p *Proxy) retire() {
	p.setPhase(PhaseRedundant)
}
