// Package memory keeps caches in a go-datastore, an in-process map by default.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
	dssync "github.com/ipfs/go-datastore/sync"

	"github.com/ChrisTheAbysswalker/wildlife-atlas/cache"
)

const (
	namesNamespace   = "caches"
	entriesNamespace = "entries"
)

type Storage struct {
	ds datastore.Datastore
}

var _ cache.Storage = (*Storage)(nil)

// New returns a Storage over a fresh thread-safe map datastore.
func New() *Storage {
	return Wrap(dssync.MutexWrap(datastore.NewMapDatastore()))
}

// Wrap stores caches in ds, which must be safe for concurrent use.
func Wrap(ds datastore.Datastore) *Storage {
	return &Storage{ds: ds}
}

func (s *Storage) Open(ctx context.Context, name string) (cache.Cache, error) {
	if strings.TrimSpace(name) == "" {
		return nil, cache.ErrInvalidName
	}
	if err := s.ds.Put(ctx, nameKey(name), []byte(name)); err != nil {
		return nil, fmt.Errorf("open cache %s: %w", name, err)
	}
	return &namedCache{name: name, ds: s.ds}, nil
}

func (s *Storage) Keys(ctx context.Context) ([]string, error) {
	res, err := s.ds.Query(ctx, query.Query{Prefix: "/" + namesNamespace})
	if err != nil {
		return nil, err
	}
	entries, err := res.Rest()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, string(e.Value))
	}
	sort.Strings(names)
	return names, nil
}

func (s *Storage) Delete(ctx context.Context, name string) (bool, error) {
	exists, err := s.ds.Has(ctx, nameKey(name))
	if err != nil || !exists {
		return false, err
	}

	prefix := entriesPrefix(name)
	res, err := s.ds.Query(ctx, query.Query{Prefix: prefix, KeysOnly: true})
	if err != nil {
		return false, err
	}
	entries, err := res.Rest()
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Key, prefix+"/") {
			continue
		}
		if err := s.ds.Delete(ctx, datastore.NewKey(e.Key)); err != nil {
			return false, fmt.Errorf("delete cache %s: %w", name, err)
		}
	}

	if err := s.ds.Delete(ctx, nameKey(name)); err != nil {
		return false, fmt.Errorf("delete cache %s: %w", name, err)
	}
	return true, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

type namedCache struct {
	name string
	ds   datastore.Datastore
}

func (c *namedCache) Name() string {
	return c.name
}

func (c *namedCache) Match(ctx context.Context, req *cache.Request) (*cache.Response, bool, error) {
	data, err := c.ds.Get(ctx, entryKey(c.name, req))
	if errors.Is(err, datastore.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	entry, err := cache.UnmarshalEntry(data)
	if err != nil {
		return nil, false, fmt.Errorf("decode entry %s: %w", req.Key(), err)
	}
	return entry.Response(), true, nil
}

func (c *namedCache) Put(ctx context.Context, req *cache.Request, resp *cache.Response) error {
	data, err := cache.NewEntry(req, resp).Marshal()
	if err != nil {
		return err
	}
	return c.ds.Put(ctx, entryKey(c.name, req), data)
}

func (c *namedCache) Keys(ctx context.Context) ([]string, error) {
	prefix := entriesPrefix(c.name)
	res, err := c.ds.Query(ctx, query.Query{Prefix: prefix})
	if err != nil {
		return nil, err
	}
	entries, err := res.Rest()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if !strings.HasPrefix(e.Key, prefix+"/") {
			continue
		}
		entry, err := cache.UnmarshalEntry(e.Value)
		if err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", e.Key, err)
		}
		keys = append(keys, (&cache.Request{Method: entry.Method, URL: entry.URL}).Key())
	}
	sort.Strings(keys)
	return keys, nil
}

func nameKey(name string) datastore.Key {
	return datastore.KeyWithNamespaces([]string{namesNamespace, hex.EncodeToString([]byte(name))})
}

func entriesPrefix(name string) string {
	return datastore.KeyWithNamespaces([]string{entriesNamespace, hex.EncodeToString([]byte(name))}).String()
}

func entryKey(name string, req *cache.Request) datastore.Key {
	sum := sha256.Sum256([]byte(req.Key()))
	return datastore.KeyWithNamespaces([]string{
		entriesNamespace,
		hex.EncodeToString([]byte(name)),
		hex.EncodeToString(sum[:]),
	})
}
