// Package sqlite persists caches in a SQLite database so they survive
// restarts.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/ChrisTheAbysswalker/wildlife-atlas/cache"
)

//go:embed schema.sql
var schema string

type Store struct {
	sqlDB *sql.DB
}

var _ cache.Storage = (*Store)(nil)

// Open opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Open(ctx context.Context, name string) (cache.Cache, error) {
	if strings.TrimSpace(name) == "" {
		return nil, cache.ErrInvalidName
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO caches (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		name, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", name, err)
	}
	return &namedCache{name: name, sqlDB: s.sqlDB}, nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT name FROM caches ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list caches: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan cache name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM caches WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("delete cache %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type namedCache struct {
	name  string
	sqlDB *sql.DB
}

func (c *namedCache) Name() string {
	return c.name
}

func (c *namedCache) Match(ctx context.Context, req *cache.Request) (*cache.Response, bool, error) {
	var (
		status     int
		headerJSON string
		body       []byte
	)
	err := c.sqlDB.QueryRowContext(ctx,
		`SELECT status, header_json, body FROM entries WHERE cache_name = ? AND request_key = ?`,
		c.name, req.Key(),
	).Scan(&status, &headerJSON, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("match %s: %w", req.Key(), err)
	}

	header := http.Header{}
	if err := json.Unmarshal([]byte(headerJSON), &header); err != nil {
		return nil, false, fmt.Errorf("decode header %s: %w", req.Key(), err)
	}
	return &cache.Response{StatusCode: status, Header: header, Body: body, FromCache: true}, true, nil
}

func (c *namedCache) Put(ctx context.Context, req *cache.Request, resp *cache.Response) error {
	header := resp.Header
	if header == nil {
		header = http.Header{}
	}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return err
	}
	body := resp.Body
	if body == nil {
		body = []byte{}
	}

	_, err = c.sqlDB.ExecContext(ctx,
		`INSERT INTO entries (cache_name, request_key, method, url, status, header_json, body, stored_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(cache_name, request_key) DO UPDATE SET
		   status = excluded.status,
		   header_json = excluded.header_json,
		   body = excluded.body,
		   stored_at = excluded.stored_at`,
		c.name, req.Key(), strings.ToUpper(req.Method), req.URL,
		resp.StatusCode, string(headerJSON), body, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", req.Key(), err)
	}
	return nil
}

func (c *namedCache) Keys(ctx context.Context) ([]string, error) {
	rows, err := c.sqlDB.QueryContext(ctx,
		`SELECT request_key FROM entries WHERE cache_name = ? ORDER BY request_key`, c.name)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
