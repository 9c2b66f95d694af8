package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisTheAbysswalker/wildlife-atlas/cache"
	"github.com/ChrisTheAbysswalker/wildlife-atlas/cache/memory"
	"github.com/ChrisTheAbysswalker/wildlife-atlas/cache/sqlite"
	"github.com/ChrisTheAbysswalker/wildlife-atlas/cacheproxy"
	"github.com/ChrisTheAbysswalker/wildlife-atlas/config"
	m "github.com/ChrisTheAbysswalker/wildlife-atlas/models"
)

const feedJSON = `[{"id":"red-fox","name":"Red Fox","zone":"Woodland","lat":53.48,"lng":-2.24}]`

func newTestConfig(feedURL string) *config.Config {
	return &config.Config{
		FeedURL:            feedURL,
		DataDir:            "/data",
		FavouritesKey:      config.DefaultFavouritesKey,
		CacheVersion:       config.DefaultCacheVersion,
		CacheAssets:        config.DefaultAssets,
		CacheFallback:      config.DefaultFallbackPath,
		CacheBackend:       config.BackendMemory,
		InstallConcurrency: 4,
	}
}

func TestOfflineRoundTrip(t *testing.T) {
	gin.SetMode(gin.TestMode)

	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, feedJSON)
	}))
	defer feed.Close()

	cfg := newTestConfig(feed.URL)
	storage := memory.New()
	controller := cacheproxy.NewController(storage, cacheproxy.NewNetworkFetcher(nil))

	router, err := newAppRouter(cfg, controller, afero.NewMemMapFs(), nil)
	require.NoError(t, err)
	app := httptest.NewServer(router)

	_, err = controller.Register(context.Background(), cacheOptions(cfg, app.URL))
	require.NoError(t, err)

	c, err := storage.Open(context.Background(), cfg.CacheVersion)
	require.NoError(t, err)
	keys, err := c.Keys(context.Background())
	require.NoError(t, err)
	assert.Len(t, keys, len(config.DefaultAssets))

	origin, _ := url.Parse(app.URL)
	proxy := httptest.NewServer(newProxyRouter(controller, origin))
	defer proxy.Close()

	resp, err := http.Get(proxy.URL + "/animals.html")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))
	assert.Contains(t, string(body), "Loading animals…")
	assert.NotContains(t, string(body), "Red Fox")

	app.Close()

	req, _ := http.NewRequest(http.MethodGet, proxy.URL+"/animal.html?id=red-fox", nil)
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Browse animals")

	req, _ = http.NewRequest(http.MethodGet, proxy.URL+"/api/animals", nil)
	req.Header.Set("Accept", "application/json")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

// newProxiedApp starts the catalogue server and a registered front proxy in
// front of it.
func newProxiedApp(t *testing.T) (app, proxy *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, feedJSON)
	}))
	t.Cleanup(feed.Close)

	cfg := newTestConfig(feed.URL)
	controller := cacheproxy.NewController(memory.New(), cacheproxy.NewNetworkFetcher(nil))
	router, err := newAppRouter(cfg, controller, afero.NewMemMapFs(), nil)
	require.NoError(t, err)
	app = httptest.NewServer(router)
	t.Cleanup(app.Close)

	_, err = controller.Register(context.Background(), cacheOptions(cfg, app.URL))
	require.NoError(t, err)

	origin, _ := url.Parse(app.URL)
	proxy = httptest.NewServer(newProxyRouter(controller, origin))
	t.Cleanup(proxy.Close)
	return app, proxy
}

func TestProxyServesFreshFavourites(t *testing.T) {
	_, proxy := newProxiedApp(t)

	resp, err := http.Post(proxy.URL+"/api/favourites/red-fox/toggle", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(proxy.URL + "/favourites.html")
	require.NoError(t, err)
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))
	assert.Contains(t, string(page), "Loading favourites…")
	assert.NotContains(t, string(page), "No favourites yet.")
	assert.NotContains(t, string(page), "Red Fox")

	resp, err = http.Get(proxy.URL + "/api/favourites")
	require.NoError(t, err)
	var favs m.FavouritesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&favs))
	resp.Body.Close()
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	assert.Equal(t, 1, favs.Count)
	assert.Equal(t, "1 favourite(s) shown.", favs.Status)
	require.Len(t, favs.Animals, 1)
	assert.True(t, favs.Animals[0].Favourite)
}

func TestProxyDoesNotDuplicateCORSHeaders(t *testing.T) {
	_, proxy := newProxiedApp(t)

	testCases := []struct {
		name          string
		method        string
		target        string
		expectedCache string
	}{
		{name: "network_read", method: http.MethodGet, target: "/api/animals", expectedCache: "MISS"},
		{name: "passthrough_write", method: http.MethodPost, target: "/api/favourites/red-fox/toggle"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, proxy.URL+tc.target, nil)
			require.NoError(t, err)
			req.Header.Set("Origin", "http://elsewhere.test")

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tc.expectedCache, resp.Header.Get("X-Cache"))
			assert.Len(t, resp.Header.Values("Access-Control-Allow-Origin"), 1)
		})
	}
}

func TestServeOptions(t *testing.T) {
	testCases := []struct {
		name            string
		env             map[string]string
		flags           map[string]string
		expectedPort    string
		expectedBaseURL string
		expectedOrigin  string
		expectedBackend string
	}{
		{
			name:            "no_flags",
			expectedPort:    "8080",
			expectedBaseURL: "http://localhost:8080",
			expectedOrigin:  "http://localhost:8080",
			expectedBackend: config.BackendMemory,
		},
		{
			name:            "port_derives_urls",
			flags:           map[string]string{"port": "9999"},
			expectedPort:    "9999",
			expectedBaseURL: "http://localhost:9999",
			expectedOrigin:  "http://localhost:9999",
			expectedBackend: config.BackendMemory,
		},
		{
			name: "port_keeps_env_urls",
			env: map[string]string{
				"RENDER_EXTERNAL_URL": "https://atlas.example.org",
				"PROXY_ORIGIN":        "https://origin.example.org",
			},
			flags:           map[string]string{"port": "9999", "backend": config.BackendSQLite},
			expectedPort:    "9999",
			expectedBaseURL: "https://atlas.example.org",
			expectedOrigin:  "https://origin.example.org",
			expectedBackend: config.BackendSQLite,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			cmd := newServeCommand()
			for k, v := range tc.flags {
				require.NoError(t, cmd.Flags().Set(k, v))
			}

			cfg, err := config.Load(serveOptions(cmd)...)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedPort, cfg.Port)
			assert.Equal(t, tc.expectedBaseURL, cfg.BaseURL)
			assert.Equal(t, tc.expectedOrigin, cfg.ProxyOrigin)
			assert.Equal(t, tc.expectedBackend, cfg.CacheBackend)
		})
	}
}

func TestCacheListCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	t.Setenv("CACHE_PATH", path)

	store, err := sqlite.Open(path)
	require.NoError(t, err)
	c, err := store.Open(context.Background(), config.DefaultCacheVersion)
	require.NoError(t, err)
	req, err := cache.NewRequest("http://localhost:8080/styles.css")
	require.NoError(t, err)
	require.NoError(t, c.Put(context.Background(), req, &cache.Response{StatusCode: http.StatusOK, Body: []byte("body{}")}))
	require.NoError(t, store.Close())

	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"cache", "ls"})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "jwca-v2 (current): 1 entries")
	assert.Contains(t, out.String(), "GET http://localhost:8080/styles.css")

	out.Reset()
	root = newRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"cache", "rm", "jwca-v1"})
	assert.Error(t, root.Execute())
}
