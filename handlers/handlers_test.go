package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisTheAbysswalker/wildlife-atlas/cache/memory"
	"github.com/ChrisTheAbysswalker/wildlife-atlas/cacheproxy"
	"github.com/ChrisTheAbysswalker/wildlife-atlas/config"
	"github.com/ChrisTheAbysswalker/wildlife-atlas/favourites"
	m "github.com/ChrisTheAbysswalker/wildlife-atlas/models"
	s "github.com/ChrisTheAbysswalker/wildlife-atlas/services"
	"github.com/ChrisTheAbysswalker/wildlife-atlas/web"
)

const feedJSON = `[
  {"id":"red-fox","name":"Red Fox","scientificName":"Vulpes vulpes","zone":"Woodland Walk","lat":53.48,"lng":-2.24},
  {"id":"otter","name":"Otter","scientificName":"Lutra lutra","zone":"River Bank","lat":53.49,"lng":-2.23},
  {"id":"hedgehog","name":"Hedgehog","scientificName":"Erinaceus europaeus","zone":"Garden"}
]`

type feed struct {
	*httptest.Server
	down atomic.Bool
	hits atomic.Int32
}

func newFeed(t *testing.T) *feed {
	t.Helper()
	f := &feed{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		if f.down.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(feedJSON))
	}))
	t.Cleanup(f.Close)
	return f
}

type app struct {
	router     *gin.Engine
	feed       *feed
	controller *cacheproxy.Controller
}

func newApp(t *testing.T) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := newFeed(t)
	cfg := &config.Config{FeedURL: f.URL, FavouritesKey: config.DefaultFavouritesKey, CacheVersion: config.DefaultCacheVersion}
	storage, err := favourites.NewFileStorage(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)

	animals := s.NewAnimalService(cfg, f.Client(), favourites.NewStore(storage, cfg.FavouritesKey))
	controller := cacheproxy.NewController(memory.New(), cacheproxy.NewNetworkFetcher(f.Client()))

	router := gin.New()
	require.NoError(t, web.Register(router))
	RegisterRoutes(router, NewAnimalHandler(animals), NewMapHandler(s.NewMapService(animals)), NewSystemHandler(controller, animals))
	return &app{router: router, feed: f, controller: controller}
}

func (a *app) do(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestPages(t *testing.T) {
	a := newApp(t)

	feedData := []string{"Red Fox", "Lutra lutra", "River Bank", "animals loaded", "favourite(s) shown"}

	testCases := []struct {
		name     string
		target   string
		contains []string
	}{
		{name: "home", target: "/", contains: []string{"Browse animals"}},
		{name: "index", target: "/index.html", contains: []string{"Browse animals"}},
		{name: "catalogue", target: "/animals.html", contains: []string{`id="animalsList"`, "Loading animals…"}},
		{name: "catalogue_filtered", target: "/animals.html?q=fox", contains: []string{`id="animalSearch"`, "Loading animals…"}},
		{name: "detail", target: "/animal.html?id=otter", contains: []string{`id="animalDetail"`, "Loading animal details…"}},
		{name: "detail_without_id", target: "/animal.html", contains: []string{"Loading animal details…"}},
		{name: "favourites", target: "/favourites.html", contains: []string{`id="favList"`, "Loading favourites…"}},
		{name: "map", target: "/map.html", contains: []string{"Loading map…", `data-zoom="13"`, `data-lat="53.483"`, "leaflet.js"}},
		{name: "kids", target: "/kids.html", contains: []string{"Kids zone"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := a.do(t, http.MethodGet, tc.target, nil)
			assert.Equal(t, http.StatusOK, rec.Code)
			for _, want := range tc.contains {
				assert.Contains(t, rec.Body.String(), want)
			}
			for _, unwanted := range feedData {
				assert.NotContains(t, rec.Body.String(), unwanted)
			}
		})
	}

	assert.Zero(t, a.feed.hits.Load(), "pages must not read the feed")
}

func TestPagesDoNotChangeWithData(t *testing.T) {
	a := newApp(t)

	before := a.do(t, http.MethodGet, "/favourites.html", nil).Body.String()
	a.do(t, http.MethodPost, "/api/favourites/otter/toggle", nil)
	a.feed.down.Store(true)
	after := a.do(t, http.MethodGet, "/favourites.html", nil)

	assert.Equal(t, http.StatusOK, after.Code)
	assert.Equal(t, before, after.Body.String())
}

func TestAPIWhenFeedIsDown(t *testing.T) {
	a := newApp(t)
	a.do(t, http.MethodPost, "/api/favourites/otter/toggle", nil)
	a.feed.down.Store(true)

	testCases := []struct {
		name            string
		target          string
		expectedMessage string
	}{
		{name: "animals", target: "/api/animals", expectedMessage: "Could not load animals. Check your internet / data link."},
		{name: "detail", target: "/api/animals/otter", expectedMessage: "Could not load details. Check your internet / data link."},
		{name: "favourites", target: "/api/favourites", expectedMessage: "Could not load favourites. Check your internet / data link."},
		{name: "map", target: "/api/map", expectedMessage: "Map ready, but could not load animal data."},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := a.do(t, http.MethodGet, tc.target, nil)
			assert.Equal(t, http.StatusBadGateway, rec.Code)
			body := decode[m.ErrorResponse](t, rec)
			assert.Equal(t, "feed_unavailable", body.Error)
			assert.Equal(t, tc.expectedMessage, body.Message)
		})
	}
}

func TestToggleFavouriteRedirectsBack(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodPost, "/favourites/otter/toggle", url.Values{"return": {"/animals.html?q=ott"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/animals.html?q=ott", rec.Header().Get("Location"))

	favs := decode[m.FavouritesResponse](t, a.do(t, http.MethodGet, "/api/favourites", nil))
	assert.Equal(t, "1 favourite(s) shown.", favs.Status)
	require.Len(t, favs.Animals, 1)
	assert.True(t, favs.Animals[0].Favourite)

	rec = a.do(t, http.MethodPost, "/favourites/otter/toggle", url.Values{"return": {"//evil.example/"}})
	assert.Equal(t, "/animals.html", rec.Header().Get("Location"))

	favs = decode[m.FavouritesResponse](t, a.do(t, http.MethodGet, "/api/favourites", nil))
	assert.Equal(t, "No favourites yet. Go to Animals and tap ☆ to save some.", favs.Status)
}

func TestFavouritesAPIStatus(t *testing.T) {
	testCases := []struct {
		name           string
		toggle         []string
		expectedCount  int
		expectedStatus string
	}{
		{name: "empty", expectedStatus: "No favourites yet. Go to Animals and tap ☆ to save some."},
		{name: "stale_ids", toggle: []string{"gone-from-feed"}, expectedStatus: "No matching favourites found in the latest animal data."},
		{name: "shown", toggle: []string{"otter", "red-fox", "gone-from-feed"}, expectedCount: 2, expectedStatus: "2 favourite(s) shown."},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := newApp(t)
			for _, id := range tc.toggle {
				a.do(t, http.MethodPost, "/api/favourites/"+id+"/toggle", nil)
			}

			rec := a.do(t, http.MethodGet, "/api/favourites", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			body := decode[m.FavouritesResponse](t, rec)
			assert.Equal(t, tc.expectedCount, body.Count)
			assert.Len(t, body.Animals, tc.expectedCount)
			assert.Len(t, body.IDs, len(tc.toggle))
			assert.Equal(t, tc.expectedStatus, body.Status)
		})
	}
}

func TestAnimalsAPI(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodGet, "/api/animals?q=RIVER", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[m.AnimalsResponse](t, rec)
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, "otter", list.Animals[0].ID)

	rec = a.do(t, http.MethodPost, "/api/favourites/otter/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"otter","favourite":true}`, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/api/animals/otter", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	card := decode[m.AnimalCard](t, rec)
	assert.True(t, card.Favourite)

	rec = a.do(t, http.MethodGet, "/api/favourites", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ids":["otter"]`)
	assert.Contains(t, rec.Body.String(), `"status":"1 favourite(s) shown."`)
}

func TestAnimalsAPIErrors(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodGet, "/api/animals/badger", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "animal_not_found", decode[m.ErrorResponse](t, rec).Error)

	a.feed.down.Store(true)
	rec = a.do(t, http.MethodGet, "/api/animals", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode[m.ErrorResponse](t, rec)
	assert.Equal(t, "feed_unavailable", body.Error)
	assert.Equal(t, "Could not load animals. Check your internet / data link.", body.Message)
}

func TestMapViewAPI(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodGet, "/api/map", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[m.MapView](t, rec)
	assert.Equal(t, "Map ready. Loaded 3 animals.", view.Status)
	assert.Len(t, view.Markers, 2)
	assert.Len(t, view.Choices, 3)
	assert.Equal(t, 13, view.Initial.Zoom)

	rec = a.do(t, http.MethodGet, "/api/map?lat=53.4&lng=-2.2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[m.MapView](t, rec)
	assert.Equal(t, "Location found. Loaded 3 animals.", view.Status)
	assert.Equal(t, 15, view.Initial.Zoom)
	assert.Equal(t, "me", view.Initial.PopupID)
}

func TestMapAPI(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodGet, "/api/map/markers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":2`)

	testCases := []struct {
		name           string
		query          string
		expectedStatus int
		expectedBody   string
	}{
		{name: "me_without_position", query: "action=me", expectedStatus: http.StatusUnprocessableEntity, expectedBody: "Please allow location access to locate you."},
		{name: "me", query: "action=me&lat=53.4&lng=-2.2", expectedStatus: http.StatusOK, expectedBody: `"zoom":15`},
		{name: "all", query: "action=all", expectedStatus: http.StatusOK, expectedBody: `"padding":30`},
		{name: "animal", query: "action=animal&id=red-fox", expectedStatus: http.StatusOK, expectedBody: `"popup_id":"red-fox"`},
		{name: "animal_not_chosen", query: "action=animal", expectedStatus: http.StatusBadRequest, expectedBody: "Choose an animal from the list first."},
		{name: "animal_without_marker", query: "action=animal&id=hedgehog", expectedStatus: http.StatusNotFound, expectedBody: "Could not find that animal marker."},
		{name: "unknown_action", query: "action=spin", expectedStatus: http.StatusBadRequest, expectedBody: "invalid_action"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := a.do(t, http.MethodGet, "/api/map/viewport?"+tc.query, nil)
			assert.Equal(t, tc.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.expectedBody)
		})
	}
}

func TestHealth(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[m.HealthResponse](t, rec)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "uninstalled", health.ProxyPhase)
	assert.Empty(t, health.CacheVersion)

	_, err := a.controller.Register(context.Background(), cacheproxy.Options{Version: "jwca-v2", Scope: a.feed.URL})
	require.NoError(t, err)

	rec = a.do(t, http.MethodGet, "/api/health", nil)
	health = decode[m.HealthResponse](t, rec)
	assert.Equal(t, "active", health.ProxyPhase)
	assert.Equal(t, "jwca-v2", health.CacheVersion)
}
