package main

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"

	"github.com/ChrisTheAbysswalker/wildlife-atlas/cacheproxy"
	"github.com/ChrisTheAbysswalker/wildlife-atlas/config"
	"github.com/ChrisTheAbysswalker/wildlife-atlas/favourites"
	h "github.com/ChrisTheAbysswalker/wildlife-atlas/handlers"
	s "github.com/ChrisTheAbysswalker/wildlife-atlas/services"
	"github.com/ChrisTheAbysswalker/wildlife-atlas/web"
)

const feedTimeout = 15 * time.Second

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	})
}

// newAppRouter builds the catalogue server. Its outbound feed reads go
// through the controller, so they are answered by the active cache
// generation when one is registered.
func newAppRouter(cfg *config.Config, controller *cacheproxy.Controller, fs afero.Fs, feedBase http.RoundTripper) (*gin.Engine, error) {
	storage, err := favourites.NewFileStorage(fs, cfg.DataDir)
	if err != nil {
		return nil, err
	}
	favs := favourites.NewStore(storage, cfg.FavouritesKey)

	client := &http.Client{
		Timeout:   feedTimeout,
		Transport: &cacheproxy.Transport{Controller: controller, Base: feedBase},
	}
	animalService := s.NewAnimalService(cfg, client, favs)
	mapService := s.NewMapService(animalService)

	router := gin.Default()
	router.Use(corsMiddleware())
	if err := web.Register(router); err != nil {
		return nil, err
	}

	h.RegisterRoutes(router,
		h.NewAnimalHandler(animalService),
		h.NewMapHandler(mapService),
		h.NewSystemHandler(controller, animalService),
	)
	return router, nil
}

// newProxyRouter builds the front proxy for origin. CORS headers come from
// origin's responses, so the proxy adds none of its own.
func newProxyRouter(controller *cacheproxy.Controller, origin *url.URL) *gin.Engine {
	handler := cacheproxy.NewHandler(controller, origin)

	router := gin.Default()
	router.GET("/_proxy/status", handler.Status)
	router.NoRoute(handler.Proxy)
	return router
}

func cacheOptions(cfg *config.Config, scope string) cacheproxy.Options {
	return cacheproxy.Options{
		Version:     cfg.CacheVersion,
		Scope:       scope,
		Assets:      cfg.CacheAssets,
		Fallback:    cfg.CacheFallback,
		Concurrency: cfg.InstallConcurrency,
	}
}
