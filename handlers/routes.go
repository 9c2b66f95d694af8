package handlers

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the pages under the names the offline manifest uses,
// plus the JSON API.
func RegisterRoutes(router gin.IRouter, animals *AnimalHandler, maps *MapHandler, system *SystemHandler) {
	router.GET("/", animals.Home)
	router.GET("/index.html", animals.Home)
	router.GET("/animals.html", animals.AnimalsPage)
	router.GET("/animal.html", animals.AnimalPage)
	router.GET("/favourites.html", animals.FavouritesPage)
	router.GET("/kids.html", animals.Kids)
	router.GET("/map.html", maps.MapPage)
	router.POST("/favourites/:id/toggle", animals.ToggleFavourite)

	api := router.Group("/api")
	{
		api.GET("/animals", animals.ListAnimals)
		api.GET("/animals/:id", animals.GetAnimal)
		api.GET("/favourites", animals.ListFavourites)
		api.POST("/favourites/:id/toggle", animals.ToggleFavouriteJSON)
		api.GET("/map", maps.GetView)
		api.GET("/map/markers", maps.GetMarkers)
		api.GET("/map/viewport", maps.GetViewport)
		api.GET("/health", system.Health)
	}
}
