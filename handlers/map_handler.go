package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	m "github.com/ChrisTheAbysswalker/wildlife-atlas/models"
	s "github.com/ChrisTheAbysswalker/wildlife-atlas/services"
)

type MapHandler struct {
	service *s.MapService
}

func NewMapHandler(service *s.MapService) *MapHandler {
	return &MapHandler{
		service: service,
	}
}

// MapPage renders the map shell: tiles and the default centre. Markers and
// the animal picker come from GetView.
func (h *MapHandler) MapPage(c *gin.Context) {
	c.HTML(http.StatusOK, "map.html", gin.H{
		"Title": "Map",
		"Page":  "map",
		"View":  s.Shell(),
	})
}

// GetView returns markers, picker choices and the initial viewport for the
// optional lat/lng.
func (h *MapHandler) GetView(c *gin.Context) {
	view, err := h.service.View(c.Request.Context(), userPosition(c))
	if err != nil {
		log.Printf("❌ Could not load map data: %v", err)
		c.JSON(http.StatusBadGateway, m.ErrorResponse{
			Error:   "feed_unavailable",
			Message: view.Status,
		})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *MapHandler) GetMarkers(c *gin.Context) {
	view, err := h.service.View(c.Request.Context(), nil)
	if err != nil {
		respondError(c, err, "animals")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"markers": view.Markers,
		"count":   len(view.Markers),
	})
}

// GetViewport answers the map buttons: action=me|all|animal.
func (h *MapHandler) GetViewport(c *gin.Context) {
	vp, status, err := h.service.Viewport(c.Request.Context(), c.Query("action"), c.Query("id"), userPosition(c))
	if err != nil {
		code, httpStatus := "invalid_action", http.StatusBadRequest
		switch {
		case errors.Is(err, s.ErrLocationUnavailable):
			code, httpStatus = "location_unavailable", http.StatusUnprocessableEntity
		case errors.Is(err, s.ErrNoAnimalSelected):
			code = "no_animal_selected"
		case errors.Is(err, s.ErrMarkerNotFound):
			code, httpStatus = "marker_not_found", http.StatusNotFound
		case errors.Is(err, s.ErrFeedUnavailable), errors.Is(err, s.ErrMalformedPayload):
			code, httpStatus = "feed_unavailable", http.StatusBadGateway
		}
		c.JSON(httpStatus, m.ErrorResponse{
			Error:   code,
			Message: status,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"viewport": vp,
		"status":   status,
	})
}

// userPosition reads the browser-supplied lat/lng, if both are present and
// numeric.
func userPosition(c *gin.Context) *m.LatLng {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		return nil
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		return nil
	}
	return &m.LatLng{Lat: lat, Lng: lng}
}
