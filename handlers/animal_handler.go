package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	m "github.com/ChrisTheAbysswalker/wildlife-atlas/models"
	s "github.com/ChrisTheAbysswalker/wildlife-atlas/services"
)

type AnimalHandler struct {
	service *s.AnimalService
}

func NewAnimalHandler(service *s.AnimalService) *AnimalHandler {
	return &AnimalHandler{
		service: service,
	}
}

// The pages below are the shells named in the offline manifest. They carry
// no feed data, so a cached copy never goes stale; app.js fills them from
// the JSON API.

func (h *AnimalHandler) Home(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title": "Home",
		"Page":  "home",
	})
}

func (h *AnimalHandler) Kids(c *gin.Context) {
	c.HTML(http.StatusOK, "kids.html", gin.H{
		"Title": "Kids zone",
		"Page":  "kids",
	})
}

func (h *AnimalHandler) AnimalsPage(c *gin.Context) {
	c.HTML(http.StatusOK, "animals.html", gin.H{
		"Title": "Animals",
		"Page":  "animals",
	})
}

func (h *AnimalHandler) AnimalPage(c *gin.Context) {
	c.HTML(http.StatusOK, "animal.html", gin.H{
		"Title": "Animal",
		"Page":  "animal-detail",
	})
}

func (h *AnimalHandler) FavouritesPage(c *gin.Context) {
	c.HTML(http.StatusOK, "favourites.html", gin.H{
		"Title": "Favourites",
		"Page":  "favourites",
	})
}

// ToggleFavourite flips one id and sends the browser back to the page the
// form was posted from.
func (h *AnimalHandler) ToggleFavourite(c *gin.Context) {
	if _, err := h.service.ToggleFavourite(c.Param("id")); err != nil {
		log.Printf("❌ Could not toggle favourite: %v", err)
		c.JSON(http.StatusInternalServerError, m.ErrorResponse{
			Error:   "toggle_failed",
			Message: err.Error(),
		})
		return
	}
	c.Redirect(http.StatusSeeOther, safeReturn(c.PostForm("return")))
}

// safeReturn only allows local absolute paths.
func safeReturn(raw string) string {
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/animals.html"
	}
	return raw
}

func (h *AnimalHandler) ListAnimals(c *gin.Context) {
	resp, err := h.list(c, strings.TrimSpace(c.Query("q")))
	if err != nil {
		respondError(c, err, "animals")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AnimalHandler) list(c *gin.Context, query string) (*m.AnimalsResponse, error) {
	animals, err := h.service.FetchAnimals(c.Request.Context())
	if err != nil {
		return nil, err
	}

	filtered := s.Filter(animals, query)
	status := fmt.Sprintf("%d animals loaded.", len(animals))
	if query != "" {
		status = fmt.Sprintf("%d shown (of %d).", len(filtered), len(animals))
	}
	return &m.AnimalsResponse{
		Animals: h.service.Cards(filtered),
		Count:   len(filtered),
		Total:   len(animals),
		Status:  status,
	}, nil
}

func (h *AnimalHandler) GetAnimal(c *gin.Context) {
	animal, err := h.service.GetAnimal(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "details")
		return
	}
	c.JSON(http.StatusOK, m.AnimalCard{
		AnimalRecord: *animal,
		Favourite:    h.service.IsFavourite(animal.ID),
	})
}

func (h *AnimalHandler) ListFavourites(c *gin.Context) {
	ids, favs, err := h.service.FavouriteAnimals(c.Request.Context())
	if err != nil {
		respondError(c, err, "favourites")
		return
	}
	c.JSON(http.StatusOK, m.FavouritesResponse{
		IDs:     ids,
		Animals: h.service.Cards(favs),
		Count:   len(favs),
		Status:  s.FavouritesStatus(ids, favs),
	})
}

func (h *AnimalHandler) ToggleFavouriteJSON(c *gin.Context) {
	id := c.Param("id")
	fav, err := h.service.ToggleFavourite(id)
	if err != nil {
		respondError(c, err, "favourites")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":        id,
		"favourite": fav,
	})
}

func respondError(c *gin.Context, err error, subject string) {
	status, code := http.StatusBadGateway, "feed_unavailable"
	switch {
	case errors.Is(err, s.ErrNoAnimalSelected):
		status, code = http.StatusBadRequest, "no_animal_selected"
	case errors.Is(err, s.ErrAnimalNotFound):
		status, code = http.StatusNotFound, "animal_not_found"
	case errors.Is(err, s.ErrMalformedPayload):
		code = "malformed_payload"
	case !errors.Is(err, s.ErrFeedUnavailable):
		status, code = http.StatusInternalServerError, "internal_error"
	}
	if status >= http.StatusInternalServerError {
		log.Printf("❌ %s: %v", code, err)
	}
	c.JSON(status, m.ErrorResponse{
		Error:   code,
		Message: s.UserMessage(err, subject),
	})
}
