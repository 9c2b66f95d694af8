package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ChrisTheAbysswalker/wildlife-atlas/cacheproxy"
	m "github.com/ChrisTheAbysswalker/wildlife-atlas/models"
	s "github.com/ChrisTheAbysswalker/wildlife-atlas/services"
)

type SystemHandler struct {
	controller *cacheproxy.Controller
	animals    *s.AnimalService
}

func NewSystemHandler(controller *cacheproxy.Controller, animals *s.AnimalService) *SystemHandler {
	return &SystemHandler{
		controller: controller,
		animals:    animals,
	}
}

func (h *SystemHandler) Health(c *gin.Context) {
	response := m.HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().Unix(),
		ProxyPhase: cacheproxy.PhaseUninstalled.String(),
		Favourites: h.animals.FavouriteCount(),
	}
	if h.controller != nil {
		response.ProxyPhase = h.controller.Phase().String()
		if p := h.controller.Active(); p != nil {
			response.CacheVersion = p.Version()
		}
	}

	c.JSON(http.StatusOK, response)
}
