package cacheproxy

import (
	"errors"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	m "github.com/ChrisTheAbysswalker/wildlife-atlas/models"
)

// Handler is the front proxy: it sits between browsers and origin the way
// an installed offline worker sits between a page and the network.
type Handler struct {
	controller  *Controller
	origin      *url.URL
	passthrough *httputil.ReverseProxy
}

func NewHandler(controller *Controller, origin *url.URL) *Handler {
	return &Handler{
		controller:  controller,
		origin:      origin,
		passthrough: httputil.NewSingleHostReverseProxy(origin),
	}
}

// Proxy intercepts every route; register it with router.NoRoute.
func (h *Handler) Proxy(c *gin.Context) {
	req := FromHTTP(c.Request, h.origin)

	resp, err := h.controller.Fetch(c.Request.Context(), req)
	switch {
	case errors.Is(err, ErrNotIntercepted):
		h.passthrough.ServeHTTP(c.Writer, c.Request)
		return
	case errors.Is(err, ErrOffline):
		log.Printf("📴 Offline: %v", err)
		c.JSON(http.StatusServiceUnavailable, m.ErrorResponse{
			Error:   "offline",
			Message: "The network is unreachable and this page is not available offline",
		})
		return
	case err != nil:
		log.Printf("❌ Proxy error for %s: %v", req.URL, err)
		c.JSON(http.StatusBadGateway, m.ErrorResponse{
			Error:   "proxy_failed",
			Message: err.Error(),
		})
		return
	}

	header := c.Writer.Header()
	for name, values := range resp.Header {
		header[name] = append([]string(nil), values...)
	}
	removeHopHeaders(header)
	header.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	if resp.FromCache {
		header.Set("X-Cache", "HIT")
	} else {
		header.Set("X-Cache", "MISS")
	}

	c.Status(resp.StatusCode)
	_, _ = c.Writer.Write(resp.Body)
}

// Status reports the controlling generation.
func (h *Handler) Status(c *gin.Context) {
	p := h.controller.Active()
	if p == nil {
		c.JSON(http.StatusOK, gin.H{"phase": PhaseUninstalled.String()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"phase":   p.Phase().String(),
		"version": p.Version(),
		"origin":  h.origin.String(),
	})
}
