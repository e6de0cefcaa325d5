package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/you/fieldservice-booking/services/api-gateway/internal/clients"
)

type TechnicianHandler struct {
	c *clients.Clients
}

func NewTechnicianHandler(c *clients.Clients) *TechnicianHandler {
	return &TechnicianHandler{c: c}
}

// GET /v1/technicians (ADMIN/OPERATOR)
func (h *TechnicianHandler) List(c *gin.Context) {
	q := url.Values{}
	for _, k := range []string{"page", "page_size"} {
		if v := c.Query(k); v != "" {
			q.Set(k, v)
		}
	}
	path := "/v1/technicians"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	status, raw, err := h.c.Technician.Do(c.Request.Context(), http.MethodGet, path, nil)
	relay(c, status, raw, err)
}

// GET /v1/technicians/:id
func (h *TechnicianHandler) Get(c *gin.Context) {
	status, raw, err := h.c.Technician.Do(c.Request.Context(), http.MethodGet,
		"/v1/technicians/"+url.PathEscape(c.Param("id")), nil)
	relay(c, status, raw, err)
}
