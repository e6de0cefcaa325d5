package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/you/fieldservice-booking/services/api-gateway/internal/clients"
	"github.com/you/fieldservice-booking/services/api-gateway/internal/middlewares"
)

type BookingHandler struct {
	c *clients.Clients
}

func NewBookingHandler(c *clients.Clients) *BookingHandler {
	return &BookingHandler{c: c}
}

func relay(c *gin.Context, status int, raw json.RawMessage, err error) {
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Data(status, "application/json", raw)
}

// POST /v1/bookings. customer_id comes from the JWT, not the body.
func (h *BookingHandler) Create(c *gin.Context) {
	var in map[string]any
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in["customer_id"] = middlewares.CallerID(c)
	status, raw, err := h.c.Booking.Do(c.Request.Context(), http.MethodPost, "/v1/bookings", in)
	relay(c, status, raw, err)
}

// POST /v1/bookings/:id/assign (OPERATOR/ADMIN)
func (h *BookingHandler) Assign(c *gin.Context) {
	var in map[string]any
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, raw, err := h.c.Booking.Do(c.Request.Context(), http.MethodPost,
		"/v1/bookings/"+url.PathEscape(c.Param("id"))+"/assign", in)
	relay(c, status, raw, err)
}

// POST /v1/bookings/:id/status (OPERATOR/TECHNICIAN/ADMIN)
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	var in map[string]any
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, raw, err := h.c.Booking.Do(c.Request.Context(), http.MethodPost,
		"/v1/bookings/"+url.PathEscape(c.Param("id"))+"/status", in)
	relay(c, status, raw, err)
}

// POST /v1/bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	status, raw, err := h.c.Booking.Do(c.Request.Context(), http.MethodPost,
		"/v1/bookings/"+url.PathEscape(c.Param("id"))+"/cancel", nil)
	relay(c, status, raw, err)
}

// POST /v1/bookings/:id/reschedule
func (h *BookingHandler) Reschedule(c *gin.Context) {
	var in map[string]any
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, raw, err := h.c.Booking.Do(c.Request.Context(), http.MethodPost,
		"/v1/bookings/"+url.PathEscape(c.Param("id"))+"/reschedule", in)
	relay(c, status, raw, err)
}

// GET /v1/bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	status, raw, err := h.c.Booking.Do(c.Request.Context(), http.MethodGet,
		"/v1/bookings/"+url.PathEscape(c.Param("id")), nil)
	relay(c, status, raw, err)
}

// GET /v1/bookings?customer_id=&technician_id=&page=&page_size=
func (h *BookingHandler) List(c *gin.Context) {
	q := url.Values{}
	for _, k := range []string{"customer_id", "technician_id", "page", "page_size"} {
		if v := c.Query(k); v != "" {
			q.Set(k, v)
		}
	}
	path := "/v1/bookings"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	status, raw, err := h.c.Booking.Do(c.Request.Context(), http.MethodGet, path, nil)
	relay(c, status, raw, err)
}

// GET /v1/bookings/mine scopes the listing to the caller.
func (h *BookingHandler) ListMine(c *gin.Context) {
	status, raw, err := h.c.Booking.Do(c.Request.Context(), http.MethodGet,
		"/v1/bookings?customer_id="+url.QueryEscape(middlewares.CallerID(c)), nil)
	relay(c, status, raw, err)
}
