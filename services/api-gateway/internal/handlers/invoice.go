package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/you/fieldservice-booking/pkg/auth"
	"github.com/you/fieldservice-booking/services/api-gateway/internal/clients"
	"github.com/you/fieldservice-booking/services/api-gateway/internal/middlewares"
)

type InvoiceHandler struct {
	c *clients.Clients
}

func NewInvoiceHandler(c *clients.Clients) *InvoiceHandler {
	return &InvoiceHandler{c: c}
}

// GET /v1/invoices/:bookingId
func (h *InvoiceHandler) Get(c *gin.Context) {
	status, raw, err := h.c.Billing.Do(c.Request.Context(), http.MethodGet,
		"/v1/invoices/"+url.PathEscape(c.Param("bookingId")), nil)
	relay(c, status, raw, err)
}

// GET /v1/invoices. Customers see their own; operators may filter.
func (h *InvoiceHandler) List(c *gin.Context) {
	q := url.Values{}
	if middlewares.CallerRole(c) == auth.RoleCustomer {
		q.Set("customer_id", middlewares.CallerID(c))
	} else if v := c.Query("customer_id"); v != "" {
		q.Set("customer_id", v)
	}
	for _, k := range []string{"page", "page_size"} {
		if v := c.Query(k); v != "" {
			q.Set(k, v)
		}
	}
	path := "/v1/invoices"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	status, raw, err := h.c.Billing.Do(c.Request.Context(), http.MethodGet, path, nil)
	relay(c, status, raw, err)
}

// POST /v1/invoices/:bookingId/pay records a cash settlement (staff only).
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	status, raw, err := h.c.Billing.Do(c.Request.Context(), http.MethodPost,
		"/v1/invoices/"+url.PathEscape(c.Param("bookingId"))+"/pay", nil)
	relay(c, status, raw, err)
}

// POST /v1/invoices/:bookingId/charge takes a card payment from the customer.
func (h *InvoiceHandler) ChargeCard(c *gin.Context) {
	var in map[string]any
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, raw, err := h.c.Billing.Do(c.Request.Context(), http.MethodPost,
		"/v1/invoices/"+url.PathEscape(c.Param("bookingId"))+"/charge", in)
	relay(c, status, raw, err)
}
