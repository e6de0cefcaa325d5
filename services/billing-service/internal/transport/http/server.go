package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/omise/omise-go"
	"go.uber.org/zap"

	"github.com/you/fieldservice-booking/services/billing-service/internal/domain"
	"github.com/you/fieldservice-booking/services/billing-service/internal/payments"
	"github.com/you/fieldservice-booking/services/billing-service/internal/service"
)

type Server struct {
	svc      *service.InvoiceSvc
	payments *payments.Client // nil when card payments are not configured
	currency string
	log      *zap.Logger
}

func NewServer(svc *service.InvoiceSvc, pay *payments.Client, currency string, log *zap.Logger) *Server {
	return &Server{svc: svc, payments: pay, currency: currency, log: log}
}

func (s *Server) Register(r *gin.Engine) {
	v1 := r.Group("/v1")
	v1.POST("/invoices/generate", s.generate)
	v1.GET("/invoices", s.list)
	v1.GET("/invoices/:bookingId", s.get)
	v1.POST("/invoices/:bookingId/pay", s.markPaid)
	v1.POST("/invoices/:bookingId/charge", s.chargeCard)

	r.POST("/webhooks/omise", s.omiseWebhook)
}

func writeErr(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrInvoiceNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// generate is the synchronous idempotent-generation endpoint the booking
// service calls on completion. Duplicate calls return the existing
// invoice with 200 instead of 201.
func (s *Server) generate(c *gin.Context) {
	var in struct {
		BookingID   string             `json:"booking_id" binding:"required"`
		CustomerID  string             `json:"customer_id"`
		ServiceName string             `json:"service_name"`
		Items       []service.LineItem `json:"items"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	existing, err := s.svc.ByBookingID(c.Request.Context(), in.BookingID)
	if err == nil {
		c.JSON(http.StatusOK, existing)
		return
	}
	inv, err := s.svc.GenerateIfAbsent(c.Request.Context(), in.BookingID, in.CustomerID, in.ServiceName, in.Items)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (s *Server) get(c *gin.Context) {
	inv, err := s.svc.ByBookingID(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) list(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	list, total, err := s.svc.List(c.Request.Context(), int32(page), int32(size), c.Query("customer_id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "invoices": list})
}

func (s *Server) markPaid(c *gin.Context) {
	inv, err := s.svc.MarkPaid(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// chargeCard charges the invoice total against a tokenized card and marks
// the invoice paid when the charge settles synchronously. Pending charges
// resolve later through the webhook.
func (s *Server) chargeCard(c *gin.Context) {
	if s.payments == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "card payments not configured"})
		return
	}
	var in struct {
		CardToken string `json:"card_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bookingID := c.Param("bookingId")
	inv, err := s.svc.ByBookingID(c.Request.Context(), bookingID)
	if err != nil {
		writeErr(c, err)
		return
	}
	if inv.PaymentStatus == domain.PaymentPaid {
		c.JSON(http.StatusOK, gin.H{"invoice": inv, "message": "invoice already paid"})
		return
	}

	amount := int64(inv.TotalAmount * 100) // smallest currency unit
	res, err := s.payments.ChargeCard(bookingID, amount, s.currency, in.CardToken)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if !res.Paid {
		s.svc.PublishPaymentFailed(c.Request.Context(), bookingID, res.FailureCode)
		c.JSON(http.StatusPaymentRequired, gin.H{
			"charge_id": res.ChargeID,
			"error":     res.FailureMessage,
		})
		return
	}

	inv, err = s.svc.MarkPaid(c.Request.Context(), bookingID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice": inv, "charge_id": res.ChargeID})
}

// omiseWebhook verifies the event against Omise before trusting it, then
// settles the invoice named in the charge metadata.
func (s *Server) omiseWebhook(c *gin.Context) {
	if s.payments == nil {
		c.Status(http.StatusNotImplemented)
		return
	}
	var inc struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	}
	if err := c.ShouldBindJSON(&inc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	ev, err := s.payments.VerifyEvent(inc.ID)
	if err != nil {
		s.log.Warn("webhook event verification failed", zap.String("event_id", inc.ID), zap.Error(err))
		c.Status(http.StatusUnauthorized)
		return
	}
	if ev.Key != "charge.complete" {
		c.Status(http.StatusOK)
		return
	}

	raw, err := json.Marshal(ev.Data)
	if err != nil {
		c.Status(http.StatusOK)
		return
	}
	var ch omise.Charge
	if err := json.Unmarshal(raw, &ch); err != nil {
		c.Status(http.StatusOK)
		return
	}
	bookingID, _ := ch.Metadata["booking_id"].(string)
	if bookingID == "" {
		c.Status(http.StatusOK)
		return
	}

	if string(ch.Status) == "successful" {
		if _, err := s.svc.MarkPaid(c.Request.Context(), bookingID); err != nil {
			s.log.Error("mark paid from webhook", zap.String("booking_id", bookingID), zap.Error(err))
		}
	} else {
		reason := ""
		if ch.FailureCode != nil {
			reason = *ch.FailureCode
		}
		s.svc.PublishPaymentFailed(c.Request.Context(), bookingID, reason)
	}
	c.Status(http.StatusOK)
}
