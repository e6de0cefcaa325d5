package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/you/fieldservice-booking/services/booking-service/internal/clients"
	"github.com/you/fieldservice-booking/services/booking-service/internal/domain"
	"github.com/you/fieldservice-booking/services/booking-service/internal/service"
)

type Server struct {
	svc *service.BookingSvc
}

func NewServer(svc *service.BookingSvc) *Server {
	return &Server{svc: svc}
}

func (s *Server) Register(r *gin.Engine) {
	v1 := r.Group("/v1")
	v1.POST("/bookings", s.create)
	v1.GET("/bookings", s.list)
	v1.GET("/bookings/:id", s.get)
	v1.POST("/bookings/:id/assign", s.assign)
	v1.POST("/bookings/:id/status", s.updateStatus)
	v1.POST("/bookings/:id/cancel", s.cancel)
	v1.POST("/bookings/:id/reschedule", s.reschedule)
}

// writeErr maps the domain error taxonomy onto HTTP statuses: not-found
// 404, guard violations 400, transient upstream failures 503.
func writeErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidStatusValue),
		errors.Is(err, clients.ErrTechnicianNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, clients.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) create(c *gin.Context) {
	var in struct {
		CustomerID       string `json:"customer_id" binding:"required"`
		ServiceName      string `json:"service_name" binding:"required"`
		CategoryName     string `json:"category_name"`
		ScheduledDate    string `json:"scheduled_date" binding:"required"`
		TimeSlot         string `json:"time_slot" binding:"required"`
		Address          string `json:"address" binding:"required"`
		IssueDescription string `json:"issue_description"`
		PaymentMode      string `json:"payment_mode"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := s.svc.Create(c.Request.Context(), service.CreateInput{
		CustomerID:       in.CustomerID,
		ServiceName:      in.ServiceName,
		CategoryName:     in.CategoryName,
		ScheduledDate:    in.ScheduledDate,
		TimeSlot:         in.TimeSlot,
		Address:          in.Address,
		IssueDescription: in.IssueDescription,
		PaymentMode:      in.PaymentMode,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking_id": b.ID, "status": b.Status, "booking": b})
}

func (s *Server) assign(c *gin.Context) {
	var in struct {
		TechnicianID string `json:"technician_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := s.svc.Assign(c.Request.Context(), c.Param("id"), in.TechnicianID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking_id": b.ID, "status": b.Status})
}

func (s *Server) updateStatus(c *gin.Context) {
	var in struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := s.svc.UpdateStatus(c.Request.Context(), c.Param("id"), in.Status)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking_id": b.ID, "status": b.Status})
}

func (s *Server) cancel(c *gin.Context) {
	res, err := s.svc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking_id": res.Booking.ID, "status": res.Booking.Status, "message": res.Message})
}

func (s *Server) reschedule(c *gin.Context) {
	var in struct {
		ScheduledDate string `json:"scheduled_date" binding:"required"`
		TimeSlot      string `json:"time_slot" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.svc.Reschedule(c.Request.Context(), c.Param("id"), in.ScheduledDate, in.TimeSlot)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking_id": res.Booking.ID, "status": res.Booking.Status, "message": res.Message})
}

func (s *Server) get(c *gin.Context) {
	b, err := s.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) list(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	list, total, err := s.svc.List(c.Request.Context(), int32(page), int32(size),
		c.Query("customer_id"), c.Query("technician_id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "bookings": list})
}
