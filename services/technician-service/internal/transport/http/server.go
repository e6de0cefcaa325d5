package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/you/fieldservice-booking/services/technician-service/internal/domain"
	"github.com/you/fieldservice-booking/services/technician-service/internal/service"
)

type Server struct {
	svc *service.TechnicianSvc
}

func NewServer(svc *service.TechnicianSvc) *Server {
	return &Server{svc: svc}
}

func (s *Server) Register(r *gin.Engine) {
	v1 := r.Group("/v1")
	v1.POST("/technicians/:id/busy", s.markBusy)
	v1.POST("/technicians/:id/available", s.markAvailable)
	v1.GET("/technicians/:id", s.get)
	v1.GET("/technicians", s.list)
}

func writeErr(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrTechnicianNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func (s *Server) markBusy(c *gin.Context) {
	t, err := s.svc.MarkBusy(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) markAvailable(c *gin.Context) {
	t, err := s.svc.MarkAvailable(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) get(c *gin.Context) {
	t, err := s.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) list(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	list, err := s.svc.List(c.Request.Context(), int32(page), int32(size))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"technicians": list})
}
