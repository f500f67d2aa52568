package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	meterdomain "github.com/smallgrid/aquabill/internal/meter/domain"
)

type createMeterRequest struct {
	MeterNumber string     `json:"meter_number"`
	MeterType   string     `json:"meter_type"`
	SiteID      string     `json:"site_id"`
	InstalledAt *time.Time `json:"installed_at"`
}

func (s *Server) CreateMeter(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createMeterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	m, err := s.meterSvc.Create(c.Request.Context(), caller, meterdomain.CreateMeterRequest{
		MeterNumber: strings.TrimSpace(req.MeterNumber),
		MeterType:   strings.TrimSpace(req.MeterType),
		SiteID:      strings.TrimSpace(req.SiteID),
		InstalledAt: req.InstalledAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": m})
}

func (s *Server) ListMeters(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query meterdomain.ListMeterRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	meters, err := s.meterSvc.List(c.Request.Context(), caller, query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": meters})
}

func (s *Server) GetMeterByID(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	m, err := s.meterSvc.GetByID(c.Request.Context(), caller, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": m})
}

type updateMeterStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) UpdateMeterStatus(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req updateMeterStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	m, err := s.meterSvc.UpdateStatus(c.Request.Context(), caller, meterdomain.UpdateStatusRequest{
		ID:     strings.TrimSpace(c.Param("id")),
		Status: strings.TrimSpace(req.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": m})
}
