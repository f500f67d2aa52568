package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	tariffdomain "github.com/smallgrid/aquabill/internal/tariff/domain"
)

type createTariffRequest struct {
	Price         string `json:"price"`
	EffectiveDate string `json:"effective_date"`
}

func (s *Server) CreateTariff(c *gin.Context) {
	var req createTariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil {
		AbortWithError(c, newValidationError("price", "invalid_price", "invalid price"))
		return
	}

	var effective time.Time
	if v := strings.TrimSpace(req.EffectiveDate); v != "" {
		effective, err = time.Parse(time.RFC3339, v)
		if err != nil {
			effective, err = time.Parse("2006-01-02", v)
		}
		if err != nil {
			AbortWithError(c, newValidationError("effective_date", "invalid_effective_date", "invalid effective_date"))
			return
		}
	}

	created, err := s.tariffSvc.Create(c.Request.Context(), tariffdomain.CreateUnitPriceRequest{
		Price:         price,
		EffectiveDate: effective,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": created})
}

func (s *Server) ListTariffs(c *gin.Context) {
	prices, err := s.tariffSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": prices})
}

func (s *Server) CurrentTariff(c *gin.Context) {
	at := time.Now().UTC()
	if v := strings.TrimSpace(c.Query("at")); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			AbortWithError(c, newValidationError("at", "invalid_at", "invalid at"))
			return
		}
		at = parsed
	}

	price, err := s.tariffSvc.CurrentAt(c.Request.Context(), at)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": price})
}
