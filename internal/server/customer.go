package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/smallgrid/aquabill/internal/customer/domain"
)

type createCustomerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	PlotNo    string `json:"plot_no"`
	CourtName string `json:"court_name"`
	SiteID    string `json:"site_id"`
	MeterID   string `json:"meter_id"`
}

func (s *Server) CreateCustomer(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	cust, err := s.customerSvc.Create(c.Request.Context(), caller, customerdomain.CreateCustomerRequest{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     strings.TrimSpace(req.Phone),
		Email:     strings.TrimSpace(req.Email),
		PlotNo:    strings.TrimSpace(req.PlotNo),
		CourtName: strings.TrimSpace(req.CourtName),
		SiteID:    strings.TrimSpace(req.SiteID),
		MeterID:   strings.TrimSpace(req.MeterID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": cust})
}

func (s *Server) ListCustomers(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query customerdomain.ListCustomerRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	query.Search = strings.TrimSpace(query.Search)

	resp, err := s.customerSvc.List(c.Request.Context(), caller, query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCustomerByID(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	view, err := s.customerSvc.GetByID(c.Request.Context(), caller, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

type updateCustomerRequest struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	PlotNo        string `json:"plot_no"`
	CourtName     string `json:"court_name"`
	UsageStatus   string `json:"usage_status"`
	AccountStatus string `json:"account_status"`
	MeterID       string `json:"meter_id"`
}

func (s *Server) UpdateCustomer(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req updateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	cust, err := s.customerSvc.Update(c.Request.Context(), caller, customerdomain.UpdateCustomerRequest{
		ID:            strings.TrimSpace(c.Param("id")),
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		Phone:         strings.TrimSpace(req.Phone),
		Email:         strings.TrimSpace(req.Email),
		PlotNo:        strings.TrimSpace(req.PlotNo),
		CourtName:     strings.TrimSpace(req.CourtName),
		UsageStatus:   strings.TrimSpace(req.UsageStatus),
		AccountStatus: strings.TrimSpace(req.AccountStatus),
		MeterID:       strings.TrimSpace(req.MeterID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": cust})
}
