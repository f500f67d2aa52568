package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	sitedomain "github.com/smallgrid/aquabill/internal/site/domain"
)

type createSiteRequest struct {
	Name      string         `json:"name"`
	Address   string         `json:"address"`
	Latitude  *float64       `json:"latitude"`
	Longitude *float64       `json:"longitude"`
	Metadata  map[string]any `json:"metadata"`
}

func (s *Server) CreateSite(c *gin.Context) {
	var req createSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	site, err := s.siteSvc.Create(c.Request.Context(), sitedomain.CreateSiteRequest{
		Name:      strings.TrimSpace(req.Name),
		Address:   strings.TrimSpace(req.Address),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Metadata:  req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": site})
}

func (s *Server) ListSites(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	sites, err := s.siteSvc.List(c.Request.Context(), caller)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sites})
}

func (s *Server) GetSiteByID(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	site, err := s.siteSvc.GetByID(c.Request.Context(), caller, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": site})
}

type updateSiteRequest struct {
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (s *Server) UpdateSite(c *gin.Context) {
	var req updateSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	site, err := s.siteSvc.Update(c.Request.Context(), sitedomain.UpdateSiteRequest{
		ID:        strings.TrimSpace(c.Param("id")),
		Name:      strings.TrimSpace(req.Name),
		Address:   strings.TrimSpace(req.Address),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": site})
}

type assignSiteRequest struct {
	UserID string `json:"user_id"`
	SiteID string `json:"site_id"`
}

func (s *Server) AssignSite(c *gin.Context) {
	var req assignSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	assignment, err := s.siteSvc.Assign(c.Request.Context(), sitedomain.AssignRequest{
		UserID: strings.TrimSpace(req.UserID),
		SiteID: strings.TrimSpace(req.SiteID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": assignment})
}

func (s *Server) UnassignSite(c *gin.Context) {
	if err := s.siteSvc.Unassign(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) ListSiteAssignments(c *gin.Context) {
	var query struct {
		UserID string `form:"user_id"`
		SiteID string `form:"site_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	filter := sitedomain.AssignmentFilter{}
	if v := strings.TrimSpace(query.UserID); v != "" {
		id, err := snowflake.ParseString(v)
		if err != nil {
			AbortWithError(c, newValidationError("user_id", "invalid_user_id", "invalid user_id"))
			return
		}
		filter.UserID = id
	}
	if v := strings.TrimSpace(query.SiteID); v != "" {
		id, err := snowflake.ParseString(v)
		if err != nil {
			AbortWithError(c, newValidationError("site_id", "invalid_site_id", "invalid site_id"))
			return
		}
		filter.SiteID = id
	}

	assignments, err := s.siteSvc.ListAssignments(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": assignments})
}
