package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) AnalyticsSummary(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	summary, err := s.analyticsSvc.GetSummary(c.Request.Context(), caller)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}
