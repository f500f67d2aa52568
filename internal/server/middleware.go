package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallgrid/aquabill/internal/authctx"
	"github.com/smallgrid/aquabill/internal/identity/token"
)

// AuthRequired verifies the bearer access token and installs the caller
// on the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		claims, err := s.tokens.Verify(raw, token.TypeAccess)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		userID, err := snowflake.ParseString(claims.UserID)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		caller := authctx.Caller{
			UserID: userID,
			Email:  claims.Email,
			Role:   claims.Role,
		}
		c.Request = c.Request.WithContext(authctx.WithCaller(c.Request.Context(), caller))
		c.Next()
	}
}

// Authorize gates a route on one role capability. Run after AuthRequired.
func (s *Server) Authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := authctx.CallerFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), caller, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func callerFrom(c *gin.Context) (authctx.Caller, bool) {
	return authctx.CallerFromContext(c.Request.Context())
}
