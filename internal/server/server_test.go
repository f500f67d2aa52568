package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallgrid/aquabill/internal/authctx"
	"github.com/smallgrid/aquabill/internal/authorization"
	"github.com/smallgrid/aquabill/internal/clock"
	"github.com/smallgrid/aquabill/internal/config"
	identitydomain "github.com/smallgrid/aquabill/internal/identity/domain"
	"github.com/smallgrid/aquabill/internal/identity/token"
	"github.com/smallgrid/aquabill/internal/observability"
	obsmetrics "github.com/smallgrid/aquabill/internal/observability/metrics"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type identityStub struct {
	identitydomain.Service

	loginErr error
	pair     identitydomain.TokenPair
}

func (s *identityStub) Login(ctx context.Context, req identitydomain.LoginRequest) (identitydomain.TokenPair, error) {
	if s.loginErr != nil {
		return identitydomain.TokenPair{}, s.loginErr
	}
	return s.pair, nil
}

type authzAllowStub struct {
	deny bool
}

func (a *authzAllowStub) Authorize(ctx context.Context, caller authctx.Caller, object, action string) error {
	if a.deny {
		return authorization.ErrForbidden
	}
	return nil
}

func (a *authzAllowStub) AuthorizeSite(ctx context.Context, caller authctx.Caller, siteID snowflake.ID) error {
	return nil
}

func (a *authzAllowStub) Scope(caller authctx.Caller, stmt *gorm.DB, siteColumn string) *gorm.DB {
	return stmt
}

func newTestServer(t *testing.T, identitySvc identitydomain.Service, authz authorization.Service) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	issuer, err := token.NewIssuer(config.Config{JWTSecret: "test-secret"}, clock.System())
	require.NoError(t, err)

	engine := NewEngine(observability.Config{ServiceName: "aquabill-test"}, obsmetrics.NewHTTPMetrics())
	s := &Server{
		engine:      engine,
		tokens:      issuer,
		authzSvc:    authz,
		identitySvc: identitySvc,
	}
	s.registerAuthRoutes()
	s.registerAPIRoutes()
	return s
}

func issueAccessToken(t *testing.T, s *Server, role string) string {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	raw, err := s.tokens.IssueAccess(node.Generate().String(), "user@example.com", role)
	require.NoError(t, err)
	return raw
}

func TestLoginReturnsTokenPair(t *testing.T) {
	s := newTestServer(t, &identityStub{pair: identitydomain.TokenPair{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
	}}, &authzAllowStub{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@b.com","password":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"access_token":"access"`)
}

func TestLoginInvalidCredentialsEnvelope(t *testing.T) {
	s := newTestServer(t, &identityStub{loginErr: identitydomain.ErrInvalidCredentials}, &authzAllowStub{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@b.com","password":"bad"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), `"type":"unauthorized"`)
}

func TestLoginMalformedBody(t *testing.T) {
	s := newTestServer(t, &identityStub{}, &authzAllowStub{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"type":"validation_error"`)
}

func TestAPIRequiresBearerToken(t *testing.T) {
	s := newTestServer(t, &identityStub{}, &authzAllowStub{})

	req := httptest.NewRequest(http.MethodGet, "/api/sites", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIRejectsExpiredToken(t *testing.T) {
	s := newTestServer(t, &identityStub{}, &authzAllowStub{})

	expired := clock.NewFakeClock(time.Now().UTC().Add(-48 * time.Hour))
	oldIssuer, err := token.NewIssuer(config.Config{JWTSecret: "test-secret"}, expired)
	require.NoError(t, err)
	raw, err := oldIssuer.IssueAccess("1", "user@example.com", "SUPER_ADMIN")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/sites", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIForbiddenWithoutCapability(t *testing.T) {
	s := newTestServer(t, &identityStub{}, &authzAllowStub{deny: true})

	raw := issueAccessToken(t, s, "meter_reader")
	req := httptest.NewRequest(http.MethodGet, "/api/analytics/summary", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), `"type":"forbidden"`)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, &identityStub{}, &authzAllowStub{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
