package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallgrid/aquabill/internal/analytics"
	analyticsdomain "github.com/smallgrid/aquabill/internal/analytics/domain"
	"github.com/smallgrid/aquabill/internal/authorization"
	"github.com/smallgrid/aquabill/internal/billing"
	billingdomain "github.com/smallgrid/aquabill/internal/billing/domain"
	"github.com/smallgrid/aquabill/internal/config"
	"github.com/smallgrid/aquabill/internal/customer"
	customerdomain "github.com/smallgrid/aquabill/internal/customer/domain"
	"github.com/smallgrid/aquabill/internal/identity"
	identitydomain "github.com/smallgrid/aquabill/internal/identity/domain"
	"github.com/smallgrid/aquabill/internal/identity/token"
	"github.com/smallgrid/aquabill/internal/meter"
	meterdomain "github.com/smallgrid/aquabill/internal/meter/domain"
	"github.com/smallgrid/aquabill/internal/observability"
	obslogger "github.com/smallgrid/aquabill/internal/observability/logger"
	obsmetrics "github.com/smallgrid/aquabill/internal/observability/metrics"
	obstracing "github.com/smallgrid/aquabill/internal/observability/tracing"
	"github.com/smallgrid/aquabill/internal/providers/pdf"
	"github.com/smallgrid/aquabill/internal/ratelimit"
	"github.com/smallgrid/aquabill/internal/site"
	sitedomain "github.com/smallgrid/aquabill/internal/site/domain"
	"github.com/smallgrid/aquabill/internal/tariff"
	tariffdomain "github.com/smallgrid/aquabill/internal/tariff/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	identity.Module,
	site.Module,
	meter.Module,
	customer.Module,
	tariff.Module,
	billing.Module,
	analytics.Module,
	ratelimit.Module,
	pdf.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware(obsCfg.ServiceName))
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(httpMetrics.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.ListenAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	tokens       *token.Issuer
	authzSvc     authorization.Service
	identitySvc  identitydomain.Service
	siteSvc      sitedomain.Service
	meterSvc     meterdomain.Service
	customerSvc  customerdomain.Service
	tariffSvc    tariffdomain.Service
	billingSvc   billingdomain.Service
	analyticsSvc analyticsdomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Tokens       *token.Issuer
	AuthzSvc     authorization.Service
	IdentitySvc  identitydomain.Service
	SiteSvc      sitedomain.Service
	MeterSvc     meterdomain.Service
	CustomerSvc  customerdomain.Service
	TariffSvc    tariffdomain.Service
	BillingSvc   billingdomain.Service
	AnalyticsSvc analyticsdomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		tokens:       p.Tokens,
		authzSvc:     p.AuthzSvc,
		identitySvc:  p.IdentitySvc,
		siteSvc:      p.SiteSvc,
		meterSvc:     p.MeterSvc,
		customerSvc:  p.CustomerSvc,
		tariffSvc:    p.TariffSvc,
		billingSvc:   p.BillingSvc,
		analyticsSvc: p.AnalyticsSvc,
	}

	s.registerAuthRoutes()
	s.registerAPIRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.Login)
	auth.POST("/refresh", s.Refresh)
	auth.GET("/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	// -------- Users & roles --------
	api.GET("/users", s.Authorize(authorization.ObjectUser, authorization.ActionView), s.ListUsers)
	api.POST("/users", s.Authorize(authorization.ObjectUser, authorization.ActionCreate), s.CreateUser)
	api.GET("/users/:id", s.Authorize(authorization.ObjectUser, authorization.ActionView), s.GetUserByID)
	api.POST("/users/:id/role", s.Authorize(authorization.ObjectUser, authorization.ActionUpdate), s.AssignRole)
	api.GET("/roles", s.Authorize(authorization.ObjectRole, authorization.ActionView), s.ListRoles)
	api.POST("/roles", s.Authorize(authorization.ObjectRole, authorization.ActionCreate), s.CreateRole)

	// -------- Sites --------
	api.GET("/sites", s.Authorize(authorization.ObjectSite, authorization.ActionView), s.ListSites)
	api.POST("/sites", s.Authorize(authorization.ObjectSite, authorization.ActionCreate), s.CreateSite)
	api.GET("/sites/:id", s.Authorize(authorization.ObjectSite, authorization.ActionView), s.GetSiteByID)
	api.PATCH("/sites/:id", s.Authorize(authorization.ObjectSite, authorization.ActionUpdate), s.UpdateSite)

	// -------- Site assignments --------
	api.GET("/site_assignments", s.Authorize(authorization.ObjectSite, authorization.ActionUpdate), s.ListSiteAssignments)
	api.POST("/site_assignments", s.Authorize(authorization.ObjectSite, authorization.ActionUpdate), s.AssignSite)
	api.DELETE("/site_assignments/:id", s.Authorize(authorization.ObjectSite, authorization.ActionUpdate), s.UnassignSite)

	// -------- Meters --------
	api.GET("/meters", s.Authorize(authorization.ObjectMeter, authorization.ActionView), s.ListMeters)
	api.POST("/meters", s.Authorize(authorization.ObjectMeter, authorization.ActionCreate), s.CreateMeter)
	api.GET("/meters/:id", s.Authorize(authorization.ObjectMeter, authorization.ActionView), s.GetMeterByID)
	api.PATCH("/meters/:id/status", s.Authorize(authorization.ObjectMeter, authorization.ActionUpdate), s.UpdateMeterStatus)

	// -------- Customers --------
	api.GET("/customers", s.Authorize(authorization.ObjectCustomer, authorization.ActionView), s.ListCustomers)
	api.POST("/customers", s.Authorize(authorization.ObjectCustomer, authorization.ActionCreate), s.CreateCustomer)
	api.GET("/customers/:id", s.Authorize(authorization.ObjectCustomer, authorization.ActionView), s.GetCustomerByID)
	api.PATCH("/customers/:id", s.Authorize(authorization.ObjectCustomer, authorization.ActionUpdate), s.UpdateCustomer)

	// -------- Tariffs --------
	api.GET("/tariffs", s.Authorize(authorization.ObjectTariff, authorization.ActionView), s.ListTariffs)
	api.POST("/tariffs", s.Authorize(authorization.ObjectTariff, authorization.ActionCreate), s.CreateTariff)
	api.GET("/tariffs/current", s.Authorize(authorization.ObjectTariff, authorization.ActionView), s.CurrentTariff)

	// -------- Billing --------
	api.POST("/readings", s.Authorize(authorization.ObjectReading, authorization.ActionCreate), s.SubmitReading)
	api.GET("/billing_records", s.Authorize(authorization.ObjectBilling, authorization.ActionView), s.ListBillingRecords)
	api.GET("/billing_records/:id", s.Authorize(authorization.ObjectBilling, authorization.ActionView), s.GetBillingRecordByID)
	api.GET("/billing_records/:id/payments", s.Authorize(authorization.ObjectPayment, authorization.ActionView), s.ListPaymentLogs)
	api.GET("/billing_records/:id/readings", s.Authorize(authorization.ObjectReading, authorization.ActionView), s.ListReadingLogs)
	api.POST("/payments", s.Authorize(authorization.ObjectPayment, authorization.ActionCreate), s.RecordPayment)
	api.GET("/payments/:id/receipt", s.Authorize(authorization.ObjectPayment, authorization.ActionView), s.PaymentReceipt)

	// -------- Analytics --------
	api.GET("/analytics/summary", s.Authorize(authorization.ObjectAnalytics, authorization.ActionView), s.AnalyticsSummary)
}
