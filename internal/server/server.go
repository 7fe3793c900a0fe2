package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blackbridgeaiagency-star/flywheel/internal/clock"
	"github.com/blackbridgeaiagency-star/flywheel/internal/commission"
	commissiondomain "github.com/blackbridgeaiagency-star/flywheel/internal/commission/domain"
	"github.com/blackbridgeaiagency-star/flywheel/internal/config"
	"github.com/blackbridgeaiagency-star/flywheel/internal/creator"
	creatordomain "github.com/blackbridgeaiagency-star/flywheel/internal/creator/domain"
	"github.com/blackbridgeaiagency-star/flywheel/internal/dashboard"
	"github.com/blackbridgeaiagency-star/flywheel/internal/earnings"
	"github.com/blackbridgeaiagency-star/flywheel/internal/invoice"
	invoicedomain "github.com/blackbridgeaiagency-star/flywheel/internal/invoice/domain"
	"github.com/blackbridgeaiagency-star/flywheel/internal/member"
	memberdomain "github.com/blackbridgeaiagency-star/flywheel/internal/member/domain"
	"github.com/blackbridgeaiagency-star/flywheel/internal/observability"
	obslogger "github.com/blackbridgeaiagency-star/flywheel/internal/observability/logger"
	obsmetrics "github.com/blackbridgeaiagency-star/flywheel/internal/observability/metrics"
	obstracing "github.com/blackbridgeaiagency-star/flywheel/internal/observability/tracing"
	"github.com/blackbridgeaiagency-star/flywheel/internal/platformfee"
	"github.com/blackbridgeaiagency-star/flywheel/internal/providers"
	"github.com/blackbridgeaiagency-star/flywheel/internal/providers/pdf"
	"github.com/blackbridgeaiagency-star/flywheel/internal/ranking"
	"github.com/blackbridgeaiagency-star/flywheel/internal/tier"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	creator.Module,
	member.Module,
	commission.Module,
	invoice.Module,
	earnings.Module,
	ranking.Module,
	dashboard.Module,
	providers.Module,
	platformfee.Module,
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
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(IdentityContext())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine *gin.Engine
	cfg    config.Config
	db     *gorm.DB
	clk    clock.Clock

	creatorSvc    creatordomain.Service
	memberSvc     memberdomain.Service
	commissionSvc commissiondomain.Service
	invoiceSvc    invoicedomain.Service
	earningsSvc   *earnings.Service
	dashboardSvc  *dashboard.Service
	feeSvc        *platformfee.Service
	tiers         *tier.Resolver
	pdfSvc        pdf.Provider

	commissionRepo commissiondomain.Repository
	memberRepo     memberdomain.Repository
}

type ServerParams struct {
	fx.In

	Gin *gin.Engine
	Cfg config.Config
	DB  *gorm.DB
	Clk clock.Clock

	CreatorSvc    creatordomain.Service
	MemberSvc     memberdomain.Service
	CommissionSvc commissiondomain.Service
	InvoiceSvc    invoicedomain.Service
	EarningsSvc   *earnings.Service
	DashboardSvc  *dashboard.Service
	FeeSvc        *platformfee.Service
	Tiers         *tier.Resolver
	PDFSvc        pdf.Provider

	CommissionRepo commissiondomain.Repository
	MemberRepo     memberdomain.Repository
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		clk:            p.Clk,
		creatorSvc:     p.CreatorSvc,
		memberSvc:      p.MemberSvc,
		commissionSvc:  p.CommissionSvc,
		invoiceSvc:     p.InvoiceSvc,
		earningsSvc:    p.EarningsSvc,
		dashboardSvc:   p.DashboardSvc,
		feeSvc:         p.FeeSvc,
		tiers:          p.Tiers,
		pdfSvc:         p.PDFSvc,
		commissionRepo: p.CommissionRepo,
		memberRepo:     p.MemberRepo,
	}

	s.registerWebhookRoutes()
	s.registerAPIRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWebhookRoutes() {
	hooks := s.engine.Group("/webhooks")

	hooks.POST("/membership", s.HandleMembershipWebhook)
	hooks.POST("/payments", s.HandlePaymentWebhook)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	// -------- Members --------
	api.GET("/members/:id/dashboard", s.GetMemberDashboard)
	api.PATCH("/members/:id/referral-code", s.UpdateReferralCode)
	api.GET("/members/:id/tier", s.GetMemberTier)

	// -------- Creators --------
	api.GET("/creators/:id/dashboard", s.GetCreatorDashboard)
	api.GET("/creators/:id/value-report", s.GetValueReport)
	api.GET("/creators/:id/leaderboard", s.GetLeaderboard)
	api.GET("/creators/:id/invoices", s.ListCreatorInvoices)

	// -------- Invoices --------
	api.GET("/invoices/:id/pdf", s.RenderInvoicePDF)

	// -------- Invoicing --------
	api.POST("/invoicing/run", s.RunInvoicing)
}
