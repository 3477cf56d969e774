package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/recurra/internal/config"
	deliverydomain "github.com/smallbiznis/recurra/internal/delivery/domain"
	notificationdomain "github.com/smallbiznis/recurra/internal/notification/domain"
	"github.com/smallbiznis/recurra/internal/observability"
	obsmiddleware "github.com/smallbiznis/recurra/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/recurra/internal/observability/metrics"
	obstracing "github.com/smallbiznis/recurra/internal/observability/tracing"
	pricingdomain "github.com/smallbiznis/recurra/internal/pricing/domain"
	"github.com/smallbiznis/recurra/internal/providers/pdf"
	"github.com/smallbiznis/recurra/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	engine            *gin.Engine
	cfg               config.Config
	deliverySvc       deliverydomain.Service
	pricingSvc        pricingdomain.Service
	notificationSvc   notificationdomain.Service
	pdfProvider       pdf.Provider
	projectionLimiter *ratelimit.ProjectionLimiter
	obsMetrics        *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin               *gin.Engine
	Cfg               config.Config
	DeliverySvc       deliverydomain.Service
	PricingSvc        pricingdomain.Service
	NotificationSvc   notificationdomain.Service
	PDFProvider       pdf.Provider
	ProjectionLimiter *ratelimit.ProjectionLimiter `optional:"true"`
	ObsMetrics        *obsmetrics.Metrics          `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:            p.Gin,
		cfg:               p.Cfg,
		deliverySvc:       p.DeliverySvc,
		pricingSvc:        p.PricingSvc,
		notificationSvc:   p.NotificationSvc,
		pdfProvider:       p.PDFProvider,
		projectionLimiter: p.ProjectionLimiter,
		obsMetrics:        p.ObsMetrics,
	}
	svc.registerRoutes()
	return svc
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")

	// -------- Teams --------
	teams := v1.Group("/teams/:team_id")
	teams.GET("/dashboard", s.GetTeamDashboard)
	teams.GET("/production", s.ProjectionRateLimit(), s.GetProductionSheet)
	teams.GET("/production.pdf", s.ProjectionRateLimit(), s.GetProductionSheetPDF)
	teams.POST("/price-updates", s.SchedulePriceUpdate)

	// -------- Customers --------
	customers := v1.Group("/customers/:customer_id")
	customers.GET("/upcoming", s.GetCustomerUpcoming)
	customers.GET("/notifications", s.ListCustomerNotifications)

	// -------- Subscriptions --------
	v1.POST("/subscriptions/:id/reconcile", s.ReconcileSubscription)
}
