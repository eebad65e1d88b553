package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/domainledger/internal/config"
	domaindomain "github.com/smallbiznis/domainledger/internal/domains/domain"
	feedomain "github.com/smallbiznis/domainledger/internal/fee/domain"
	"github.com/smallbiznis/domainledger/internal/fee/report"
	"github.com/smallbiznis/domainledger/internal/notification"
	obslogger "github.com/smallbiznis/domainledger/internal/observability/logger"
	obstracing "github.com/smallbiznis/domainledger/internal/observability/tracing"
	"github.com/smallbiznis/domainledger/internal/queue"
	"github.com/smallbiznis/domainledger/internal/ratelimit"
	registrardomain "github.com/smallbiznis/domainledger/internal/registrar/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(
		func(g *ratelimit.SyncGuard) ManualSyncLimiter { return g },
		func(s *notification.Service) NotificationLister { return s },
		func(r *report.Report) PriceReport { return r },
	),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// NotificationLister pages through a user's notices.
type NotificationLister interface {
	List(ctx context.Context, req notification.ListRequest) (*notification.ListResponse, error)
}

// PriceReport renders the cross-registrar price comparison.
type PriceReport interface {
	Matrix(ctx context.Context) (report.Matrix, error)
	WriteXLSX(ctx context.Context, w io.Writer) error
	WritePDF(ctx context.Context, w io.Writer) error
}

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(log)
}

func run(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.String("addr", srv.Addr), zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
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

type Params struct {
	fx.In

	Engine        *gin.Engine
	Log           *zap.Logger
	Domains       domaindomain.Service
	Registrars    registrardomain.Service
	Fees          feedomain.Service
	Queue         queue.Enqueuer
	Limiter       ManualSyncLimiter  `optional:"true"`
	Notifications NotificationLister `optional:"true"`
	Report        PriceReport        `optional:"true"`
}

type Server struct {
	engine        *gin.Engine
	log           *zap.Logger
	domainSvc     domaindomain.Service
	registrarSvc  registrardomain.Service
	feeSvc        feedomain.Service
	queue         queue.Enqueuer
	limiter       ManualSyncLimiter
	notifications NotificationLister
	report        PriceReport
}

func NewServer(p Params) *Server {
	s := &Server{
		engine:        p.Engine,
		log:           p.Log.Named("http"),
		domainSvc:     p.Domains,
		registrarSvc:  p.Registrars,
		feeSvc:        p.Fees,
		queue:         p.Queue,
		limiter:       p.Limiter,
		notifications: p.Notifications,
		report:        p.Report,
	}
	s.RegisterRoutes()
	return s
}

func (s *Server) RegisterRoutes() {
	v1 := s.engine.Group("/v1")

	domains := v1.Group("/domains")
	domains.GET("", s.ListDomains)
	domains.POST("", s.CreateDomain)
	domains.GET("/:id", s.GetDomain)
	domains.PATCH("/:id", s.UpdateDomain)
	domains.POST("/:id/sync", s.ManualSyncRateLimit("domains.sync"), s.SyncDomain)

	registrars := v1.Group("/registrars")
	registrars.GET("", s.ListRegistrars)
	registrars.POST("", s.CreateRegistrar)
	registrars.GET("/:id", s.GetRegistrar)
	registrars.GET("/:id/fees", s.ListRegistrarFees)
	registrars.POST("/:id/credentials", s.SetRegistrarCredentials)
	registrars.POST("/:id/credentials/validate", s.ValidateRegistrarCredentials)
	registrars.POST("/:id/sync-prices", s.ManualSyncRateLimit("registrars.sync_prices"), s.SyncRegistrarPrices)
	registrars.POST("/:id/sync-domains", s.ManualSyncRateLimit("registrars.sync_domains"), s.SyncRegistrarDomains)

	v1.POST("/rdaps/sync", s.ManualSyncRateLimit("rdaps.sync"), s.SyncRdaps)

	reports := v1.Group("/reports")
	reports.GET("/price-compare", s.GetPriceCompare)
	reports.GET("/price-compare.xlsx", s.ExportPriceCompareXLSX)
	reports.GET("/price-compare.pdf", s.ExportPriceComparePDF)

	v1.GET("/notifications", s.ListNotifications)
}
