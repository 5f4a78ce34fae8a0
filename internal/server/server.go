package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	campaigndomain "github.com/smallbiznis/blastwave/internal/campaign/domain"
	"github.com/smallbiznis/blastwave/internal/config"
	"github.com/smallbiznis/blastwave/internal/observability"
	obsmiddleware "github.com/smallbiznis/blastwave/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/blastwave/internal/observability/metrics"
	obstracing "github.com/smallbiznis/blastwave/internal/observability/tracing"
	"github.com/smallbiznis/blastwave/internal/ratelimit"
	webhookdomain "github.com/smallbiznis/blastwave/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
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

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	CampaignSvc    campaigndomain.Service
	WebhookSvc     webhookdomain.Service
	ProcessLimiter *ratelimit.ProcessLimiter
	ObsMetrics     *obsmetrics.Metrics `optional:"true"`
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	campaignSvc    campaigndomain.Service
	webhookSvc     webhookdomain.Service
	processLimiter *ratelimit.ProcessLimiter
	obsMetrics     *obsmetrics.Metrics
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		log:            p.Log.Named("http.server"),
		genID:          p.GenID,
		campaignSvc:    p.CampaignSvc,
		webhookSvc:     p.WebhookSvc,
		processLimiter: p.ProcessLimiter,
		obsMetrics:     p.ObsMetrics,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.POST("/campaigns/:id/process", s.processCampaign)
	s.engine.GET("/webhooks/whatsapp", s.verifyWebhook)
	s.engine.POST("/webhooks/whatsapp", s.receiveWebhook)
}

func run(lc fx.Lifecycle, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":8080",
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
