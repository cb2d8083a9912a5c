package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/prepdeck/metering/internal/account/domain"
	"github.com/prepdeck/metering/internal/config"
	"github.com/prepdeck/metering/internal/observability/metrics"
	"github.com/prepdeck/metering/internal/ratelimit"
	usagedomain "github.com/prepdeck/metering/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) {
		s.RegisterRoutes()
	}),
	fx.Invoke(RunHTTP),
)

func NewEngine(log *zap.Logger, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(AccessLog(log))
	r.Use(metrics.GinMiddleware(m))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	return r
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	quota        *config.QuotaHolder
	usageSvc     usagedomain.Service
	accountSvc   accountdomain.Service
	metrics      *metrics.Metrics
	trackLimiter *ratelimit.TrackLimiter
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Quota        *config.QuotaHolder
	UsageSvc     usagedomain.Service
	AccountSvc   accountdomain.Service
	Metrics      *metrics.Metrics        `optional:"true"`
	TrackLimiter *ratelimit.TrackLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http.server"),
		quota:        p.Quota,
		usageSvc:     p.UsageSvc,
		accountSvc:   p.AccountSvc,
		metrics:      p.Metrics,
		trackLimiter: p.TrackLimiter,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterRoutes() {
	api := s.engine.Group("/api", s.ResolveIdentity())

	// -------- Usage --------
	api.POST("/usage/check", s.CheckUsage)
	api.POST("/usage/track", s.TrackRateLimit(), s.TrackUsage)
	api.GET("/usage/status", s.CheckUsage)

	// -------- Plans --------
	api.POST("/plan/trial", s.AuthRequired(), s.StartTrial)
	api.POST("/plan/activate", s.AuthRequired(), s.ActivatePaid)
}

func RunHTTP(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
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
