package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/shopfinder/internal/audit"
	auditdomain "github.com/smallbiznis/shopfinder/internal/audit/domain"
	"github.com/smallbiznis/shopfinder/internal/authorization"
	"github.com/smallbiznis/shopfinder/internal/brand"
	"github.com/smallbiznis/shopfinder/internal/config"
	"github.com/smallbiznis/shopfinder/internal/enforcement"
	enforcementdomain "github.com/smallbiznis/shopfinder/internal/enforcement/domain"
	"github.com/smallbiznis/shopfinder/internal/observability"
	obsmiddleware "github.com/smallbiznis/shopfinder/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/shopfinder/internal/observability/metrics"
	obstracing "github.com/smallbiznis/shopfinder/internal/observability/tracing"
	"github.com/smallbiznis/shopfinder/internal/providers/notify"
	"github.com/smallbiznis/shopfinder/internal/ratelimit"
	"github.com/smallbiznis/shopfinder/internal/shop"
	"github.com/smallbiznis/shopfinder/internal/submission"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	notify.Module,
	shop.Module,
	brand.Module,
	submission.Module,
	ratelimit.Module,
	enforcement.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
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
	r.Use(httpMetrics.Middleware())
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

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger, shutdowner fx.Shutdowner) {
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
					log.Error("http server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine   *gin.Engine
	cfg      config.Config
	log      *zap.Logger
	enforcer enforcementdomain.Service
	authzSvc authorization.Service
	auditSvc auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	Enforcement enforcementdomain.Service
	AuthzSvc    authorization.Service
	AuditSvc    auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:   p.Gin,
		cfg:      p.Cfg,
		log:      p.Log.Named("http.server"),
		enforcer: p.Enforcement,
		authzSvc: p.AuthzSvc,
		auditSvc: p.AuditSvc,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.AuthRequired())

	api.POST("/shops", s.CreateShop)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.Use(s.AuthRequired())

	admin.GET("/brands", s.authorize(authorization.ObjectBrand, authorization.ActionBrandView), s.ListBrands)
	admin.GET("/brands/:brandKey", s.authorize(authorization.ObjectBrand, authorization.ActionBrandView), s.GetBrand)
	admin.PATCH("/brands/:brandKey", s.authorize(authorization.ObjectBrand, authorization.ActionBrandUpdate), s.UpdateBrand)

	admin.POST("/brand-score/preview", s.authorize(authorization.ObjectBrandScore, authorization.ActionBrandScorePreview), s.PreviewBrandScore)

	admin.GET("/submissions", s.authorize(authorization.ObjectSubmission, authorization.ActionSubmissionView), s.ListSubmissions)
	admin.POST("/submissions/:id/review", s.authorize(authorization.ObjectSubmission, authorization.ActionSubmissionReview), s.ReviewSubmission)

	admin.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
