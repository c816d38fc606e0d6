package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	chargedomain "github.com/lumapag/pixgate/internal/charge/domain"
	"github.com/lumapag/pixgate/internal/config"
	entitlementdomain "github.com/lumapag/pixgate/internal/entitlement/domain"
	"github.com/lumapag/pixgate/internal/reconcile"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogMiddleware(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
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
	engine     *gin.Engine
	cfg        config.Config
	db         *gorm.DB
	log        *zap.Logger
	chargeSvc  chargedomain.Service
	reconciler *reconcile.Engine
	repo       entitlementdomain.Repository
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	ChargeSvc  chargedomain.Service
	Reconciler *reconcile.Engine
	Repo       entitlementdomain.Repository
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		db:         p.DB,
		log:        p.Log,
		chargeSvc:  p.ChargeSvc,
		reconciler: p.Reconciler,
		repo:       p.Repo,
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/v1")

	api.POST("/charges", s.CreateCharge)
	api.GET("/entitlements/:user_id", s.GetEntitlement)
}

func (s *Server) registerWebhookRoutes() {
	hooks := s.engine.Group("/webhooks")

	hooks.POST("/pix", s.HandlePixPostback)
}
