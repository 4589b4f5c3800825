// Package api builds the HTTP engine: middleware chain, root endpoints and
// the versioned API surface.
package api

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"whatsflow/pkg/config"
	"whatsflow/pkg/handlers"
	"whatsflow/pkg/metrics"
	"whatsflow/pkg/middleware"
	"whatsflow/pkg/router"
)

// V1 is the name recorded for the first API version.
const V1 = "v1"

type options struct {
	routers      []router.Mountable
	mapperOpts   []middleware.MapperOption
	auditEnabled func() bool
	levels       handlers.LevelController
	rotation     handlers.RotationReporter
}

// Option configures NewRouter
type Option func(*options)

// WithRouters replaces the default v1 sub-routers.
func WithRouters(routers ...router.Mountable) Option {
	return func(o *options) {
		o.routers = routers
	}
}

// WithMapperOptions passes options through to the error mapper.
func WithMapperOptions(opts ...middleware.MapperOption) Option {
	return func(o *options) {
		o.mapperOpts = append(o.mapperOpts, opts...)
	}
}

// WithAuditState reports the audit sink state to the health check.
func WithAuditState(fn func() bool) Option {
	return func(o *options) {
		o.auditEnabled = fn
	}
}

// WithLevelController exposes the console log level on the system router.
func WithLevelController(lc handlers.LevelController) Option {
	return func(o *options) {
		o.levels = lc
	}
}

// WithRotationReporter exposes the audit rotation job on /system/status.
func WithRotationReporter(r handlers.RotationReporter) Option {
	return func(o *options) {
		o.rotation = r
	}
}

// NewRouter assembles the engine. A composition failure is returned and
// must stop startup.
func NewRouter(cfg *config.Config, log *zap.Logger, opts ...Option) (*gin.Engine, error) {
	if cfg == nil || cfg.App == nil {
		return nil, fmt.Errorf("%w: app", config.ErrMissingRequired)
	}
	if log == nil {
		log = zap.NewNop()
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if cfg.Debug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	svc := handlers.NewHandlerService(cfg,
		handlers.WithAuditState(o.auditEnabled),
		handlers.WithLevelController(o.levels),
		handlers.WithRotationReporter(o.rotation),
	)
	if o.routers == nil {
		o.routers = []router.Mountable{handlers.NewSystemRouter(svc)}
	}

	mapper := middleware.NewErrorMapper(cfg.Debug(), log, o.mapperOpts...)

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	if err := engine.SetTrustedProxies(trustedProxies(cfg)); err != nil {
		return nil, fmt.Errorf("%w: trusted proxies: %w", config.ErrInvalidValue, err)
	}
	engine.Use(
		middleware.RequestID(mapper.Generator()),
		middleware.AccessLog(log),
		middleware.Recovery(mapper),
		cors.New(corsConfig(cfg)),
		metrics.Middleware(),
		middleware.ErrorHandler(mapper),
	)
	engine.NoRoute(middleware.NoRoute(mapper))
	engine.NoMethod(middleware.NoMethod(mapper))

	engine.GET("/health", svc.HealthCheck)
	engine.GET("/metrics", metrics.Handler())

	composer := router.NewComposer(engine, log)
	if err := composer.Mount(cfg.V1Prefix(), router.Version{Name: V1, Routers: o.routers}); err != nil {
		return nil, fmt.Errorf("mount %s routers: %w", V1, err)
	}

	return engine, nil
}

// trustedProxies returns nil when none are configured, so X-Forwarded-For
// is ignored and the client IP is the peer address.
func trustedProxies(cfg *config.Config) []string {
	if cfg.API == nil || len(cfg.API.TrustedProxies) == 0 {
		return nil
	}
	return cfg.API.TrustedProxies
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders: []string{middleware.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}

	var origins []string
	if cfg.API != nil {
		origins = cfg.API.CORSAllowedOrigins
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
