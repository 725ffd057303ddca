package router

import (
	"net/http"

	"github.com/erp/bomengine/internal/infrastructure/logger"
	"github.com/erp/bomengine/internal/interfaces/http/dto"
	"github.com/erp/bomengine/internal/interfaces/http/handler"
	"github.com/erp/bomengine/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handlers served by the API
type Handlers struct {
	Materials  *handler.MaterialHandler
	Recipes    *handler.RecipeHandler
	BOM        *handler.BOMHandler
	Strategies *handler.StrategyHandler
	Health     *handler.HealthHandler
}

// EngineConfig holds the cross-cutting settings of the HTTP engine
type EngineConfig struct {
	Logger         *zap.Logger
	ServiceName    string
	TracingEnabled bool
	Meter          metric.Meter
	Profiling      bool
	CORS           middleware.CORSConfig
	MaxBodySize    int64
	TrustedProxies []string
	// WriteLimit, when set, guards every route that changes state
	WriteLimit gin.HandlerFunc
}

// NewEngine builds the gin engine with the middleware chain and all routes
func NewEngine(cfg EngineConfig, h Handlers) (*gin.Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	engine.HandleMethodNotAllowed = true
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(dto.ErrCodeNotFound, "Route not found", c.GetString(middleware.RequestIDKey)))
	})

	// CORS runs ahead of the tenant check so preflight requests, which carry
	// no tenant header, are answered.
	engine.Use(
		logger.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.CORSWithConfig(cfg.CORS),
		middleware.Secure(),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.ServiceName,
			Enabled:     cfg.TracingEnabled,
			SkipPaths:   []string{"/health"},
		}),
		logger.GinMiddleware(cfg.Logger),
		middleware.TenantMiddleware(),
		middleware.TracingAttributeInjector(),
	)
	if cfg.Meter != nil {
		engine.Use(middleware.HTTPMetrics(cfg.Meter))
	}
	if cfg.Profiling {
		engine.Use(middleware.Profiling())
	}
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}

	if h.Health != nil {
		engine.GET("/health", h.Health.Health)
	}

	r := NewRouter(engine)
	for _, g := range domainGroups(h, cfg.WriteLimit) {
		r.Register(g)
	}
	r.Setup()
	return engine, nil
}

// domainGroups declares the versioned API routes
func domainGroups(h Handlers, writeLimit gin.HandlerFunc) []*DomainGroup {
	write := func(fn gin.HandlerFunc) []gin.HandlerFunc {
		if writeLimit == nil {
			return []gin.HandlerFunc{fn}
		}
		return []gin.HandlerFunc{writeLimit, fn}
	}

	var groups []*DomainGroup

	if h.Materials != nil {
		materials := NewDomainGroup("materials", "/materials")
		materials.POST("/bulk", write(h.Materials.BulkCreate)...)
		materials.GET("", h.Materials.List)
		materials.GET("/:id", h.Materials.GetByID)
		materials.DELETE("/:id", write(h.Materials.Delete)...)
		materials.POST("/:id/stock-mutations", write(h.Materials.MutateStock)...)
		materials.GET("/:id/transactions", h.Materials.History)
		materials.GET("/:id/ledger/verify", h.Materials.VerifyLedger)
		groups = append(groups, materials)
	}

	if h.Recipes != nil {
		recipes := NewDomainGroup("recipes", "/recipes")
		recipes.POST("", write(h.Recipes.Create)...)
		recipes.GET("/:id", h.Recipes.GetByID)
		recipes.POST("/:id/activate", write(h.Recipes.Activate)...)
		recipes.POST("/:id/deactivate", write(h.Recipes.Deactivate)...)
		groups = append(groups, recipes)

		products := NewDomainGroup("products", "/products")
		products.GET("/:id/recipes", h.Recipes.ListByProduct)
		groups = append(groups, products)
	}

	if h.BOM != nil {
		bom := NewDomainGroup("bom", "/bom")
		bom.POST("/requirements", h.BOM.Requirements)
		bom.POST("/availability", h.BOM.Availability)
		bom.POST("/availability/bulk", h.BOM.BulkAvailability)
		bom.POST("/plan", h.BOM.Plan)
		if h.Strategies != nil {
			bom.GET("/strategies", h.Strategies.ListStrategies)
		}
		groups = append(groups, bom)
	}

	return groups
}
