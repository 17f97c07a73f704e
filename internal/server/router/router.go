package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockroom/internal/server/handlers"
)

// Handlers groups the HTTP adapters mounted by the router.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Inventory *handlers.InventoryHandler
	Reports   *handlers.ReportHandler
}

// New wires the Gin engine with required routes and middlewares. A nil
// gatherer leaves /metrics unmounted.
func New(h Handlers, gatherer prometheus.Gatherer, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.GET("/session", h.Auth.Session)
	auth.POST("/sign-in", h.Auth.SignIn)
	auth.POST("/sign-up", h.Auth.SignUp)
	auth.POST("/sign-out", h.Auth.SignOut)

	products := api.Group("/products")
	products.GET("", h.Inventory.ListProducts)
	products.POST("", h.Inventory.CreateProduct)
	products.GET("/:id", h.Inventory.GetProduct)
	products.PUT("/:id", h.Inventory.UpdateProduct)
	products.DELETE("/:id", h.Inventory.DeleteProduct)
	products.POST("/:id/outbound", h.Inventory.Outbound)
	products.POST("/:id/reconcile", h.Inventory.Reconcile)
	products.POST("/:id/count", h.Inventory.CommitCount)

	categories := api.Group("/categories")
	categories.GET("", h.Inventory.ListCategories)
	categories.POST("", h.Inventory.CreateCategory)
	categories.PATCH("/:id", h.Inventory.RenameCategory)
	categories.DELETE("/:id", h.Inventory.DeleteCategory)

	api.GET("/activities", h.Inventory.ListActivities)
	api.POST("/refresh", h.Inventory.Refresh)
	api.POST("/scan", h.Inventory.EnterScan)
	api.DELETE("/scan", h.Inventory.ExitScan)

	api.GET("/dashboard", h.Reports.Dashboard)
	api.GET("/reports", h.Reports.Report)
	api.GET("/insights", h.Reports.Insights)
	api.POST("/snapshots", h.Reports.CaptureSnapshot)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
