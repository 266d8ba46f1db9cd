package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront-service/internal/service"
	"storefront-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger is a dependency checked by the readiness endpoint
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wires the services the HTTP layer serves
type Options struct {
	Catalog  *service.CatalogService
	Orders   *service.OrderService
	Resolver *service.DeliveryResolver
	Gate     *service.AccessGate
	Gateway  *service.PaystackGateway
	Auth     *service.SellerAuthenticator
	Blobs    service.BlobFetcher
	Checks   map[string]Pinger
	BaseURL  string
}

// Handler contains HTTP handlers
type Handler struct {
	catalog  *service.CatalogService
	orders   *service.OrderService
	resolver *service.DeliveryResolver
	gate     *service.AccessGate
	gateway  *service.PaystackGateway
	auth     *service.SellerAuthenticator
	blobs    service.BlobFetcher
	checks   map[string]Pinger
	baseURL  string
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(opts Options) *Handler {
	return &Handler{
		catalog:  opts.Catalog,
		orders:   opts.Orders,
		resolver: opts.Resolver,
		gate:     opts.Gate,
		gateway:  opts.Gateway,
		auth:     opts.Auth,
		blobs:    opts.Blobs,
		checks:   opts.Checks,
		baseURL:  opts.BaseURL,
		logger:   util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(h.requestLogger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/stores/:username", h.getStorefront)
		v1.GET("/products", h.exploreProducts)
		v1.GET("/products/:id", h.getProduct)

		v1.POST("/checkout/callback", h.checkoutCallback)
		v1.POST("/checkout/abort", h.checkoutAbort)
		v1.POST("/webhooks/paystack", h.paystackWebhook)
	}

	dashboard := v1.Group("/dashboard", h.requireSeller())
	{
		dashboard.GET("/products", h.listSellerProducts)
		dashboard.POST("/products", h.createProduct)
		dashboard.PUT("/products/:id", h.updateProduct)
		dashboard.PATCH("/products/:id/active", h.setProductActive)
		dashboard.GET("/orders", h.listSellerOrders)
		dashboard.GET("/summary", h.sellerSummary)
	}

	view := router.Group("/view/:reference")
	{
		view.GET("", h.viewLocked)
		view.POST("/unlock", h.viewUnlock)
		view.GET("/content", h.viewContent)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every backing dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, dep := range h.checks {
		if err := dep.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"details": failed,
			"time":    time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError maps service errors onto HTTP statuses
func (h *Handler) respondError(c *gin.Context, err error) {
	status, message := http.StatusInternalServerError, "Internal server error"

	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		status, message = http.StatusUnauthorized, "Authentication required"
	case errors.Is(err, service.ErrForbidden):
		status, message = http.StatusForbidden, "Not allowed"
	case errors.Is(err, service.ErrInvalidProduct), errors.Is(err, service.ErrInvalidPayment):
		status, message = http.StatusBadRequest, "Invalid request"
	case errors.Is(err, service.ErrProductNotFound):
		status, message = http.StatusNotFound, "Product not found"
	case errors.Is(err, service.ErrStoreNotFound):
		status, message = http.StatusNotFound, "Store not found"
	case errors.Is(err, service.ErrOrderNotFound):
		status, message = http.StatusNotFound, "Order not found"
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
