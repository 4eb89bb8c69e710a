package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/keshsri/tinylinker/internal/config"
	"github.com/keshsri/tinylinker/pkg/logger"
)

// NewRouter configures the Gin router with middleware and routes
func NewRouter(h *LinkHandler, cfg *config.Config, log *logger.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// c.ClientIP only honours X-Forwarded-For from these peers
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies, trusting none", "error", err)
		_ = router.SetTrustedProxies(nil)
	}

	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(CORSMiddleware(cfg))
	router.Use(SecurityHeadersMiddleware())
	if cfg.RequestTimeout > 0 {
		router.Use(TimeoutMiddleware(cfg.RequestTimeout))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "tinylinker",
			"backend": cfg.StoreBackend,
		})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/shorten", h.ShortenURL)
		v1.GET("/urls/:code", h.GetURLInfo)
		v1.GET("/urls/:code/analytics", h.GetAnalytics)
	}

	router.GET("/:code", h.RedirectURL)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "endpoint not found",
		})
	})

	return router
}
