package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	_ "github.com/w0nsdoof/CloudDevelopment-midterm/docs"
	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/config"
	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/handlers"
	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/scope"
	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/service"
	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/telemetry"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"
)

func newRouter(cfg config.Config, log *slog.Logger, svc *service.TodoService, tel telemetry.Telemetry) (*gin.Engine, error) {
	for _, o := range cfg.CORS.AllowedOrigins {
		if !validOrigin(o) {
			return nil, fmt.Errorf("CORS_ALLOWED_ORIGINS: %q must start with http:// or https://", o)
		}
	}

	r := gin.New()
	r.Use(requestID(), recovery(log), requestLogger(log))
	if cfg.Secure() {
		r.Use(securityHeaders())
	}
	r.Use(corsAllowList(cfg.CORS.AllowedOrigins), requestTelemetry(tel))

	Setup(r, cfg, svc)
	return r, nil
}

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, cfg config.Config, svc *service.TodoService) {
	statusHandler := handlers.NewStatusHandler(svc, cfg.Secure())
	todoHandler := handlers.NewTodoHandler(svc, cfg.Secure())

	r.GET("/", statusHandler.Home)
	r.GET("/health", healthHandler(cfg))
	r.GET("/version", versionHandler(cfg))
	r.GET("/swagger-doc.json", swaggerDocHandler())
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(http.StatusFound, "/swagger/index.html") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("/swagger-doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
	))

	api := r.Group("/api")
	api.GET("/status", statusHandler.Status)

	registerTodoRoutes(api.Group("", scope.ClientScope()), todoHandler)
}

func healthHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "env": cfg.App.Env})
	}
}

func versionHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": cfg.App.Version})
	}
}

func swaggerDocHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := swag.ReadDoc("swagger")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
	}
}

func registerTodoRoutes(api *gin.RouterGroup, h *handlers.TodoHandler) {
	api.OPTIONS("/todos", h.Options)
	api.GET("/todos", h.List)
	api.POST("/todos", h.Create)
}

func validOrigin(o string) bool {
	return strings.HasPrefix(o, "http://") || strings.HasPrefix(o, "https://")
}
