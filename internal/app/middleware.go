package app

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	dom "github.com/w0nsdoof/CloudDevelopment-midterm/internal/domain"
	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/telemetry"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerRequestID   = "X-Request-ID"
	contextKeyRequest = "request_id"
)

var (
	suspiciousAgents = []string{"bot", "crawler", "scanner"}

	corsMethods = []string{"GET", "POST", "OPTIONS", "PUT", "DELETE"}
	corsHeaders = []string{"Content-Type", "Authorization"}
)

// requestID propagates X-Request-ID or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(contextKeyRequest, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// requestLogger writes one line per request after it is served.
func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.LogAttrs(c.Request.Context(), slog.LevelInfo, "http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
			slog.String("request_id", c.GetString(contextKeyRequest)),
		)
	}
}

// recovery turns a panic into a bare 500 and logs it.
func recovery(log *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		log.ErrorContext(c.Request.Context(), "panic while serving request",
			"panic", recovered,
			"path", c.Request.URL.Path,
			"request_id", c.GetString(contextKeyRequest),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}

// securityHeaders sets the hardening headers on every response.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// corsAllowList applies CORS only for the listed origins. Requests from any
// other origin are served without CORS headers instead of being rejected.
// Allowed origins get the method and header lists on every response, not
// only on preflight.
func corsAllowList(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return func(c *gin.Context) { c.Next() }
	}
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	allowMethods := strings.Join(corsMethods, ", ")
	allowHeaders := strings.Join(corsHeaders, ", ")
	handler := cors.New(cors.Config{
		AllowOrigins:              origins,
		AllowMethods:              corsMethods,
		AllowHeaders:              corsHeaders,
		AllowCredentials:          true,
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusOK,
	})
	return func(c *gin.Context) {
		if _, ok := allowed[c.GetHeader("Origin")]; !ok {
			c.Next()
			return
		}
		if c.Request.Method != http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", allowMethods)
			c.Header("Access-Control-Allow-Headers", allowHeaders)
		}
		handler(c)
	}
}

// requestTelemetry attaches request details for security events, counts the
// request and flags crawler-like user agents.
func requestTelemetry(tel telemetry.Telemetry) gin.HandlerFunc {
	return func(c *gin.Context) {
		info := dom.RequestInfo{
			Method:    c.Request.Method,
			URL:       requestURL(c.Request),
			UserAgent: c.Request.UserAgent(),
			RemoteIP:  c.ClientIP(),
			RequestID: c.GetString(contextKeyRequest),
		}
		ctx := telemetry.WithRequestInfo(c.Request.Context(), info)
		c.Request = c.Request.WithContext(ctx)

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		tel.RecordMetric(ctx, telemetry.MetricIncomingRequests, 1, map[string]string{
			"method":   c.Request.Method,
			"endpoint": endpoint,
		})

		ua := strings.ToLower(info.UserAgent)
		for _, p := range suspiciousAgents {
			if strings.Contains(ua, p) {
				tel.SecurityEvent(ctx, telemetry.EventSuspiciousUserAgent, map[string]any{
					"user_agent": info.UserAgent,
					"client_ip":  info.RemoteIP,
				})
				break
			}
		}
		c.Next()
	}
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
