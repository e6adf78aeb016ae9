package handlers

import (
	"fmt"
	"net/http"

	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/dto"
	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	// msgStatusFailed is only reachable when the store cannot report its
	// counters; the in-memory store always can.
	msgStatusFailed = "status unavailable"

	legacyVersion = "2.0"
	secureVersion = "3.0-security"

	legacyHome = "<html><body><h1>Hello, GCP</h1></body></html>"
	secureHome = `
    <html><body>
        <h1>Hello, GCP - Secure Todo App</h1>
        <p>✅ KMS Encryption: %s</p>
        <p>✅ Security Logging: %s</p>
        <p>✅ Performance Monitoring: %s</p>
        <p><a href="/api/status">Check API Status</a></p>
    </body></html>
    `
)

var (
	legacyFeatures = []string{"user_separation", "cors_support", "client_id"}
	secureFeatures = []string{"user_separation", "cors_support", "encryption", "security_monitoring"}
)

// StatusHandler serves the landing page and /api/status.
type StatusHandler struct {
	svc    *service.TodoService
	secure bool
}

func NewStatusHandler(svc *service.TodoService, secure bool) *StatusHandler {
	return &StatusHandler{svc: svc, secure: secure}
}

// Home godoc
// @Summary      Landing page
// @Produce      html
// @Success      200  {string}  string
// @Router       / [get]
func (h *StatusHandler) Home(c *gin.Context) {
	body := legacyHome
	if h.secure {
		f := h.svc.Features()
		body = fmt.Sprintf(secureHome, enabled(f.Encryption), enabled(f.SecurityLogging), enabled(f.Monitoring))
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(body))
}

// Status godoc
// @Summary      Service status and counters
// @Tags         status
// @Produce      json
// @Success      200  {object}  dto.StatusResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /status [get]
func (h *StatusHandler) Status(c *gin.Context) {
	st, err := h.svc.Status(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgStatusFailed})
		return
	}
	resp := dto.StatusResponse{
		Status:           "operational",
		Features:         legacyFeatures,
		UsersCount:       st.Clients,
		GlobalTodosCount: st.GlobalTodos,
		Version:          legacyVersion,
	}
	if h.secure {
		f := h.svc.Features()
		resp.SecurityFeatures = &dto.SecurityFeatures{
			KMSEncryption:         f.Encryption,
			SecurityLogging:       f.SecurityLogging,
			PerformanceMonitoring: f.Monitoring,
		}
		resp.Features = secureFeatures
		resp.Version = secureVersion
		h.svc.AuditStatus(c.Request.Context(), map[string]any{
			"status":             resp.Status,
			"security_features":  resp.SecurityFeatures,
			"features":           resp.Features,
			"users_count":        resp.UsersCount,
			"global_todos_count": resp.GlobalTodosCount,
			"version":            resp.Version,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func enabled(on bool) string {
	if on {
		return "Enabled"
	}
	return "Disabled"
}
