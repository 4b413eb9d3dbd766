package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"till-bot/internal/core/domain"
	"till-bot/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that records successful statement
// downloads from the dashboard.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		action := mapPathToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		actor := ""
		if id, exists := c.Get(CtxOperatorID); exists {
			actor = domain.DisplayOperator(fmt.Sprintf("%v", id))
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"query":     c.Request.URL.RawQuery,
			"status":    c.Writer.Status(),
			"client_ip": c.ClientIP(),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:        uuid.New(),
			Actor:     actor,
			Action:    action,
			Outcome:   domain.AuditOutcomeSuccess,
			Command:   c.Request.Method + " " + c.Request.URL.Path,
			Details:   string(details),
			CreatedAt: time.Now(),
		})
	}
}

func mapPathToAction(route, method string) domain.AuditAction {
	if method == http.MethodGet && route == "/api/v1/ledger/export" {
		return domain.AuditActionExport
	}
	return ""
}
