package handler

import (
	"till-bot/internal/adapter/http/middleware"
	"till-bot/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Dispatcher     ports.CommandDispatcher
	UpdateDeduper  ports.UpdateDeduper // nil = no redelivery check
	ReplyCache     ports.ReplyCache    // nil = no reply replay
	Sender         ports.MessageSender // nil = long replies are truncated
	Ledger         ports.LedgerService
	Reports        ports.ReportService
	Operators      ports.OperatorService // nil = token holders are not rechecked
	TokenSvc       ports.TokenService    // nil = dashboard disabled
	RateLimitStore ports.RateLimiter     // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	WebhookSecret  string
	Currency       string
	ExportFormat   string
	Mode           string
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Mode != "" {
		gin.SetMode(deps.Mode)
	}
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20))

	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimitStore == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	telegram := NewTelegramHandler(deps.Dispatcher, deps.UpdateDeduper, deps.ReplyCache, deps.Sender, deps.Logger)
	r.POST("/webhook/telegram",
		middleware.WebhookSecret(deps.WebhookSecret, deps.Logger),
		rl("webhook"),
		telegram.Webhook,
	)

	if deps.TokenSvc != nil {
		ledger := NewLedgerHandler(deps.Ledger, deps.Reports, deps.Currency, deps.ExportFormat)
		v1 := r.Group("/api/v1/ledger", middleware.JWTAuth(deps.TokenSvc, deps.Operators, deps.Logger))
		{
			v1.GET("/balance", rl("dashboard"), ledger.Balance)
			v1.GET("/report", rl("dashboard"), ledger.Report)
			v1.GET("/export", rl("export"), ledger.Export)
		}
	}

	return r
}
