package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"till-bot/internal/adapter/chat"
	httpHandler "till-bot/internal/adapter/http/handler"
	redisStorage "till-bot/internal/adapter/storage/redis"
	"till-bot/internal/adapter/telegram"
	"till-bot/pkg/logger"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram webhook and dashboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Msg("Starting till bot")

	a, err := buildApp(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer a.close()

	dispatcher := chat.NewDispatcher(chat.Deps{
		Ledger:    a.ledger,
		Operators: a.operators,
		Reports:   a.reports,
		Tokens:    a.tokens,
		Audit:     a.audit,
		Limiter:   a.limiter(),
	}, chat.Options{
		BotName:     cfg.Telegram.BotName,
		Currency:    cfg.Ledger.Currency,
		OpenBalance: cfg.Auth.OpenBalance,
		RateLimit:   cfg.RateLimit.Commands,
		RateWindow:  cfg.RateLimit.Window,
	}, logger.Component(log, "chat"))

	deps := httpHandler.RouterDeps{
		Dispatcher:     dispatcher,
		Ledger:         a.ledger,
		Reports:        a.reports,
		Operators:      a.operators,
		TokenSvc:       a.tokens,
		RateLimitStore: a.limiter(),
		HealthCheckers: a.health,
		AuditSvc:       a.audit,
		WebhookSecret:  cfg.Telegram.WebhookSecret,
		Currency:       cfg.Ledger.Currency,
		ExportFormat:   cfg.Export.Format,
		Mode:           cfg.Server.Mode,
		Logger:         logger.Component(log, "http"),
	}
	if a.rdb != nil {
		deps.UpdateDeduper = redisStorage.NewUpdateDeduper(a.rdb)
		deps.ReplyCache = redisStorage.NewReplyCache(a.rdb)
	}
	if a.tokens == nil {
		log.Warn().Msg("jwt.secret not set, dashboard and /token disabled")
	}

	var bot *telegram.Client
	if cfg.Telegram.Token != "" {
		bot = telegram.NewClient(cfg.Telegram.APIBase, cfg.Telegram.Token, &http.Client{Timeout: 10 * time.Second}, logger.Component(log, "telegram"))
		deps.Sender = bot
	} else {
		log.Warn().Msg("telegram.token not set, replies over 4096 characters will be truncated")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpHandler.SetupRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if cfg.Telegram.WebhookURL != "" && bot != nil {
		if err := bot.SetWebhook(ctx, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
			log.Error().Err(err).Msg("failed to register telegram webhook")
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-quit:
	case <-ctx.Done():
	}
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
	return nil
}
