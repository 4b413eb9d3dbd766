package commands

import (
	"context"
	"fmt"

	"till-bot/config"
	"till-bot/internal/adapter/events/kafka"
	"till-bot/internal/adapter/export"
	"till-bot/internal/adapter/storage/csvfile"
	"till-bot/internal/adapter/storage/memory"
	pgStorage "till-bot/internal/adapter/storage/postgres"
	redisStorage "till-bot/internal/adapter/storage/redis"
	"till-bot/internal/core/ports"
	"till-bot/internal/service"
	"till-bot/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// app is the wired object graph shared by the subcommands.
type app struct {
	ledger    *service.LedgerServiceImpl
	operators *service.OperatorServiceImpl
	reports   *service.ReportServiceImpl
	audit     ports.AuditService
	tokens    ports.TokenService // nil without jwt.secret

	rdb     *goredis.Client // nil unless redis is in use
	pool    *pgxpool.Pool   // nil unless the postgres driver is selected
	events  ports.EventPublisher
	health  []ports.HealthChecker
	closers []func()
}

// buildApp connects the configured stores and hydrates the ledger and the
// operator registry. withEvents enables the Kafka publisher.
func buildApp(ctx context.Context, cfg *config.Config, log zerolog.Logger, withEvents bool) (*app, error) {
	a := &app{}
	fail := func(err error) (*app, error) {
		a.close()
		return nil, err
	}

	if cfg.Storage.Driver == config.DriverRedis || cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return fail(fmt.Errorf("connect redis: %w", err))
		}
		a.rdb = rdb
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		a.health = append(a.health, redisStorage.NewHealthCheck(rdb))
	}

	if cfg.Storage.Driver == config.DriverPostgres {
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return fail(fmt.Errorf("connect postgres: %w", err))
		}
		a.pool = pool
		a.closers = append(a.closers, pool.Close)
		if err := pgStorage.EnsureSchema(ctx, pool); err != nil {
			return fail(err)
		}
		a.health = append(a.health, pgStorage.NewHealthCheck(pool))
	}

	movements, operatorRepo, auditRepo, err := a.stores(cfg)
	if err != nil {
		return fail(err)
	}

	if withEvents {
		if brokers := cfg.Kafka.BrokerList(); len(brokers) > 0 {
			pub := kafka.NewPublisher(brokers, cfg.Kafka.Topic)
			a.events = pub
			a.closers = append(a.closers, func() {
				if err := pub.Close(); err != nil {
					log.Warn().Err(err).Msg("failed to close kafka publisher")
				}
			})
			log.Info().Strs("brokers", brokers).Str("topic", cfg.Kafka.Topic).Msg("ledger events enabled")
		}
	}

	a.ledger = service.NewLedgerService(movements, a.events, logger.Component(log, "ledger"))
	if err := a.ledger.Hydrate(ctx); err != nil {
		return fail(err)
	}

	a.operators = service.NewOperatorService(operatorRepo, logger.Component(log, "operators"))
	if err := a.operators.Load(ctx, cfg.Auth.InitialOperator); err != nil {
		return fail(err)
	}

	a.reports = service.NewReportService(
		cfg.Ledger.Currency,
		cfg.Export.Dir,
		cfg.Export.Format,
		logger.Component(log, "reports"),
		export.NewCSV(),
		export.NewPDF(cfg.Telegram.BotName),
	)
	a.audit = service.NewAuditService(auditRepo, logger.Component(log, "audit"))

	if cfg.JWT.Secret != "" {
		a.tokens = service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	}

	return a, nil
}

func (a *app) stores(cfg *config.Config) (ports.MovementLog, ports.OperatorRepository, ports.AuditRepository, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		return pgStorage.NewMovementRepo(a.pool), pgStorage.NewOperatorRepo(a.pool), pgStorage.NewAuditRepo(a.pool), nil
	case config.DriverRedis:
		return redisStorage.NewMovementLog(a.rdb), redisStorage.NewOperatorStore(a.rdb), nil, nil
	case config.DriverCSV:
		store, err := csvfile.NewMovementLog(cfg.Storage.CSVPath)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, memory.NewOperatorRepo(), nil, nil
	}
	return memory.NewMovementLog(), memory.NewOperatorRepo(), nil, nil
}

// limiter returns the Redis rate limit store, or nil when Redis is off.
func (a *app) limiter() ports.RateLimiter {
	if a.rdb == nil {
		return nil
	}
	return redisStorage.NewRateLimitStore(a.rdb)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
