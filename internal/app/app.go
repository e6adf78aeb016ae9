package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/config"
	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/encryption"
	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/repo"
	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/service"
	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/telemetry"
	"github.com/w0nsdoof/CloudDevelopment-midterm/migrations"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
)

type App struct {
	cfg    config.Config
	log    *slog.Logger
	db     *pgxpool.Pool
	redis  *redis.Client
	tel    telemetry.Telemetry
	svc    *service.TodoService
	router *gin.Engine
}

// New wires the service. Optional collaborators (Postgres, Redis, the age
// identity) that fail to initialise are logged and left disabled; only a
// broken configuration is an error.
func New(cfg config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{cfg: cfg, log: log}

	gw := a.newGateway()
	a.tel = a.newTelemetry()

	store := repo.NewMemTodoRepo(nil)
	a.svc = service.NewTodoService(store, gw, a.tel, service.Options{
		DenyList: cfg.Security.DenyList,
		Logger:   log,
	})

	router, err := newRouter(cfg, log, a.svc, a.tel)
	if err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}
	a.router = router

	f := a.svc.Features()
	log.Info("app ready",
		"variant", cfg.App.Variant,
		"encryption", f.Encryption,
		"security_logging", f.SecurityLogging,
		"monitoring", f.Monitoring,
		"deny_list", f.DenyList,
	)
	return a, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// Close flushes telemetry and releases the Redis and Postgres clients.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.tel != nil {
		if err := a.tel.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	return errors.Join(errs...)
}

func (a *App) newGateway() encryption.Gateway {
	if !a.cfg.Security.Encryption {
		return encryption.Noop{}
	}
	gw, err := encryption.NewAge(a.cfg.Security.AgeIdentity, a.log)
	if err != nil {
		a.log.Warn("encryption disabled", "error", err)
		return encryption.Noop{}
	}
	if a.cfg.Security.AgeIdentity == "" {
		a.log.Warn("no age identity configured, generated an ephemeral one", "recipient", gw.Recipient())
	}
	return gw
}

func (a *App) newTelemetry() telemetry.Telemetry {
	var (
		events  []telemetry.EventSink
		metrics []telemetry.MetricSink
	)

	if a.cfg.Security.Logging {
		events = append(events, telemetry.NewSlogEvents(a.log))
		if a.cfg.PG.DSN != "" {
			if err := a.connectPostgres(); err != nil {
				a.log.Warn("postgres security event store disabled", "error", err)
			} else {
				events = append(events, telemetry.NewRepoEvents(repo.NewPGEventRepo(a.db)))
			}
		}
	}

	if a.cfg.Security.Monitoring {
		if a.cfg.Redis.Addr != "" {
			rdb, err := newRedis(a.cfg.Redis)
			if err != nil {
				a.log.Warn("redis metric sink disabled", "error", err)
			} else {
				a.redis = rdb
				metrics = append(metrics, telemetry.NewRedisMetrics(rdb, a.cfg.Redis.MetricSamples))
			}
		}
		if len(metrics) == 0 {
			metrics = append(metrics, telemetry.NewSlogMetrics(a.log))
		}
	}

	if len(events) == 0 && len(metrics) == 0 {
		return telemetry.Noop{}
	}
	return telemetry.NewHooks(telemetry.Options{
		Events:    events,
		Metrics:   metrics,
		Timeout:   a.cfg.Telemetry.Timeout.Duration(),
		QueueSize: a.cfg.Telemetry.QueueSize,
		Logger:    a.log,
	})
}

func (a *App) connectPostgres() error {
	db, err := newPostgres(a.cfg.PG.DSN)
	if err != nil {
		return err
	}
	if err := runMigrations(a.cfg.PG.DSN); err != nil {
		db.Close()
		return err
	}
	a.db = db
	return nil
}

func newPostgres(dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg parse config: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}

	return pool, nil
}

func newRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return rdb, nil
}

func runMigrations(dsn string) error {
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("goose open db: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
