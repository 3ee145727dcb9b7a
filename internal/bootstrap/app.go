package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"dental-captcha/internal/app"
	"dental-captcha/internal/cache"
	"dental-captcha/internal/config"
	"dental-captcha/internal/metrics"
	"dental-captcha/internal/model"
	mysqlClient "dental-captcha/internal/platform/mysql"
	rabbitmqClient "dental-captcha/internal/platform/rabbitmq"
	redisClient "dental-captcha/internal/platform/redis"
	sqliteClient "dental-captcha/internal/platform/sqlite"
	"dental-captcha/internal/repository"
	"dental-captcha/internal/worker"
)

type App struct {
	Config      *config.Config
	DB          *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	GradeWorker *worker.GradeWorker
	Metrics     *metrics.Metrics
	Services    *Services

	StartedAt time.Time
}

type Services struct {
	Auth        *app.AuthService
	Catalog     *app.Catalog
	Sessions    *app.SessionService
	Annotations *app.AnnotationService
	Stats       *app.StatsService
}

// New connects every enabled dependency, migrates the schema and starts the
// grade worker. Redis and RabbitMQ are optional; when disabled the services
// run without a cache and without event publishing.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		Config:    cfg,
		Metrics:   metrics.New(),
		StartedAt: time.Now(),
	}

	db, err := OpenDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.DB = db
	if err := Migrate(db); err != nil {
		_ = a.Close()
		return nil, err
	}

	var statsCache app.StatsCache
	if cfg.Redis.Enabled {
		redisCli, err := redisClient.New(ctx, cfg.Redis)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Redis = redisCli
		statsCache = cache.NewStatsCache(redisCli, time.Duration(cfg.Redis.StatsTTLSeconds)*time.Second)
	}

	var publisher app.SessionEventPublisher
	if cfg.RabbitMQ.Enabled {
		mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.App.Name)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.MQConn = mqConn
		publisher = rabbitmqClient.NewSessionEventPublisher(mqConn, cfg.RabbitMQ.SessionCompletedQueue)
	}

	a.Services = NewServices(cfg, repository.NewStore(db), statsCache, publisher, a.Metrics)

	if a.MQConn != nil {
		gradeWorker := worker.NewGradeWorker(a.MQConn, a.Services.Annotations, cfg.RabbitMQ.GradeResultQueue, logger)
		if err := gradeWorker.Start(ctx); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("start grade worker failed: %w", err)
		}
		a.GradeWorker = gradeWorker
	}

	logger.Info("bootstrap complete",
		"driver", cfg.Database.Driver,
		"redis", a.Redis != nil,
		"rabbitmq", a.MQConn != nil,
	)
	return a, nil
}

// NewServices wires the application services. statsCache and publisher may
// be nil.
func NewServices(
	cfg *config.Config,
	store *repository.Store,
	statsCache app.StatsCache,
	publisher app.SessionEventPublisher,
	m *metrics.Metrics,
) *Services {
	catalog := app.NewCatalog(store, nil)
	return &Services{
		Auth: app.NewAuthService(
			store.Users,
			cfg.Auth.JWTSecret,
			time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
		),
		Catalog:     catalog,
		Sessions:    app.NewSessionService(store, catalog, statsCache, m),
		Annotations: app.NewAnnotationService(store, publisher, statsCache, m),
		Stats:       app.NewStatsService(store, statsCache, cfg.Stats.LeaderboardSize),
	}
}

// OpenDatabase opens the configured driver. logger may be nil.
func OpenDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	switch cfg.Database.Driver {
	case config.DriverMySQL:
		return mysqlClient.New(ctx, cfg.MySQL, logger)
	case config.DriverSQLite:
		return sqliteClient.New(ctx, cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.AllTables()...); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return nil
}

func (a *App) Close() error {
	var closeErr error
	if a.GradeWorker != nil {
		a.GradeWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
