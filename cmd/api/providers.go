package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appreservation "github.com/xiebiao/library/internal/application/reservation"
	appuser "github.com/xiebiao/library/internal/application/user"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/reservation"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/events"
	"github.com/xiebiao/library/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/pkg/jwt"
	"github.com/xiebiao/library/pkg/keylock"
	"github.com/xiebiao/library/pkg/logger"
)

// App is what InitializeApp assembles for main.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Engine    *gin.Engine
	Bootstrap *appuser.BootstrapAdmin
}

func newApp(cfg *config.Config, log *zap.Logger, engine *gin.Engine, bootstrap *appuser.BootstrapAdmin) *App {
	return &App{Config: cfg, Logger: log, Engine: engine, Bootstrap: bootstrap}
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.Init(logger.Config{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
	})
}

// storage bundles the repositories of the configured database driver.
type storage struct {
	books        book.Repository
	users        user.Repository
	reservations reservation.Repository
	tx           reservation.Transactor
}

func provideStorage(cfg *config.Config, log *zap.Logger) (*storage, func(), error) {
	if cfg.Database.Driver == "memory" {
		log.Warn("using in-memory storage, data is lost on exit")
		store := memory.NewStore()
		return &storage{
			books:        memory.NewBookRepository(store),
			users:        memory.NewUserRepository(store),
			reservations: memory.NewReservationRepository(store),
			tx:           memory.NewTxManager(store),
		}, func() {}, nil
	}

	db, err := mysql.NewDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return &storage{
		books:        mysql.NewBookRepository(db),
		users:        mysql.NewUserRepository(db),
		reservations: mysql.NewReservationRepository(db),
		tx:           mysql.NewTxManager(db),
	}, cleanup, nil
}

func provideBookRepository(s *storage) book.Repository               { return s.books }
func provideUserRepository(s *storage) user.Repository               { return s.users }
func provideReservationRepository(s *storage) reservation.Repository { return s.reservations }
func provideTransactor(s *storage) reservation.Transactor            { return s.tx }

// provideRedis returns a nil client when redis is disabled.
func provideRedis(cfg *config.Config) (*goredis.Client, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

func provideSessionStore(client *goredis.Client) appuser.SessionStore {
	if client == nil {
		return memory.NewSessionStore()
	}
	return redis.NewSessionStore(client)
}

func provideBlacklist(sessions appuser.SessionStore) middleware.Blacklist {
	return sessions
}

func provideLocker(cfg *config.Config, client *goredis.Client) (reservation.Locker, error) {
	var inner reservation.Locker
	switch cfg.Lock.Driver {
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("lock driver redis requires redis.enabled")
		}
		inner = redis.NewBookLocker(client, cfg.Lock)
	default:
		inner = keylock.New[uint]()
	}
	return appreservation.NewTimedLocker(inner), nil
}

func provideNotifier(cfg *config.Config, log *zap.Logger) (reservation.Notifier, func(), error) {
	if !cfg.MQ.Enabled {
		return events.NoopNotifier{}, func() {}, nil
	}
	notifier, cleanup, err := events.NewMQNotifier(cfg.MQ)
	if err != nil {
		return nil, nil, err
	}
	log.Info("reservation events enabled", zap.String("exchange", cfg.MQ.Exchange))
	return notifier, cleanup, nil
}

func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpire, cfg.JWT.RefreshTokenExpire)
}
