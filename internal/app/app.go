// Package app assembles storage, services and the HTTP router from a Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"gorm.io/gorm"

	"taskapi/internal/auth"
	"taskapi/internal/cache"
	"taskapi/internal/config"
	"taskapi/internal/db"
	"taskapi/internal/handler"
	"taskapi/internal/repository"
	"taskapi/internal/router"
	"taskapi/internal/service"
)

// Storage bundles the repositories of one backend with its lifecycle hooks.
type Storage struct {
	Users      repository.UserRepository
	Tasks      repository.TaskRepository
	Categories repository.CategoryRepository

	Ping  func(ctx context.Context) error
	Close func(ctx context.Context) error
}

// NewGormStorage exposes a relational database through the GORM repositories.
func NewGormStorage(gdb *gorm.DB) (*Storage, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	return &Storage{
		Users:      repository.NewUserRepository(gdb),
		Tasks:      repository.NewTaskRepository(gdb),
		Categories: repository.NewCategoryRepository(gdb),
		Ping:       sqlDB.PingContext,
		Close:      func(context.Context) error { return sqlDB.Close() },
	}, nil
}

// NewMongoStorage exposes a MongoDB database through the document repositories.
func NewMongoStorage(database *mongo.Database) *Storage {
	return &Storage{
		Users:      repository.NewMongoUserRepository(database),
		Tasks:      repository.NewMongoTaskRepository(database),
		Categories: repository.NewMongoCategoryRepository(database),
		Ping:       func(ctx context.Context) error { return database.Client().Ping(ctx, nil) },
		Close:      func(ctx context.Context) error { return database.Client().Disconnect(ctx) },
	}
}

// OpenStorage connects to the configured backend and prepares its schema.
func OpenStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg.DBDriver == db.DriverMongo {
		database, err := db.ConnectMongo(ctx, cfg.DBURL, cfg.DBName, db.MongoOptions{
			RetryAttempts: 5,
			RetryInterval: 2 * time.Second,
		})
		if err != nil {
			return nil, err
		}
		if cfg.ResetDB {
			slog.Warn("RESET_DB=true detected, dropping database", "database", cfg.DBName)
			if err := database.Drop(ctx); err != nil {
				return nil, fmt.Errorf("drop database: %w", err)
			}
		}
		if err := repository.EnsureMongoIndexes(ctx, database); err != nil {
			return nil, err
		}
		return NewMongoStorage(database), nil
	}

	gdb, err := db.Open(cfg.DBDriver, cfg.DBURL)
	if err != nil {
		return nil, err
	}
	if cfg.ResetDB {
		slog.Warn("RESET_DB=true detected, dropping all tables")
		if err := db.Reset(gdb); err != nil {
			return nil, err
		}
	}
	if err := db.Migrate(gdb); err != nil {
		return nil, err
	}
	return NewGormStorage(gdb)
}

// App is the assembled application.
type App struct {
	Echo       *echo.Echo
	Storage    *Storage
	Cache      *cache.Client
	Auth       service.AuthService
	Users      service.UserService
	Categories service.CategoryService
	Tasks      service.TaskService
}

// Options override the collaborators used by New.
type Options struct {
	// Clock stamps timestamps and validates token expiry. Defaults to UTC wall time.
	Clock service.Clock
}

// New wires services, handlers and routes on top of storage.
func New(cfg *config.Config, storage *Storage, cacheClient *cache.Client, opts Options) (*App, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	categories := service.NewCategoryService(storage.Categories, opts.Clock)
	users := service.NewUserService(storage.Users, cacheClient, opts.Clock)
	tasks := service.NewTaskService(storage.Tasks, categories.Scope(), opts.Clock)
	authService := service.NewAuthService(storage.Users, users, categories, tokens, opts.Clock)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, authService, router.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Users:      handler.NewUserHandler(users),
		Tasks:      handler.NewTaskHandler(tasks),
		Categories: handler.NewCategoryHandler(categories),
	}, router.Options{
		SwaggerHost: cfg.SwaggerHost,
		Health:      storage.Ping,
	})

	return &App{
		Echo:       e,
		Storage:    storage,
		Cache:      cacheClient,
		Auth:       authService,
		Users:      users,
		Categories: categories,
		Tasks:      tasks,
	}, nil
}

// Bootstrap loads storage and cache for cfg and returns the wired App.
func Bootstrap(ctx context.Context, cfg *config.Config) (*App, error) {
	storage, err := OpenStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := cacheClient.Ping(ctx); err != nil {
		slog.Warn("redis unavailable, profile cache disabled until it recovers", "error", err)
	}

	a, err := New(cfg, storage, cacheClient, Options{})
	if err != nil {
		_ = storage.Close(ctx)
		_ = cacheClient.Close()
		return nil, err
	}
	return a, nil
}

// Close releases storage and cache connections.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Storage != nil && a.Storage.Close != nil {
		errs = append(errs, a.Storage.Close(ctx))
	}
	errs = append(errs, a.Cache.Close())
	return errors.Join(errs...)
}
