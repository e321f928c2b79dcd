package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"taskapi/internal/app"
	"taskapi/internal/config"
	"taskapi/internal/logging"
	"taskapi/internal/repository"
	"taskapi/internal/service"
)

// Restores the default categories of every registered user.
func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		slog.Error("config load", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogFormat, cfg.LogLevel, "service", "taskapi-seed")

	slog.Info("starting seed script")
	storage, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = storage.Close(ctx) }()
	slog.Info("connected to database", "driver", cfg.DBDriver)

	users, created, err := restoreDefaults(ctx, storage.Users, service.NewCategoryService(storage.Categories, nil))
	if err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}
	slog.Info("seed completed", "users", users, "categories_created", created)
}

// restoreDefaults provisions the missing default categories for each user.
func restoreDefaults(ctx context.Context, repo repository.UserRepository, categories service.CategoryService) (users int, created int, err error) {
	list, err := repo.List(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list users: %w", err)
	}
	for _, user := range list {
		n, err := categories.ProvisionDefaults(ctx, user.ID)
		if err != nil {
			return users, created, fmt.Errorf("user %s: %w", user.ID, err)
		}
		if n > 0 {
			slog.Info("restored default categories", "user_id", user.ID, "created", n)
		}
		users++
		created += n
	}
	return users, created, nil
}
