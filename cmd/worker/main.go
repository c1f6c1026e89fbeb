package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/prompthive/server/internal/assets"
	"github.com/prompthive/server/internal/backup"
	"github.com/prompthive/server/internal/config"
	"github.com/prompthive/server/internal/database"
	"github.com/prompthive/server/internal/queue"
	"github.com/prompthive/server/internal/queue/workers"
	"github.com/prompthive/server/internal/storage"
	"github.com/prompthive/server/internal/store/postgres"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	st := postgres.New(db)
	assetSvc := assets.NewService(storage.NewLocalStorage(cfg.Uploads.Dir))
	backupSvc := backup.NewService(st, assetSvc, cfg.Backup.Dir)

	client := queue.NewClient(cfg.Redis)
	defer client.Close()

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"default": 1,
		},
	})

	registry := queue.NewHandlersRegistry()
	backupWorker := workers.NewBackupWorker(backupSvc, st, client)
	registry.Register(queue.TypeBackupRun, asynq.HandlerFunc(backupWorker.ProcessRun))
	registry.Register(queue.TypeBackupSweep, asynq.HandlerFunc(backupWorker.ProcessSweep))

	// Periodic sweep: one task per schedule tick, which fans out a backup:run
	// per user.
	scheduler := asynq.NewScheduler(redisOpt, nil)
	if _, err := scheduler.Register(cfg.Backup.Cron, asynq.NewTask(queue.TypeBackupSweep, nil)); err != nil {
		slog.Error("failed to register backup sweep schedule", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			slog.Error("scheduler error", "error", err)
			os.Exit(1)
		}
	}()

	go func() {
		slog.Info("starting worker", "concurrency", 5, "backup_cron", cfg.Backup.Cron)
		if err := srv.Run(registry.Mux()); err != nil {
			slog.Error("worker error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	scheduler.Shutdown()
	srv.Shutdown()
	slog.Info("worker stopped")
}
