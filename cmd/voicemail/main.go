package main

import (
	"database/sql"
	"log/slog"
	"net/http"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/jeana-hines/group-voice-messaging/internal/api"
	"github.com/jeana-hines/group-voice-messaging/internal/cache"
	"github.com/jeana-hines/group-voice-messaging/internal/client"
	"github.com/jeana-hines/group-voice-messaging/internal/config"
	"github.com/jeana-hines/group-voice-messaging/internal/ivr"
	"github.com/jeana-hines/group-voice-messaging/internal/notify"
	"github.com/jeana-hines/group-voice-messaging/internal/repo"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAll()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	db, err := sql.Open("pgx", cfg.Database.PostgresURL)
	if err != nil {
		slog.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	users := repo.NewPostgresUserRepo(db)
	messages := repo.NewPostgresMessageRepo(db)

	var dispatcher *notify.Dispatcher
	var notifier ivr.Notifier
	if cfg.Notify.Enabled {
		notifications := repo.NewPostgresNotificationRepo(db)

		var receipts notify.ReceiptCache
		if cfg.Redis.Enabled {
			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Address,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			receipts = cache.NewRedisReceiptCache(rdb, cfg.Redis.TTL)
		}

		gateway := client.NewSMSGatewayClient(cfg.Notify.WebhookURL)
		dispatcher, err = notify.NewDispatcher(cfg.Notify.Interval, cfg.Notify.BatchSize, notifications, gateway, receipts)
		if err != nil {
			slog.Error("failed to create dispatcher", "err", err)
			os.Exit(1)
		}
		dispatcher.Start()
		defer dispatcher.Stop()

		notifier = notify.NewEnqueuer(notifications, users)
	}

	mux := http.NewServeMux()
	ivr.Register(mux, ivr.NewHandler(users, messages, notifier))
	api.Register(mux, api.NewHandler(dispatcher, messages))

	slog.Info("voicemail server starting",
		"addr", cfg.Server.Address,
		"notify", cfg.Notify.Enabled,
		"redis", cfg.Redis.Enabled,
	)

	if err := http.ListenAndServe(cfg.Server.Address, loggingMiddleware(mux)); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
