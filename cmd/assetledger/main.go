package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"assetledger/internal/audit"
	"assetledger/internal/common/database"
	"assetledger/internal/common/logger"
	"assetledger/internal/config"
	"assetledger/internal/domain"
	httpapi "assetledger/internal/http"
	"assetledger/internal/notify"
	"assetledger/internal/repository"
	"assetledger/internal/service"
	"assetledger/internal/store"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "assetledger")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// DB 未就绪时退回内存仓储，联测不被 DB 阻塞
	var db *sql.DB
	var txm repository.TxManager
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			txm = repository.NewPostgresTxManager(db)
			log.Info("DB enabled for assetledger")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory stores", zap.Error(err))
		}
	}
	if txm == nil {
		txm = repository.NewMemoryTxManager()
	}

	var redisClient *redis.Client
	var kv store.KV = store.NopKV{}
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		kv = store.NewRedisKV(redisClient)
	}
	recorder := audit.NewRecorder(log, redisClient, cfg.AuditStream)

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.Notify.Enabled && cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.Timeout, log)
	}

	// TODO: swap AllowAllPolicy for the gateway-backed policy once the
	// authorization service exposes its location-access endpoint.
	var policy domain.AccessPolicy = domain.AllowAllPolicy{}

	locations := service.NewLocationService(txm, policy, log)
	catalog := service.NewCatalogService(txm, log)
	certificates := service.NewCertificateService(txm, policy, recorder, log)
	instances := service.NewInstanceService(txm, policy, recorder, log)
	transfers := service.NewTransferService(txm, policy, recorder, notifier, log)
	inventory := service.NewInventoryService(txm, kv, log)

	router := httpapi.NewRouter(log)
	router.RegisterLocationRoutes(httpapi.NewLocationHandler(locations, log))
	router.RegisterCatalogRoutes(httpapi.NewCatalogHandler(catalog, log))
	router.RegisterCertificateRoutes(httpapi.NewCertificateHandler(certificates, log))
	router.RegisterInstanceRoutes(httpapi.NewInstanceHandler(instances, catalog, log))
	router.RegisterTransferRoutes(httpapi.NewTransferHandler(transfers, log))
	router.RegisterInventoryRoutes(httpapi.NewInventoryHandler(inventory, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}
