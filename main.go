package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tableorder-service/internal/config"
	"tableorder-service/internal/customer"
	"tableorder-service/internal/db"
	httpapi "tableorder-service/internal/http"
	"tableorder-service/internal/http/handlers"
	"tableorder-service/internal/jobs"
	"tableorder-service/internal/logger"
	"tableorder-service/internal/metrics"
	"tableorder-service/internal/ordering"
	"tableorder-service/internal/queue"
	"tableorder-service/internal/ratelimit"
	"tableorder-service/internal/receipt"
	"tableorder-service/internal/storage"
	"tableorder-service/internal/ws"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	ctx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	if cfg.DBAutoMigrate {
		if err := db.EnsureSchema(ctx, pool); err != nil {
			log.Fatal("schema migration failed", zap.Error(err))
		}
		log.Info("schema applied")
	}

	var customerOpts []customer.Option
	if cfg.RedisURL != "" {
		rdb, err := ratelimit.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			if cfg.Env == "production" {
				log.Fatal("redis connection failed", zap.Error(err))
			}
			log.Warn("redis connection failed; otp rate limiting disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			customerOpts = append(customerOpts, customer.WithLimiter(ratelimit.New(rdb, "otp:", cfg.OTPRateLimit, cfg.OTPRateWindow)))
		}
	} else {
		log.Info("otp rate limiting disabled (REDIS_URL is empty)")
	}
	if cfg.OTPDemoMode {
		log.Warn("otp demo mode enabled; codes are returned in responses")
	}

	customers := customer.NewService(pool, customer.LogSender{Logger: log}, customer.Config{
		OTPExpiry:  cfg.OTPExpiry,
		SessionTTL: cfg.CustomerSessionTTL,
		DemoMode:   cfg.OTPDemoMode,
	}, log, customerOpts...)

	hub := ws.NewHub(cfg.JWTSecret, customers, cfg.WSHeartbeatInterval, log)

	var publisher ordering.Publisher = hub
	if cfg.RabbitMQURL != "" {
		qc, err := queue.New(cfg.RabbitMQURL)
		if err == nil {
			var relay *queue.Relay
			relay, err = queue.StartRelay(ctx, qc, hub, log)
			if err == nil {
				defer qc.Close()
				publisher = relay
				log.Info("realtime relay enabled", zap.String("exchange", queue.RealtimeExchange))
			} else {
				_ = qc.Close()
			}
		}
		if err != nil {
			if cfg.Env == "production" {
				log.Fatal("rabbitmq relay failed", zap.Error(err))
			}
			log.Warn("rabbitmq relay failed; delivering realtime events locally", zap.Error(err))
		}
	} else {
		log.Info("realtime relay disabled (RABBITMQ_URL is empty)")
	}

	var orderOpts []ordering.Option
	if cfg.ObjectStoreEnabled() {
		store, err := storage.NewObjectStore(ctx, storage.Config{
			Endpoint:        cfg.ObjectStoreEndpoint,
			Region:          cfg.ObjectStoreRegion,
			AccessKeyID:     cfg.ObjectStoreAccessKeyID,
			SecretAccessKey: cfg.ObjectStoreSecretAccessKey,
			Bucket:          cfg.ObjectStoreBucket,
			PublicBaseURL:   cfg.ObjectStorePublicBaseURL,
			StorageClass:    cfg.ObjectStoreStorageClass,
		})
		if err != nil {
			log.Warn("object store unavailable; receipts will not be archived", zap.Error(err))
		} else {
			orderOpts = append(orderOpts, ordering.WithReceiptArchiver(receipt.NewArchiver(store, pool, log)))
		}
	}

	orders := ordering.NewService(pool, ordering.NewBroadcaster(publisher, log), log, orderOpts...)

	scheduler, err := jobs.NewScheduler(customers, cfg.HousekeepingEvery, log)
	if err != nil {
		log.Fatal("scheduler setup failed", zap.Error(err))
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Warn("scheduler shutdown failed", zap.Error(err))
		}
	}()

	h := &handlers.Handler{
		DB:        pool,
		Orders:    orders,
		Customers: customers,
		Logger:    log,
		Config:    cfg,
	}
	apiServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(h, hub, metrics.NewRegistry()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("tableorder api ready", zap.String("base", "/api"))
		log.Info("tableorder ws ready", zap.String("base", "/ws"))
		log.Info("tableorder service listening", zap.String("addr", cfg.HTTPAddr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	cancelRun()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxShutdown); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
}
