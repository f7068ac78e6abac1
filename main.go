package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"freshcart-api/config"
	"freshcart-api/database"
	"freshcart-api/handlers"
	"freshcart-api/logger"
	"freshcart-api/middleware"
	"freshcart-api/queue"
	"freshcart-api/services/auth"
	"freshcart-api/services/checkout"
	"freshcart-api/services/coupon"
	"freshcart-api/services/email"
	"freshcart-api/services/notification"
	"freshcart-api/services/pincode"
	"freshcart-api/services/session"
	"freshcart-api/worker"
)

const (
	jobQueueName       = "freshcart_jobs"
	sessionPruneEvery  = 5 * time.Minute
	sessionIdleTimeout = 30 * time.Minute
)

func main() {
	cfg, warnings := config.Load()

	log, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	for _, w := range warnings {
		log.Warn(w)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	log.Info("configuration loaded", cfg.LogFields()...)

	// Amounts go out as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	var db *database.Connection
	for retries := 0; retries < 5; retries++ {
		db, err = database.NewConnection(cfg.Database, log)
		if err == nil {
			break
		}
		retryDelay := time.Duration(retries+1) * time.Second
		log.Warn("failed to connect to database, retrying",
			zap.Int("attempt", retries+1), zap.Duration("retry_in", retryDelay), zap.Error(err))
		time.Sleep(retryDelay)
	}
	if err != nil {
		log.Fatal("failed to connect to database after retries", zap.Error(err))
	}
	defer db.Close()
	log.Info("connected to database")

	jobQueue, err := queue.NewQueue(cfg.Redis.URL, jobQueueName, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer jobQueue.Close()
	log.Info("connected to redis")

	mailer := email.NewSMTPService(cfg.SMTP)
	notifier := notification.NewNotifier(jobQueue)

	notificationWorker := worker.NewWorker(jobQueue, mailer, cfg.Store.OperatorEmail, log)
	notificationWorker.Start(cfg.Redis.WorkerConcurrency)
	log.Info("started notification worker", zap.Int("concurrency", cfg.Redis.WorkerConcurrency))

	sessions := session.NewManager(session.NewRedisStore(jobQueue.Client(), cfg.Session.MaxAge), log)

	validator := coupon.NewValidator(db, log)
	checkoutService := checkout.NewService(checkout.Deps{
		Settings:  db,
		Orders:    db,
		Validator: validator,
		Applier:   coupon.NewApplier(validator),
		Recorder:  coupon.NewRecorder(db, log),
		Gate:      pincode.NewGate(db, cfg.Store.PinPrefix, log),
		Requester: pincode.NewRequester(db, notifier, log),
		Profiles:  db,
		Notifier:  notifier,
		Logger:    log,
	})
	unwatch := checkoutService.Watch(sessions)
	defer unwatch()

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	go sessions.RunPruner(bgCtx, sessionPruneEvery, sessionIdleTimeout)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, db)
	resolver := handlers.NewSessionResolver(handlers.NewCookieStore(handlers.CookieOptions{
		Secret: cfg.Session.Secret,
		Domain: cfg.Session.Domain,
		MaxAge: cfg.Session.MaxAge,
		Secure: cfg.Session.Secure,
	}), sessions, log)

	router := handlers.NewRouter(handlers.Routes{
		Products:      handlers.NewProductHandler(db, log),
		Cart:          handlers.NewCartHandler(resolver, db, log),
		Checkout:      handlers.NewCheckoutHandler(resolver, checkoutService, log),
		Orders:        handlers.NewOrderHandler(resolver, checkoutService, db, log),
		Auth:          handlers.NewAuthHandler(jwtService, log),
		Health:        handlers.NewHealthHandler(db, jobQueue),
		Tokens:        jwtService,
		RateLimiter:   middleware.NewRateLimiter(jobQueue.Client(), log),
		AllowedOrigin: cfg.Server.AllowedOrigin,
		Logger:        log,
	})

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	stopBackground()
	notificationWorker.Stop()

	log.Info("server exited properly")
}
