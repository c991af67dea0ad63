package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lacasadepastel/pdv/internal/adapter/logger"
	"github.com/lacasadepastel/pdv/internal/adapter/postgres"
	"github.com/lacasadepastel/pdv/internal/adapter/rabbitmq"
	"github.com/lacasadepastel/pdv/internal/adapter/redis"
	"github.com/lacasadepastel/pdv/internal/app/ledger"
	"github.com/lacasadepastel/pdv/internal/app/order"
	"github.com/lacasadepastel/pdv/internal/app/pos"
	"github.com/lacasadepastel/pdv/internal/app/shift"
	"github.com/lacasadepastel/pdv/internal/app/sync"
	"github.com/lacasadepastel/pdv/internal/app/tracking"
	"github.com/lacasadepastel/pdv/internal/config"
	"github.com/lacasadepastel/pdv/internal/interfaces"

	amqpAdapter "github.com/lacasadepastel/pdv/internal/adapter/amqp"
	httpAdapter "github.com/lacasadepastel/pdv/internal/adapter/http"
)

func main() {
	mode := flag.String("mode", "", "Service mode: pos, storefront, notifier")
	port := flag.Int("port", 3000, "HTTP port")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	if *mode == "" {
		log.Fatal("--mode flag is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lgr := logger.New(*mode)

	switch *mode {
	case "pos":
		runPanel(ctx, cfg, lgr, *port, true)
	case "storefront":
		runPanel(ctx, cfg, lgr, *port, false)
	case "notifier":
		runNotifier(ctx, cfg, lgr)
	default:
		log.Fatalf("Invalid mode: %s", *mode)
	}
}

// runPanel starts an HTTP service over the shared stores. With staff
// true the full POS panel is mounted, otherwise only the customer
// storefront. The bus and the cache are optional: the register must
// keep selling when either is down.
func runPanel(ctx context.Context, cfg *config.Config, lgr logger.Logger, port int, staff bool) {
	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]interface{}{
		"host": cfg.Database.Host,
		"db":   cfg.Database.Database,
	})

	var (
		publisher interfaces.EventPublisher
		consumer  interfaces.EventConsumer
	)
	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		lgr.Error("rabbitmq_unavailable", "Running without the event bus, polling only", "startup", nil, err)
	} else {
		defer mqConn.Close()
		publisher = rabbitmq.NewPublisher(mqConn)
		consumer = rabbitmq.NewConsumer(mqConn)
		lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
			"host": cfg.RabbitMQ.Host,
		})
	}

	var cache interfaces.Cache
	if c, err := redis.New(ctx, cfg.Redis); err != nil {
		lgr.Error("redis_unavailable", "Running without the local cache", "startup", nil, err)
	} else {
		cache = c
		lgr.Info("redis_connected", "Connected to Redis", "startup", map[string]interface{}{
			"addr": cfg.Redis.Addr,
		})
	}

	productStore := postgres.NewProductStore(db)
	orderStore := postgres.NewOrderStore(db)
	settingsStore := postgres.NewSettingsStore(db)

	ledgerService := ledger.NewService(productStore, cache, publisher, lgr)
	if err := ledgerService.Refresh(ctx); err != nil {
		lgr.Error("catalog_load_degraded", "Starting with cached catalog only", "startup", nil, err)
	}

	orderService := order.NewService(ledgerService, orderStore, settingsStore, cache, publisher, lgr)
	trackingService := tracking.NewService(orderStore)

	coordinator := sync.NewCoordinator(consumer, orderStore, ledgerService, lgr)
	go func() {
		if err := coordinator.Run(ctx); err != nil && ctx.Err() == nil {
			lgr.Error("coordinator_stopped", "Sync coordinator exited", "runtime", nil, err)
		}
	}()

	router := chi.NewRouter()
	router.Use(httpAdapter.RecoveryMiddleware(lgr))
	router.Use(httpAdapter.LoggingMiddleware(lgr))

	storefrontHandler := httpAdapter.NewStorefrontHandler(orderService, trackingService, ledgerService, settingsStore, coordinator, lgr)
	router.Mount("/api", storefrontHandler.Routes())

	if staff {
		shiftService := shift.NewService(settingsStore, cache, lgr)
		shiftService.Recover(ctx)

		posService := pos.NewService(ledgerService, shiftService, settingsStore, cache, publisher, lgr)
		posHandler := httpAdapter.NewPOSHandler(posService, orderService, ledgerService, coordinator, lgr)
		router.Mount("/api/pos", posHandler.Routes())
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	name := "Storefront"
	if staff {
		name = "POS"
	}
	lgr.Info("service_started", fmt.Sprintf("%s service started on port %d", name, port), "startup", map[string]interface{}{
		"port": port,
	})

	go func() {
		<-ctx.Done()

		lgr.Info("shutdown_initiated", fmt.Sprintf("Shutting down %s service", name), "shutdown", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			lgr.Error("shutdown_error", "Error during shutdown", "shutdown", nil, err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		lgr.Error("server_error", "Server error", "runtime", nil, err)
	}
}

// runNotifier consumes the notification feed and prints tickets and
// closure reports. It needs the bus and nothing else.
func runNotifier(ctx context.Context, cfg *config.Config, lgr logger.Logger) {
	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer mqConn.Close()

	lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
		"host": cfg.RabbitMQ.Host,
	})

	consumer := rabbitmq.NewConsumer(mqConn)
	handler := amqpAdapter.NewNotificationHandler(lgr)

	lgr.Info("service_started", "Notifier started", "startup", nil)

	go func() {
		if err := consumer.ConsumeNotifications(ctx, handler.HandleNotification); err != nil && ctx.Err() == nil {
			lgr.Error("consumer_error", "Error consuming notifications", "runtime", nil, err)
		}
	}()

	<-ctx.Done()

	lgr.Info("shutdown_initiated", "Shutting down Notifier", "shutdown", nil)
}
