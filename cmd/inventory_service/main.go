// cmd/inventory_service/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/adapter/idempotency"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/adapter/lock"
	messaging "github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/adapter/event"
	gormrepo "github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/adapter/repository/gorm"
	appconfig "github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/config"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/repository"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/service"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/usecase"
	applogger "github.com/hydr0g3nz/ecom_inventory_service/pkg/logger"
	"github.com/hydr0g3nz/ecom_inventory_service/pkg/health"
)

// Repositories holds all repository implementations.
type Repositories struct {
	Products repository.ProductRepository
}

// Services holds the distributed-lock, event-publishing and idempotency
// ports backing the use cases.
type Services struct {
	Lock        service.DistributedLockService
	Events      service.EventPublisherService
	Idempotency service.IdempotencyStore
}

// Usecases holds all usecase implementations.
type Usecases struct {
	Reservations *usecase.ReservationUsecase
	Handlers     *usecase.EventHandlers
}

func main() {
	configPath := flag.String("config", "config.inventory.yaml", "path to config file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := applogger.NewZapLogger()
	log.Info("starting inventory service")

	config, err := appconfig.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("failed to load configuration", "error", err)
	}

	db, err := initDatabase(config.Database)
	if err != nil {
		log.Fatal("failed to initialize database", "error", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("failed to access underlying sql.DB", "error", err)
	}
	defer sqlDB.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect to redis", "error", err)
	}

	repositories := initRepositories(db)
	svcs, err := initServices(config, redisClient, log)
	if err != nil {
		log.Fatal("failed to initialize services", "error", err)
	}
	defer func() {
		if err := svcs.Events.Close(); err != nil {
			log.Error("failed to close event publisher", "error", err)
		}
		if closer, ok := svcs.Lock.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				log.Error("failed to close lock service", "error", err)
			}
		}
	}()

	usecases := initUsecases(config, repositories, svcs, log)

	subscriber := messaging.NewKafkaEventSubscriber(kafkaConfig(config), usecases.Handlers, log)
	defer func() {
		if err := subscriber.Close(); err != nil {
			log.Error("failed to close event subscriber", "error", err)
		}
	}()

	go usecases.Reservations.RunSweeperScheduler(ctx)

	healthSrv := initHealthServer(config, db, config.Kafka.Brokers, redisClient, log)
	go func() {
		log.Info("starting health server", "addr", config.Health.Address)
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("health server failed", "error", err)
		}
	}()

	handleGracefulShutdown(cancel, healthSrv, log)
}

// initDatabase opens the MySQL connection backing the Product repository,
// tuning the pool per config.Database.
func initDatabase(cfg appconfig.DatabaseConfig) (*gorm.DB, error) {
	// clientFoundRows makes UPDATE report matched rows rather than changed
	// rows; the repository's optimistic-version check depends on it to tell
	// "version moved" apart from "write changed no column values".
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local&clientFoundRows=true",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdle)
	sqlDB.SetMaxOpenConns(cfg.MaxOpen)
	sqlDB.SetConnMaxLifetime(cfg.MaxLife)

	return db, nil
}

func initRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Products: gormrepo.NewGormProductRepository(db),
	}
}

func initServices(config *appconfig.Config, redisClient *redis.Client, log applogger.Logger) (*Services, error) {
	lockSvc, err := lock.NewRedisLockService(lock.Config{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	}, config.Lock.WatchdogEnabled, log)
	if err != nil {
		return nil, fmt.Errorf("init lock service: %w", err)
	}

	events := messaging.NewKafkaEventPublisher(kafkaConfig(config), log)

	return &Services{
		Lock:        lockSvc,
		Events:      events,
		Idempotency: idempotency.NewRedisStore(redisClient),
	}, nil
}

func kafkaConfig(config *appconfig.Config) *messaging.KafkaConfig {
	return &messaging.KafkaConfig{
		Brokers:               config.Kafka.Brokers,
		OutboundTopic:         config.Kafka.OutboundTopic,
		OrderCreatedTopic:     config.Kafka.OrderCreatedTopic,
		OrderCancelledTopic:   config.Kafka.OrderCancelledTopic,
		PaymentConfirmedTopic: config.Kafka.PaymentConfirmedTopic,
		DeadLetterTopic:       config.Kafka.DeadLetterTopic,
		ConsumerGroupID:       config.Kafka.ConsumerGroupID,
		MaxDeliveries:         config.DLQ.MaxDeliveries,
	}
}

func initUsecases(config *appconfig.Config, repos *Repositories, svcs *Services, log applogger.Logger) *Usecases {
	reservations := usecase.NewReservationUsecase(repos.Products, svcs.Lock, svcs.Events, config, log, time.Now)
	handlers := usecase.NewEventHandlers(reservations, svcs.Idempotency, 24*time.Hour, log)
	return &Usecases{Reservations: reservations, Handlers: handlers}
}

// initHealthServer wires liveness/readiness checks for the database,
// Kafka brokers and Redis, the only HTTP surface this core exposes.
func initHealthServer(config *appconfig.Config, db *gorm.DB, brokers []string, redisClient *redis.Client, log applogger.Logger) *http.Server {
	h := health.NewHealth(log)

	sqlDB, err := db.DB()
	if err == nil {
		h.RegisterCheck("database", health.DatabaseCheck(sqlDB))
	}
	h.RegisterCheck("kafka", health.KafkaCheck(brokers))
	h.RegisterCheck("redis", health.RedisCheck(redisClient))

	mux := http.NewServeMux()
	h.RegisterHandlers(mux)

	return &http.Server{
		Addr:    config.Health.Address,
		Handler: mux,
	}
}

func handleGracefulShutdown(cancel context.CancelFunc, healthSrv *http.Server, log applogger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down inventory service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("error during health server shutdown", "error", err)
	}

	cancel()
	log.Info("shutdown complete")
}
