package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration for the inventory core.
// There is no persisted state layout and no CLI surface within the
// core's boundary; the repository owns persistence and every setting
// here is read once at startup.
type Config struct {
	Health      HealthConfig      `yaml:"health"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Reservation ReservationConfig `yaml:"reservation"`
	Lock        LockConfig        `yaml:"lock"`
	Sweeper     SweeperConfig     `yaml:"sweeper"`
	Retry       RetryConfig       `yaml:"retry"`
	DLQ         DLQConfig         `yaml:"dlq"`
	LowStock    LowStockConfig    `yaml:"low_stock"`
}

// HealthConfig governs the plain net/http liveness/readiness endpoints;
// the core has no REST API surface otherwise (out of scope per spec).
type HealthConfig struct {
	Address string `yaml:"address"`
}

// DatabaseConfig contains database configuration for the Product
// repository.
type DatabaseConfig struct {
	User     string        `yaml:"user"`
	Password string        `yaml:"password"`
	Host     string        `yaml:"host"`
	Port     string        `yaml:"port"`
	Name     string        `yaml:"name"`
	MaxIdle  int           `yaml:"maxIdleConnections"`
	MaxOpen  int           `yaml:"maxOpenConnections"`
	MaxLife  time.Duration `yaml:"maxLifetime"`
}

// RedisConfig backs the distributed lock and the idempotency store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// KafkaConfig names the inbound/outbound topics and consumer group.
type KafkaConfig struct {
	Brokers               []string `yaml:"brokers"`
	OutboundTopic         string   `yaml:"outbound_topic"`
	OrderCreatedTopic     string   `yaml:"order_created_topic"`
	OrderCancelledTopic   string   `yaml:"order_cancelled_topic"`
	PaymentConfirmedTopic string   `yaml:"payment_confirmed_topic"`
	DeadLetterTopic       string   `yaml:"dead_letter_topic"`
	ConsumerGroupID       string   `yaml:"consumer_group_id"`
}

// ReservationConfig holds reservation.defaultTtl.
type ReservationConfig struct {
	DefaultTTL time.Duration `yaml:"default_ttl"`
}

// LockConfig holds lock.waitTimeout, lock.leaseTimeout, lock.watchdog.enabled.
type LockConfig struct {
	WaitTimeout     time.Duration `yaml:"wait_timeout"`
	LeaseTimeout    time.Duration `yaml:"lease_timeout"`
	WatchdogEnabled bool          `yaml:"watchdog_enabled"`
}

// SweeperConfig holds sweeper.interval and sweeper.pageSize.
type SweeperConfig struct {
	Interval time.Duration `yaml:"interval"`
	PageSize int           `yaml:"page_size"`
}

// RetryConfig holds retry.optimistic.maxAttempts and
// retry.optimistic.backoffBase.
type RetryConfig struct {
	OptimisticMaxAttempts int           `yaml:"optimistic_max_attempts"`
	OptimisticBackoffBase time.Duration `yaml:"optimistic_backoff_base"`
}

// DLQConfig holds dlq.maxDeliveries.
type DLQConfig struct {
	MaxDeliveries int `yaml:"max_deliveries"`
}

// LowStockConfig holds lowStock.defaultThreshold.
type LowStockConfig struct {
	DefaultThreshold int32 `yaml:"default_threshold"`
}

// defaults returns the configuration table from the spec's Configuration
// section, used as the baseline before the YAML file and environment
// overrides are applied.
func defaults() *Config {
	return &Config{
		Health: HealthConfig{
			Address: "127.0.0.1:8091",
		},
		Database: DatabaseConfig{
			User:    "root",
			Password: "pass",
			Host:    "localhost",
			Port:    "3306",
			Name:    "ecom_inventory_service",
			MaxIdle: 25,
			MaxOpen: 25,
			MaxLife: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			DB:   0,
		},
		Kafka: KafkaConfig{
			Brokers:               []string{"localhost:9092"},
			OutboundTopic:         "inventory.events",
			OrderCreatedTopic:     "order.created",
			OrderCancelledTopic:   "order.cancelled",
			PaymentConfirmedTopic: "payment.confirmed",
			DeadLetterTopic:       "inventory.events.dlq",
			ConsumerGroupID:       "inventory_service",
		},
		Reservation: ReservationConfig{
			DefaultTTL: 30 * time.Minute,
		},
		Lock: LockConfig{
			WaitTimeout:     3 * time.Second,
			LeaseTimeout:    5 * time.Second,
			WatchdogEnabled: true,
		},
		Sweeper: SweeperConfig{
			Interval: 5 * time.Minute,
			PageSize: 100,
		},
		Retry: RetryConfig{
			OptimisticMaxAttempts: 3,
			OptimisticBackoffBase: 50 * time.Millisecond,
		},
		DLQ: DLQConfig{
			MaxDeliveries: 3,
		},
		LowStock: LowStockConfig{
			DefaultThreshold: 0,
		},
	}
}

// LoadConfig loads configuration from a YAML file layered over defaults,
// then applies environment overrides.
func LoadConfig(configPath string) (*Config, error) {
	config := defaults()

	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	overrideWithEnv(config)
	return config, nil
}

// overrideWithEnv overrides config with environment variables, following
// the INVENTORY_* naming convention used across the service family.
func overrideWithEnv(config *Config) {
	if v := os.Getenv("INVENTORY_DB_USER"); v != "" {
		config.Database.User = v
	}
	if v := os.Getenv("INVENTORY_DB_PASSWORD"); v != "" {
		config.Database.Password = v
	}
	if v := os.Getenv("INVENTORY_DB_HOST"); v != "" {
		config.Database.Host = v
	}
	if v := os.Getenv("INVENTORY_DB_PORT"); v != "" {
		config.Database.Port = v
	}
	if v := os.Getenv("INVENTORY_DB_NAME"); v != "" {
		config.Database.Name = v
	}
	if v := os.Getenv("INVENTORY_REDIS_ADDR"); v != "" {
		config.Redis.Addr = v
	}
	if v := os.Getenv("INVENTORY_KAFKA_BROKERS"); v != "" {
		config.Kafka.Brokers = []string{v}
	}
	if v := os.Getenv("INVENTORY_HEALTH_ADDR"); v != "" {
		config.Health.Address = v
	}
}
