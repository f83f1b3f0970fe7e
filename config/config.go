package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env      string         `yaml:"env"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Booking  BookingConfig  `yaml:"booking"`
	Payment  PaymentConfig  `yaml:"payment"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingTopic       string   `yaml:"booking_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type GatewayConfig struct {
	BaseURL           string `yaml:"base_url"`
	APIKey            string `yaml:"api_key"`
	RequestTimeoutSec int    `yaml:"request_timeout_seconds"`
	MaxAttempts       int    `yaml:"max_attempts"`
	ExpiryHintHours   int    `yaml:"expiry_hint_hours"`
}

func (g GatewayConfig) RequestTimeout() time.Duration {
	return time.Duration(g.RequestTimeoutSec) * time.Second
}

func (g GatewayConfig) ExpiryHint() time.Duration {
	return time.Duration(g.ExpiryHintHours) * time.Hour
}

type BookingConfig struct {
	HoldTTLMinutes      int     `yaml:"hold_ttl_minutes"`
	ScheduleCacheTTLSec int     `yaml:"schedule_cache_ttl_seconds"`
	CheckoutTTLMinutes  int     `yaml:"checkout_ttl_minutes"`
	RemoteFeeMultiplier float64 `yaml:"remote_fee_multiplier"`
}

type PaymentConfig struct {
	AdminFee            int64 `yaml:"admin_fee"`
	PollIntervalSeconds int   `yaml:"poll_interval_seconds"`
}

func (p PaymentConfig) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalSeconds) * time.Second
}

type WorkerConfig struct {
	ExpirationSweepMinutes int `yaml:"expiration_sweep_minutes"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Booking.RemoteFeeMultiplier == 0 {
		c.Booking.RemoteFeeMultiplier = 0.5
	}
	if c.Payment.PollIntervalSeconds == 0 {
		c.Payment.PollIntervalSeconds = 3
	}
	if c.Gateway.RequestTimeoutSec == 0 {
		c.Gateway.RequestTimeoutSec = 5
	}
	if c.Gateway.MaxAttempts == 0 {
		c.Gateway.MaxAttempts = 3
	}
	if c.Gateway.ExpiryHintHours == 0 {
		c.Gateway.ExpiryHintHours = 24
	}
}
