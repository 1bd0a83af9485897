package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Upstox   UpstoxConfig   `yaml:"upstox"`
	Screener ScreenerConfig `yaml:"screener"`
	Trading  TradingConfig  `yaml:"trading"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds the report cache configuration
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Brokers       []string `yaml:"brokers"`
	EventsTopic   string   `yaml:"events_topic"`
	RequestsTopic string   `yaml:"requests_topic"`
	GroupID       string   `yaml:"group_id"`
}

// UpstoxConfig holds upstream API credentials and client settings
type UpstoxConfig struct {
	APIKey       string        `yaml:"api_key"`
	APISecret    string        `yaml:"api_secret"`
	RedirectURL  string        `yaml:"redirect_url"`
	TokenURL     string        `yaml:"token_url"`
	DialogURL    string        `yaml:"dialog_url"`
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	HeavyTimeout time.Duration `yaml:"heavy_timeout"`
}

// ScreenerConfig holds screening settings
type ScreenerConfig struct {
	Concurrency      int    `yaml:"concurrency"`
	HistoryDays      int    `yaml:"history_days"`
	IntradayInterval int    `yaml:"intraday_interval"`
	UniverseFile     string `yaml:"universe_file"`
	SeedUniverse     bool   `yaml:"seed_universe"`
	RefreshEnabled   bool   `yaml:"refresh_enabled"`
	RefreshCron      string `yaml:"refresh_cron"`
	RetentionCron    string `yaml:"retention_cron"`
	RetentionDays    int    `yaml:"retention_days"`
}

// TradingConfig holds option strategy settings
type TradingConfig struct {
	BuyBufferPct    float64 `yaml:"buy_buffer_pct"`
	ProfitTargetPct float64 `yaml:"profit_target_pct"`
	Concurrency     int     `yaml:"concurrency"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults returns the configuration used when nothing is overridden
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Host: "0.0.0.0",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			DBName:   "screener",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			EventsTopic:   "screener-events",
			RequestsTopic: "screener-requests",
			GroupID:       "stock-screener",
		},
		Upstox: UpstoxConfig{
			BaseURL:      "https://api.upstox.com",
			Timeout:      5 * time.Second,
			HeavyTimeout: 15 * time.Second,
		},
		Screener: ScreenerConfig{
			Concurrency:      50,
			HistoryDays:      200,
			IntradayInterval: 1,
			UniverseFile:     "config/universe.yaml",
			SeedUniverse:     true,
			RefreshCron:      "0 */15 * * * 1-5",
			RetentionCron:    "0 0 2 * * *",
			RetentionDays:    400,
		},
		Trading: TradingConfig{
			BuyBufferPct:    0.2,
			ProfitTargetPct: 2.5,
			Concurrency:     5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by CONFIG_FILE, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnv("DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)

	c.Redis.Enabled = getEnvBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)
	c.Redis.TTL = getEnvDuration("REDIS_TTL", c.Redis.TTL)

	c.Kafka.Enabled = getEnvBool("KAFKA_ENABLED", c.Kafka.Enabled)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = splitList(brokers)
	}
	c.Kafka.EventsTopic = getEnv("KAFKA_EVENTS_TOPIC", c.Kafka.EventsTopic)
	c.Kafka.RequestsTopic = getEnv("KAFKA_REQUESTS_TOPIC", c.Kafka.RequestsTopic)
	c.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", c.Kafka.GroupID)

	c.Upstox.APIKey = getEnv("UPSTOX_API_KEY", c.Upstox.APIKey)
	c.Upstox.APISecret = getEnv("UPSTOX_API_SECRET", c.Upstox.APISecret)
	c.Upstox.RedirectURL = getEnv("UPSTOX_REDIRECT_URL", c.Upstox.RedirectURL)
	c.Upstox.TokenURL = getEnv("UPSTOX_TOKEN_URL", c.Upstox.TokenURL)
	c.Upstox.DialogURL = getEnv("UPSTOX_DIALOG_URL", c.Upstox.DialogURL)
	c.Upstox.BaseURL = getEnv("UPSTOX_BASE_URL", c.Upstox.BaseURL)
	c.Upstox.Timeout = getEnvDuration("UPSTOX_TIMEOUT", c.Upstox.Timeout)
	c.Upstox.HeavyTimeout = getEnvDuration("UPSTOX_HEAVY_TIMEOUT", c.Upstox.HeavyTimeout)

	c.Screener.Concurrency = getEnvInt("SCREENER_CONCURRENCY", c.Screener.Concurrency)
	c.Screener.HistoryDays = getEnvInt("SCREENER_HISTORY_DAYS", c.Screener.HistoryDays)
	c.Screener.IntradayInterval = getEnvInt("SCREENER_INTRADAY_INTERVAL", c.Screener.IntradayInterval)
	c.Screener.UniverseFile = getEnv("SCREENER_UNIVERSE_FILE", c.Screener.UniverseFile)
	c.Screener.SeedUniverse = getEnvBool("SCREENER_SEED_UNIVERSE", c.Screener.SeedUniverse)
	c.Screener.RefreshEnabled = getEnvBool("SCREENER_REFRESH_ENABLED", c.Screener.RefreshEnabled)
	c.Screener.RefreshCron = getEnv("SCREENER_REFRESH_CRON", c.Screener.RefreshCron)
	c.Screener.RetentionCron = getEnv("SCREENER_RETENTION_CRON", c.Screener.RetentionCron)
	c.Screener.RetentionDays = getEnvInt("SCREENER_RETENTION_DAYS", c.Screener.RetentionDays)

	c.Trading.BuyBufferPct = getEnvFloat("TRADING_BUY_BUFFER_PCT", c.Trading.BuyBufferPct)
	c.Trading.ProfitTargetPct = getEnvFloat("TRADING_PROFIT_TARGET_PCT", c.Trading.ProfitTargetPct)
	c.Trading.Concurrency = getEnvInt("TRADING_CONCURRENCY", c.Trading.Concurrency)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Screener.Concurrency <= 0 {
		errs = append(errs, errors.New("screener concurrency must be positive"))
	}
	if c.Screener.HistoryDays <= 0 {
		errs = append(errs, errors.New("screener history days must be positive"))
	}
	if c.Screener.SeedUniverse && c.Screener.UniverseFile == "" {
		errs = append(errs, errors.New("universe file is required when seeding"))
	}
	if c.Trading.Concurrency <= 0 {
		errs = append(errs, errors.New("trading concurrency must be positive"))
	}
	if c.Trading.BuyBufferPct < 0 || c.Trading.ProfitTargetPct < 0 {
		errs = append(errs, errors.New("trading percentages must not be negative"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka brokers are required when kafka is enabled"))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
