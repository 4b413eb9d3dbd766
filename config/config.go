package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Export    ExportConfig    `mapstructure:"export"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

type TelegramConfig struct {
	Token         string `mapstructure:"token"`
	WebhookSecret string `mapstructure:"webhook_secret"` // X-Telegram-Bot-Api-Secret-Token, empty = unchecked
	BotName       string `mapstructure:"bot_name"`
	WebhookURL    string `mapstructure:"webhook_url"` // public URL registered with setWebhook on start, empty = skip
	APIBase       string `mapstructure:"api_base"`
}

type AuthConfig struct {
	InitialOperator string `mapstructure:"initial_operator"`
	OpenBalance     bool   `mapstructure:"open_balance"` // get-balance allowed for non-operators
}

type LedgerConfig struct {
	Currency string `mapstructure:"currency"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverCSV      = "csv"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type StorageConfig struct {
	Driver  string `mapstructure:"driver"`
	CSVPath string `mapstructure:"csv_path"`
}

type ExportConfig struct {
	Dir    string `mapstructure:"dir"`    // close-and-reset writes a statement here, empty = disabled
	Format string `mapstructure:"format"` // csv, pdf
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"` // dedup + rate limiting; the redis storage driver enables it implicitly
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"` // comma separated, empty = events disabled
	Topic   string `mapstructure:"topic"`
}

// BrokerList splits the comma separated broker string.
func (k KafkaConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type RateLimitConfig struct {
	Commands int64         `mapstructure:"commands"` // per caller per window, 0 = disabled
	Window   time.Duration `mapstructure:"window"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Validate reports configuration that cannot work at runtime.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverPostgres, DriverRedis:
	case DriverCSV:
		if c.Storage.CSVPath == "" {
			return errors.New("storage.csv_path is required for the csv driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.Export.Format {
	case "csv", "pdf":
	default:
		return fmt.Errorf("unknown export.format %q", c.Export.Format)
	}
	if c.Telegram.WebhookURL != "" && c.Telegram.Token == "" {
		return errors.New("telegram.token is required to register telegram.webhook_url")
	}
	if strings.TrimSpace(c.Auth.InitialOperator) == "" {
		return errors.New("auth.initial_operator is required")
	}
	return nil
}

// Load reads configuration from a .env file, a YAML file and environment variables.
// Environment variables override file values. Prefix: TILL_.
// Nested keys use underscore: TILL_TELEGRAM_TOKEN, TILL_STORAGE_DRIVER, etc.
// The bare TOKEN variable is accepted for the bot token as well.
func Load(path string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()

	// Defaults
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.webhook_secret", "")
	v.SetDefault("telegram.bot_name", "")
	v.SetDefault("telegram.webhook_url", "")
	v.SetDefault("telegram.api_base", "https://api.telegram.org")
	v.SetDefault("auth.initial_operator", "@elanyx")
	v.SetDefault("auth.open_balance", true)
	v.SetDefault("ledger.currency", "EUR")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("storage.driver", DriverMemory)
	v.SetDefault("storage.csv_path", "data/movements.csv")
	v.SetDefault("export.dir", "")
	v.SetDefault("export.format", "csv")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "till")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 5)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "till.events")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "12h")
	v.SetDefault("jwt.issuer", "till-bot")
	v.SetDefault("ratelimit.commands", 30)
	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: TILL_STORAGE_DRIVER -> storage.driver
	v.SetEnvPrefix("TILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("telegram.token", "TILL_TELEGRAM_TOKEN", "TOKEN"); err != nil {
		return nil, fmt.Errorf("binding token env: %w", err)
	}

	// Read config file (not required; env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	cfg.Export.Format = strings.ToLower(strings.TrimSpace(cfg.Export.Format))
	if cfg.Storage.Driver == DriverRedis {
		cfg.Redis.Enabled = true
	}

	return &cfg, nil
}
