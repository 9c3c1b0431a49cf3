package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Moderation    ModerationConfig
	Notifications NotificationConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds the shared secret used to verify tokens minted by the identity service.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience []string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ModerationConfig tunes report scoring, the sanction sweep and queue reads.
type ModerationConfig struct {
	SweepInterval      time.Duration
	SweepBatchSize     int
	SweepBatchTimeout  time.Duration
	SuspensionDuration time.Duration
	GeoWeightThreshold float64
	SevereReasons      []string
	StatsCacheTTL      time.Duration
	MaxPageSize        int
	SignalKeyPrefix    string
}

// NotificationConfig configures reporter notification delivery.
type NotificationConfig struct {
	Enabled        bool
	Workers        int
	BufferSize     int
	MaxRetries     int
	RetryDelay     time.Duration
	WebhookURL     string
	WebhookTimeout time.Duration
	WebhookRetries int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:            v.GetString("DB_HOST"),
		Port:            v.GetInt("DB_PORT"),
		User:            v.GetString("DB_USER"),
		Password:        v.GetString("DB_PASSWORD"),
		Name:            v.GetString("DB_NAME"),
		SSLMode:         v.GetString("DB_SSL_MODE"),
		MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: parseDuration(v.GetString("DB_CONN_MAX_LIFETIME"), time.Hour),
		ConnMaxIdleTime: parseDuration(v.GetString("DB_CONN_MAX_IDLE_TIME"), 30*time.Minute),
		ConnectTimeout:  parseDuration(v.GetString("DB_CONNECT_TIMEOUT"), 5*time.Second),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: splitAndTrim(v.GetString("JWT_AUDIENCE")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	threshold := v.GetFloat64("MODERATION_GEO_WEIGHT_THRESHOLD")
	if threshold <= 0 {
		threshold = 0.7
	}
	cfg.Moderation = ModerationConfig{
		SweepInterval:      parseDuration(v.GetString("MODERATION_SWEEP_INTERVAL"), 5*time.Minute),
		SweepBatchSize:     v.GetInt("MODERATION_SWEEP_BATCH_SIZE"),
		SweepBatchTimeout:  parseDuration(v.GetString("MODERATION_SWEEP_BATCH_TIMEOUT"), 10*time.Second),
		SuspensionDuration: parseDuration(v.GetString("MODERATION_SUSPENSION_DURATION"), 7*24*time.Hour),
		GeoWeightThreshold: threshold,
		SevereReasons:      splitAndTrim(strings.ToUpper(v.GetString("MODERATION_SEVERE_REASONS"))),
		StatsCacheTTL:      parseDuration(v.GetString("MODERATION_STATS_CACHE_TTL"), 30*time.Second),
		MaxPageSize:        v.GetInt("MODERATION_MAX_PAGE_SIZE"),
		SignalKeyPrefix:    v.GetString("MODERATION_SIGNAL_KEY_PREFIX"),
	}

	cfg.Notifications = NotificationConfig{
		Enabled:        v.GetBool("ENABLE_NOTIFICATIONS"),
		Workers:        v.GetInt("NOTIFY_WORKERS"),
		BufferSize:     v.GetInt("NOTIFY_BUFFER_SIZE"),
		MaxRetries:     v.GetInt("NOTIFY_MAX_RETRIES"),
		RetryDelay:     parseDuration(v.GetString("NOTIFY_RETRY_DELAY"), 2*time.Second),
		WebhookURL:     v.GetString("NOTIFY_WEBHOOK_URL"),
		WebhookTimeout: parseDuration(v.GetString("NOTIFY_WEBHOOK_TIMEOUT"), 5*time.Second),
		WebhookRetries: v.GetInt("NOTIFY_WEBHOOK_RETRIES"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "trust_enforcement")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", "30m")
	v.SetDefault("DB_CONNECT_TIMEOUT", "5s")

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("MODERATION_SWEEP_INTERVAL", "5m")
	v.SetDefault("MODERATION_SWEEP_BATCH_SIZE", 100)
	v.SetDefault("MODERATION_SWEEP_BATCH_TIMEOUT", "10s")
	v.SetDefault("MODERATION_SUSPENSION_DURATION", "168h")
	v.SetDefault("MODERATION_GEO_WEIGHT_THRESHOLD", 0.7)
	v.SetDefault("MODERATION_SEVERE_REASONS", "HATE_SPEECH,THREAT,VIOLENCE,SELF_HARM,ILLEGAL_CONTENT")
	v.SetDefault("MODERATION_STATS_CACHE_TTL", "30s")
	v.SetDefault("MODERATION_MAX_PAGE_SIZE", 100)
	v.SetDefault("MODERATION_SIGNAL_KEY_PREFIX", "moderation:signals")

	v.SetDefault("ENABLE_NOTIFICATIONS", true)
	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_BUFFER_SIZE", 64)
	v.SetDefault("NOTIFY_MAX_RETRIES", 3)
	v.SetDefault("NOTIFY_RETRY_DELAY", "2s")
	v.SetDefault("NOTIFY_WEBHOOK_URL", "")
	v.SetDefault("NOTIFY_WEBHOOK_TIMEOUT", "5s")
	v.SetDefault("NOTIFY_WEBHOOK_RETRIES", 0)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
