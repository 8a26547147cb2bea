package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/bizadmin/backend/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env     string
	Port    string
	GinMode string

	DatabaseURL string
	DB          struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
	}

	JWTSecret          string
	JWTExpirationHours int

	CorsOrigins []string

	Cache struct {
		Backend       string
		TTL           time.Duration
		SweepInterval time.Duration
		RedisAddr     string
		RedisPassword string
		RedisDB       int
	}

	Reminders struct {
		RedispatchWindow     time.Duration
		SweepToken           string
		ExpiringContractDays int
	}
}

// Load reads .env (if present), an optional configs/config.yaml and the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found, using environment variables", nil)
	}

	v := viper.New()
	v.SetConfigFile("configs/config.yaml")
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("env", "development")
	v.SetDefault("port", "8080")
	v.SetDefault("gin_mode", "debug")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_name", "bizadmin")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("jwt_expiration_hours", 24)
	v.SetDefault("cors_origins", "http://localhost:3000")
	v.SetDefault("cache_backend", "memory")
	v.SetDefault("cache_ttl", "30s")
	v.SetDefault("cache_sweep_interval", "60s")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("reminder_redispatch_window", "0s")
	v.SetDefault("expiring_contract_days", 30)

	if err := v.ReadInConfig(); err != nil {
		logger.Debug("No config file loaded", map[string]interface{}{"error": err.Error()})
	}

	cfg := &Config{
		Env:                v.GetString("env"),
		Port:               v.GetString("port"),
		GinMode:            v.GetString("gin_mode"),
		DatabaseURL:        v.GetString("database_url"),
		JWTSecret:          v.GetString("jwt_secret"),
		JWTExpirationHours: v.GetInt("jwt_expiration_hours"),
		CorsOrigins:        splitList(v.GetString("cors_origins")),
	}
	cfg.DB.Host = v.GetString("db_host")
	cfg.DB.Port = v.GetString("db_port")
	cfg.DB.User = v.GetString("db_user")
	cfg.DB.Password = v.GetString("db_password")
	cfg.DB.Name = v.GetString("db_name")
	cfg.DB.SSLMode = v.GetString("db_sslmode")

	cfg.Cache.Backend = strings.ToLower(v.GetString("cache_backend"))
	cfg.Cache.TTL = v.GetDuration("cache_ttl")
	cfg.Cache.SweepInterval = v.GetDuration("cache_sweep_interval")
	cfg.Cache.RedisAddr = v.GetString("redis_addr")
	cfg.Cache.RedisPassword = v.GetString("redis_password")
	cfg.Cache.RedisDB = v.GetInt("redis_db")

	cfg.Reminders.RedispatchWindow = v.GetDuration("reminder_redispatch_window")
	cfg.Reminders.SweepToken = v.GetString("sweep_token")
	cfg.Reminders.ExpiringContractDays = v.GetInt("expiring_contract_days")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that have no safe default
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("CACHE_BACKEND must be one of memory, redis, none; got %q", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	if c.Reminders.RedispatchWindow < 0 {
		return fmt.Errorf("REMINDER_REDISPATCH_WINDOW must not be negative")
	}
	return nil
}

// DSN returns DATABASE_URL when set, otherwise a DSN assembled from the DB_* settings
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DB.Host, c.DB.User, c.DB.Password, c.DB.Name, c.DB.Port, c.DB.SSLMode)
}

func (c *Config) JWTExpiration() time.Duration {
	return time.Duration(c.JWTExpirationHours) * time.Hour
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
