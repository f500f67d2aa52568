package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	ListenAddr  string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	AdminEmail    string
	AdminPassword string

	RedisAddr     string
	RedisPassword string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
}

// Load loads configuration from environment variables and an optional .env file.
func Load() Config {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_SERVICE", "aquabill")
	v.SetDefault("APP_VERSION", "0.1.0")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LISTEN_ADDR", ":8080")
	v.SetDefault("AUTH_ACCESS_TOKEN_TTL", "1h")
	v.SetDefault("AUTH_REFRESH_TOKEN_TTL", "168h")
	v.SetDefault("OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("DATABASE_TYPE", "postgres")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", "5432")
	v.SetDefault("DATABASE_NAME", "aquabill")
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_PASSWORD", "postgres")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_IDLE_CONN", 5)
	v.SetDefault("DATABASE_MAX_OPEN_CONN", 25)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", 300)

	return Config{
		AppName:           v.GetString("APP_SERVICE"),
		AppVersion:        v.GetString("APP_VERSION"),
		Environment:       v.GetString("ENVIRONMENT"),
		ListenAddr:        v.GetString("LISTEN_ADDR"),
		JWTSecret:         strings.TrimSpace(v.GetString("AUTH_JWT_SECRET")),
		AccessTokenTTL:    v.GetDuration("AUTH_ACCESS_TOKEN_TTL"),
		RefreshTokenTTL:   v.GetDuration("AUTH_REFRESH_TOKEN_TTL"),
		AdminEmail:        strings.TrimSpace(v.GetString("ADMIN_EMAIL")),
		AdminPassword:     v.GetString("ADMIN_PASSWORD"),
		RedisAddr:         strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:     v.GetString("REDIS_PASSWORD"),
		OTLPEndpoint:      v.GetString("OTLP_ENDPOINT"),
		DBType:            v.GetString("DATABASE_TYPE"),
		DBHost:            v.GetString("DATABASE_HOST"),
		DBPort:            v.GetString("DATABASE_PORT"),
		DBName:            v.GetString("DATABASE_NAME"),
		DBUser:            v.GetString("DATABASE_USER"),
		DBPassword:        v.GetString("DATABASE_PASSWORD"),
		DBSSLMode:         v.GetString("DATABASE_SSLMODE"),
		DBMaxIdleConn:     v.GetInt("DATABASE_MAX_IDLE_CONN"),
		DBMaxOpenConn:     v.GetInt("DATABASE_MAX_OPEN_CONN"),
		DBConnMaxLifetime: v.GetInt("DATABASE_CONN_MAX_LIFETIME"),
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}
