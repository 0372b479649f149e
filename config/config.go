package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds the runtime configuration read from the environment.
type Config struct {
	Env     string
	Port    string
	GinMode string

	DBDriver   string
	DBDSN      string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPass     string
	DBName     string
	SQLitePath string

	JWTSecret   string
	CORSOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RabbitMQURL    string
	EventsExchange string

	TableURLBase      string
	RecentOrdersHours int

	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel  string
	LogFormat string
}

func Load() Config {
	return Config{
		Env:     getEnv("APP_ENV", "development"),
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBDSN:      os.Getenv("DB_DSN"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPass:     os.Getenv("DB_PASS"),
		DBName:     getEnv("DB_NAME", "restaurant"),
		SQLitePath: getEnv("SQLITE_PATH", "restaurant.db"),

		JWTSecret:   os.Getenv("JWT_SECRET"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RabbitMQURL:    os.Getenv("RABBITMQ_URL"),
		EventsExchange: getEnv("EVENTS_EXCHANGE", "pos.events"),

		TableURLBase:      strings.TrimRight(os.Getenv("TABLE_URL_BASE"), "/"),
		RecentOrdersHours: getEnvInt("RECENT_ORDERS_HOURS", 3),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return f
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}
