package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	NotificationModeDirect = "direct"
	NotificationModeQueue  = "queue"
)

type Config struct {
	APIPort string
	Env     string

	JWTKey []byte
	JWTExp time.Duration

	MongoURI      string
	MongoDatabase string
	MongoTimeout  time.Duration

	FrontendURL           string
	AllowedOrigins        []string
	AllowedOriginSuffixes []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NotificationMode      string
	NotificationQueueName string
	ExamCodeLockTTL       time.Duration

	MaintenanceCron string
}

// Load reads .env (when present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		APIPort:               getEnv("PORT", "5000"),
		Env:                   getEnv("APP_ENV", getEnv("NODE_ENV", EnvDevelopment)),
		JWTKey:                []byte(getEnv("JWT_SECRET", "default-secret")),
		JWTExp:                time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 7*24)) * time.Hour,
		MongoURI:              getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/eduscore")),
		MongoDatabase:         getEnv("MONGODB_DATABASE", "eduscore"),
		MongoTimeout:          time.Duration(getEnvAsInt("MONGODB_TIMEOUT_SECONDS", 10)) * time.Second,
		FrontendURL:           getEnv("FRONTEND_URL", "http://localhost:3000"),
		AllowedOriginSuffixes: getEnvAsList("CORS_ALLOWED_ORIGIN_SUFFIXES", []string{".vercel.app"}),
		RedisAddr:             getEnv("REDIS_ADDR", ""),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		RedisDB:               getEnvAsInt("REDIS_DB", 0),
		NotificationMode:      getEnv("NOTIFICATION_MODE", NotificationModeDirect),
		NotificationQueueName: getEnv("NOTIFICATION_QUEUE_NAME", "notification_events_queue"),
		ExamCodeLockTTL:       time.Duration(getEnvAsInt("EXAM_CODE_LOCK_TTL_SECONDS", 10)) * time.Second,
		MaintenanceCron:       getEnv("MAINTENANCE_CRON", ""),
	}

	cfg.AllowedOrigins = appendUnique(
		[]string{cfg.FrontendURL, "http://localhost:3000"},
		getEnvAsList("CORS_ALLOWED_ORIGINS", nil)...,
	)

	if cfg.NotificationMode == NotificationModeQueue && cfg.RedisAddr == "" {
		log.Println("WARN: NOTIFICATION_MODE=queue requires REDIS_ADDR, falling back to direct")
		cfg.NotificationMode = NotificationModeDirect
	}

	return cfg
}

func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func appendUnique(base []string, extra ...string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, v := range append(base, extra...) {
		v = strings.TrimRight(v, "/")
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
