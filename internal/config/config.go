package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Backend string

const (
	BackendMemory    Backend = "memory"
	BackendPostgres  Backend = "postgres"
	BackendFirestore Backend = "firestore"
)

type Config struct {
	Port string

	StoreBackend            Backend
	DatabaseURL             string
	FirebaseProjectID       string
	FirebaseCredentialsFile string

	RedisAddr     string
	RedisPassword string

	ClerkSecretKey string
	UserCacheSize  int

	MetricsUser string
	MetricsPass string
	PprofSecret string
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Port:                    withDefault(getenv("PORT"), "3333"),
		StoreBackend:            Backend(withDefault(getenv("STORE_BACKEND"), string(BackendMemory))),
		DatabaseURL:             getenv("DATABASE_URL"),
		FirebaseProjectID:       getenv("FIREBASE_PROJECT_ID"),
		FirebaseCredentialsFile: withDefault(getenv("FIREBASE_CREDENTIALS_FILE"), "./serviceAccountKey.json"),
		RedisAddr:               getenv("REDIS_ADDR"),
		RedisPassword:           getenv("REDIS_PASSWORD"),
		ClerkSecretKey:          getenv("CLERK_SECRET_KEY"),
		MetricsUser:             getenv("METRICS_USER"),
		MetricsPass:             getenv("METRICS_PASS"),
		PprofSecret:             getenv("PPROF_SECRET"),
	}

	if raw := getenv("USER_CACHE_SIZE"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 0 {
			return nil, fmt.Errorf("USER_CACHE_SIZE must be a non-negative integer, got %q", raw)
		}
		cfg.UserCacheSize = size
	}

	switch cfg.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
		}
	case BackendFirestore:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	return cfg, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
