package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/yeremiapane/pos-sync/utils"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Port         string
	GinMode      string
	LogLevel     string
	DBDriver     string
	DBDSN        string
	CachePath    string
	JWTSecret    string
	CORSOrigin   string
	ProbeEvery   time.Duration
	SyncEvery    time.Duration
	CacheTTL     time.Duration
	SyncCooldown time.Duration
}

// Load reads .env (if present) and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		utils.InfoLogger.Println("Warning: .env file not found")
	}

	return Config{
		Port:         getEnv("PORT", "8080"),
		GinMode:      os.Getenv("GIN_MODE"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		DBDriver:     getEnv("DB_DRIVER", "sqlite"),
		DBDSN:        getEnv("DB_DSN", "pos_remote.db"),
		CachePath:    getEnv("CACHE_PATH", "pos_cache.db"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		CORSOrigin:   getEnv("CORS_ORIGIN", "http://127.0.0.1:5500"),
		ProbeEvery:   getDuration("PROBE_INTERVAL", 15*time.Second),
		SyncEvery:    getDuration("SYNC_INTERVAL", 5*time.Minute),
		CacheTTL:     getDuration("CACHE_TTL", 48*time.Hour),
		SyncCooldown: getDuration("SYNC_COOLDOWN", 30*time.Second),
	}
}

// InitDB opens the remote store the gateway talks to.
func InitDB(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "mysql":
		dialector = mysql.Open(cfg.DBDSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DBDSN)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.DBDriver, err)
	}
	return db, nil
}

// InitCacheDB opens the terminal-local SQLite file backing the cache store.
func InitCacheDB(cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.CachePath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	return db, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		utils.ErrorLogger.Printf("Invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
