package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	CORSOrigins string
	LockTimeout time.Duration // malzeme kilidi için üst bekleme süresi
}

func Load() *Config {
	cfg := &Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		DatabaseDSN: getEnv("DATABASE_DSN", "file:hastane-stok.db"),
		CORSOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		LockTimeout: time.Duration(getEnvInt("LOCK_TIMEOUT_MS", 5000)) * time.Millisecond,
	}

	if cfg.DatabaseDSN == "file:hastane-stok.db" {
		log.Println("[WARN] DATABASE_DSN varsayılan değer kullanılıyor (yerel SQLite dosyası); production için Postgres bağlantı bilgisi tanımla.")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS varsayılan değer kullanılıyor, production için kendi domain'ini tanımla.")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("[WARN] %s sayı değil, varsayılan (%d) kullanılıyor", key, def)
	}
	return def
}
