package database

import (
	"fmt"
	"os"
	"strings"

	"hastane-stok-backend/internal/config"
	"hastane-stok-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open: DSN'e göre sürücü seçer ve şemayı migre eder. Dosya/memory DSN'leri
// SQLite (geliştirme ve test), gerisi Postgres sayılır. Bağlantı çağırana
// döner; paket seviyesinde global DB tutulmaz.
func Open(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.DatabaseDSN

	var dial gorm.Dialector
	if strings.HasPrefix(dsn, "file:") || strings.HasSuffix(dsn, ".db") || dsn == ":memory:" {
		dial = sqlite.Open(dsn)
	} else {
		dial = postgres.Open(dsn)
	}

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dial, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		// Sürücü hatalarını gorm sentinel'lerine çevir (ErrDuplicatedKey,
		// seri numarası kısıtı için gerekli).
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("veritabanına bağlanılamadı: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Material{},
		&models.UsageEvent{},
		&models.ReceiptEvent{},
		&models.StockCountSession{},
		&models.CountEvent{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("AutoMigrate hatası: %w", err)
	}
	return nil
}
