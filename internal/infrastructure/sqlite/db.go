// Package sqlite persistencia con GORM sobre SQLite (driver puro Go, sin CGO).
// Se usa en desarrollo y en tests; en producción el driver es postgres.
package sqlite

import (
	"fmt"
	"os"
	"path/filepath"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open abre (o crea) la base SQLite, aplica PRAGMAs y migra el esquema.
// El pool queda en una sola conexión: SQLite admite un único escritor y así
// las transacciones y el UPDATE de secuenciales se serializan.
func Open(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("directorio de la base sqlite: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("abrir sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// AutoMigrate crea o actualiza las tablas del núcleo SRI.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&configurationModel{},
		&establishmentModel{},
		&emissionPointModel{},
		&documentModel{},
		&errorLogModel{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

// Close cierra la conexión subyacente.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
