package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to postgres, applies migrations and loads the demo seed
// data on an empty directory.
func Open(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := runMigrations(gdb); err != nil {
		return nil, err
	}
	if err := seed(gdb); err != nil {
		return nil, fmt.Errorf("seed data: %w", err)
	}
	return gdb, nil
}
