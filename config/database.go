package config

import (
	"fmt"

	"portfolio-views/models"

	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

var DB *gorm.DB

// InitDB opens the views database and migrates the schema. driver is the
// database/sql driver name: "sqlite" (pure Go) or "sqlite3" (cgo).
func InitDB(driver, path string) (*gorm.DB, error) {
	if driver == "" {
		driver = DriverPureGo
	}
	if driver != DriverPureGo && driver != DriverCgo {
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}

	db, err := gorm.Open(sqlite.New(sqlite.Config{
		DriverName: driver,
		DSN:        path,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	// SQLite serialises writers; one connection avoids SQLITE_BUSY on upserts.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.ViewRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	DB = db
	return db, nil
}
