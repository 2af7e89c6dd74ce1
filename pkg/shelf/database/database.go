package database

import (
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Connect initializes the database connection.
// For now, uses SQLite. Can be swapped to Postgres later via the GORM driver.
func Connect(dsn string, log zerolog.Logger) error {
	db, err := Open(dsn, log)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open opens a SQLite database without touching the package-level handle.
func Open(dsn string, log zerolog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: NewLogger(log),
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// GetDB returns the database instance.
func GetDB() *gorm.DB {
	return DB
}
