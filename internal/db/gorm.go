package db

import (
	"errors"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskapi/internal/model"
)

// Supported DB_DRIVER values.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMongo    = "mongodb"
)

// ErrUnsupportedDriver is returned for an unknown DB_DRIVER.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Open returns a connected GORM DB instance for a relational driver.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	return db, nil
}

// models lists the tables in dependency order.
var models = []interface{}{
	&model.User{},
	&model.Category{},
	&model.Task{},
	&model.TaskCategory{},
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&model.Task{}, "Categories", &model.TaskCategory{}); err != nil {
		return fmt.Errorf("setup task join table: %w", err)
	}
	if err := db.SetupJoinTable(&model.Category{}, "Tasks", &model.TaskCategory{}); err != nil {
		return fmt.Errorf("setup category join table: %w", err)
	}
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Reset drops every table, children first.
func Reset(db *gorm.DB) error {
	for i := len(models) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(models[i]); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	return nil
}
