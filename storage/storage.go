// Package storage opens the gorm database shared by the user and task
// repositories.
package storage

import (
	"fmt"

	"github.com/ichigozero/todokit/tasksvc"
	"github.com/ichigozero/todokit/usersvc"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to PostgreSQL when databaseURL is set and to the SQLite
// database at sqlitePath otherwise, then migrates the schema.
func Open(databaseURL, sqlitePath string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if databaseURL != "" {
		dialector = postgres.Open(databaseURL)
	} else {
		dialector = sqlite.Open(sqlitePath)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&usersvc.User{}, &usersvc.Session{}, &tasksvc.Task{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// SQLitePath returns the database file for an application environment.
func SQLitePath(appEnv string) string {
	if appEnv == "test" {
		return "todo_test.db"
	}
	return "todo.db"
}
