package main

import (
	"github.com/bizadmin/backend/internal/config"
	"github.com/bizadmin/backend/internal/db"
	"github.com/bizadmin/backend/internal/logger"
)

func main() {
	logger.Initialize()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	database, err := db.Connect(cfg.DSN(), true)
	if err != nil {
		logger.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close(database)

	logger.Info("Running database migrations...", nil)
	if err := db.AutoMigrate(database); err != nil {
		logger.Fatal("Migration failed", map[string]interface{}{"error": err.Error()})
	}
}
