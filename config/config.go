package config

import (
	"os"

	"github.com/grandebingo/bingo90-backend/models"
	"github.com/grandebingo/bingo90-backend/utils/logger"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// SetupDatabase connects to DB and runs migrations
func SetupDatabase() *gorm.DB {
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, reading environment variables")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Log.Fatal("DATABASE_URL is required in .env or environment")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Log.Fatalf("failed to connect to DB: %v", err)
	}
	DB = db

	if err := db.AutoMigrate(
		&models.User{},
		&models.GameEvent{},
		&models.Card{},
		&models.Series{},
		&models.Transaction{},
	); err != nil {
		logger.Log.Fatalf("migration failed: %v", err)
	}

	logger.Info("database migration completed")
	return db
}
