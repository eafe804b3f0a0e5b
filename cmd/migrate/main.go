package main

import (
	"github.com/grandebingo/bingo90-backend/config"
	"github.com/grandebingo/bingo90-backend/utils/logger"
)

func main() {
	config.SetupDatabase()
	logger.Info("database migration completed successfully")
}
