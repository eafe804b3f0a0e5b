package main

import (
	"net/http"
	"os"
	"time"

	"github.com/grandebingo/bingo90-backend/config"
	"github.com/grandebingo/bingo90-backend/routes"
	"github.com/grandebingo/bingo90-backend/services"
	"github.com/grandebingo/bingo90-backend/utils/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// initEnv loads .env and validates required vars
func initEnv() {
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, reading environment variables")
	}

	if os.Getenv("DATABASE_URL") == "" {
		logger.Log.Fatal("DATABASE_URL is required in .env or environment")
	}
}

func setupRouter(hub *services.Hub) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.SetupRoutes(r)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now()})
	})

	r.GET("/ws", hub.ServeWS)

	return r
}

func main() {
	initEnv()

	db := config.SetupDatabase()

	hub := services.NewHub()
	engine := services.InitEngine(services.NewGormStore(db), hub)
	hub.AttachEngine(engine)
	hub.Start()

	router := setupRouter(hub)

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}

	logger.Infof("bingo server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		logger.Log.Fatalf("failed to start server: %v", err)
	}
}
