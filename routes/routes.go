package routes

import (
	"github.com/grandebingo/bingo90-backend/controllers"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine) {
	api := r.Group("/api")

	// ----------------------
	// User routes
	// ----------------------
	api.POST("/users", controllers.RegisterUser)
	api.POST("/login", controllers.Login)
	api.GET("/users/:whatsapp", controllers.GetUser)

	// ----------------------
	// Game routes
	// ----------------------
	api.GET("/game", controllers.GetState)
	api.POST("/game/start", controllers.StartGame)
	api.POST("/game/draw", controllers.DrawBall)
	api.POST("/game/auto", controllers.ToggleAuto)
	api.POST("/game/reset", controllers.ResetEvent)
	api.PUT("/game/config", controllers.UpdateConfig)

	// ----------------------
	// Purchase / wallet routes
	// ----------------------
	api.POST("/series", controllers.BuySeries)
	api.POST("/deposit", controllers.Deposit)
	api.POST("/withdraw", controllers.Withdraw)
}
