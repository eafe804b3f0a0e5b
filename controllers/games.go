package controllers

import (
	"errors"
	"net/http"

	"github.com/grandebingo/bingo90-backend/models"
	"github.com/grandebingo/bingo90-backend/services"

	"github.com/gin-gonic/gin"
)

// GetState returns the full session snapshot: game record, cards, users.
func GetState(c *gin.Context) {
	c.JSON(http.StatusOK, services.Game.Snapshot())
}

// StartGame moves the session from SETUP to RUNNING
func StartGame(c *gin.Context) {
	if err := services.Game.StartGame(); err != nil {
		status := http.StatusConflict
		if errors.Is(err, services.ErrNoCards) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "running"})
}

// DrawBall draws one ball manually
func DrawBall(c *gin.Context) {
	if err := services.Game.DrawBall(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "drawn"})
}

// ToggleAuto enables or disables the recurring draw timer
func ToggleAuto(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := services.Game.SetAutoDraw(*req.Enabled); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"auto": *req.Enabled})
}

// ResetEvent clears the session back to SETUP
func ResetEvent(c *gin.Context) {
	if err := services.Game.ResetEvent(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

// UpdateConfig changes price, start mode and interval while in SETUP
func UpdateConfig(c *gin.Context) {
	var req struct {
		CardPrice    float64          `json:"cardPrice" binding:"required"`
		StartMode    models.StartMode `json:"startMode" binding:"required"`
		AutoInterval int              `json:"autoInterval" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ev, err := services.Game.UpdateConfig(req.CardPrice, req.StartMode, req.AutoInterval)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ev)
}

// BuySeries purchases series for a participant over REST
func BuySeries(c *gin.Context) {
	var req struct {
		UserID string `json:"userId" binding:"required"`
		Qty    int    `json:"qty" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := services.Game.PurchaseSeries(req.UserID, req.Qty)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInsufficientBalance):
			c.JSON(http.StatusBadRequest, gin.H{"error": "insufficient balance"})
		case errors.Is(err, services.ErrWrongStatus):
			c.JSON(http.StatusConflict, gin.H{"error": "purchases are only allowed before the game starts"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"balance": user.Balance})
}
