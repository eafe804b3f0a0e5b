package controllers

import (
	"errors"
	"net/http"

	"github.com/grandebingo/bingo90-backend/services"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Whatsapp string `json:"whatsapp" binding:"required"`
	Password string `json:"password" binding:"required"`
	PixKey   string `json:"pixKey"`
}

// RegisterUser registers a new participant
func RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := services.Game.RegisterUser(req.Name, req.Whatsapp, req.Password, req.PixKey)
	if err != nil {
		if errors.Is(err, services.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register user"})
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login authenticates a participant by whatsapp and password
func Login(c *gin.Context) {
	var req struct {
		Whatsapp string `json:"whatsapp" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := services.Game.Authenticate(req.Whatsapp, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// GetUser fetches a participant by whatsapp id
func GetUser(c *gin.Context) {
	user, err := services.Game.GetUser(c.Param("whatsapp"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}
