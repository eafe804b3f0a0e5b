package models

import (
	"time"

	"gorm.io/datatypes"
)

type PrizeType string

const (
	PrizeQuadra      PrizeType = "QUADRA"
	PrizeQuina       PrizeType = "QUINA"
	PrizeBingo       PrizeType = "BINGO"
	PrizeAccumulated PrizeType = "ACCUMULATED"
)

type GameStatus string

const (
	StatusSetup    GameStatus = "SETUP"
	StatusRunning  GameStatus = "RUNNING"
	StatusFinished GameStatus = "FINISHED"
)

type StartMode string

const (
	StartManual StartMode = "MANUAL"
	StartAuto   StartMode = "AUTO"
)

// GameEvent is the single global game record. The engine owns the in-memory
// fields; DrawnJSON/WinnersJSON are the DB shape of the two growing lists.
type GameEvent struct {
	ID               string         `gorm:"primaryKey" json:"id"`
	Name             string         `json:"name"`
	CardPrice        float64        `json:"cardPrice"`
	MaxCards         int            `json:"maxCards"`
	Status           GameStatus     `json:"status"`
	CurrentPrizeStep PrizeType      `json:"currentPrizeStep"`
	DrawnBalls       []int          `gorm:"-" json:"drawnBalls"`
	Winners          []WinnerRecord `gorm:"-" json:"winners"`
	StartMode        StartMode      `json:"startMode"`
	AutoInterval     int            `json:"autoInterval"` // minutes between scheduled starts
	NextAutoStart    *time.Time     `json:"nextAutoStart,omitempty"`
	OnlineCount      int            `gorm:"-" json:"onlineCount"`
	DrawnJSON        datatypes.JSON `json:"-"`
	WinnersJSON      datatypes.JSON `json:"-"`
	CreatedAt        time.Time      `json:"-"`
	UpdatedAt        time.Time      `json:"-"`
}

// WinnerRecord is created once per prize tier when the first qualifying card
// is accepted, and never mutated afterwards.
type WinnerRecord struct {
	Prize     PrizeType `json:"prize"`
	CardID    string    `json:"cardId"`
	UserName  string    `json:"userName"`
	BallCount int       `json:"ballCount"`
	Timestamp time.Time `json:"timestamp"`
}
