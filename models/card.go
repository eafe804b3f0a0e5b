package models

import "time"

// Card is a 3x9 bingo card holding 15 of the 90 numbers. Grid cells hold 0
// where the cell is blank; Numbers is immutable after generation.
type Card struct {
	ID         string      `gorm:"primaryKey" json:"id"`
	SeriesID   string      `gorm:"index" json:"serieId"`
	CardSuffix string      `json:"cardSuffix"`
	UserID     string      `gorm:"index" json:"userId"`
	Numbers    []int       `gorm:"serializer:json" json:"numbers"`
	Grid       [][]int     `gorm:"serializer:json" json:"grid"`
	Marked     []int       `gorm:"serializer:json" json:"markedNumbers"`
	IsWinner   bool        `json:"isWinner"`
	WonPrizes  []PrizeType `gorm:"serializer:json" json:"wonPrizes"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Series groups the 6 cards generated from one shuffled partition of 1..90.
type Series struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	PackageID string    `json:"packageId"`
	UserID    string    `gorm:"index" json:"userId"`
	CardIDs   []string  `gorm:"serializer:json" json:"cardIds"`
	CreatedAt time.Time `json:"created_at"`
}
