package models

import "time"

type User struct {
	ID        string    `gorm:"primaryKey" json:"id"` // whatsapp number doubles as identity
	Name      string    `json:"name"`
	Whatsapp  string    `gorm:"uniqueIndex" json:"whatsapp"`
	Password  string    `json:"-"`
	PixKey    string    `json:"pixKey,omitempty"`
	Balance   float64   `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
