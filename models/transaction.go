package models

import "time"

type TransactionType string

const (
	DepositTransaction  TransactionType = "DEPOSIT"
	PurchaseTransaction TransactionType = "PURCHASE"
	WithdrawTransaction TransactionType = "WITHDRAW"
	PayoutTransaction   TransactionType = "PAYOUT"
)

type Transaction struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Reference    string          `gorm:"uniqueIndex" json:"reference"`
	UserID       string          `gorm:"index" json:"user_id"`
	Type         TransactionType `json:"type"`
	Amount       float64         `json:"amount"`
	BalanceAfter float64         `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}
