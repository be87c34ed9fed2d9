package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 交易状态
const (
	TxStatusPending = "pending"
	TxStatusSuccess = "success"
	TxStatusFailed  = "failed"
)

// TxHistory 账户交易历史
// DedupeKey = blake3(network|account|hash)，唯一索引保证同一笔交易只记一次
type TxHistory struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	DedupeKey   string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"-"`
	Account     string          `gorm:"type:varchar(42);not null;index" json:"account"`
	Network     string          `gorm:"type:varchar(32);not null" json:"network"`
	ChainID     int64           `gorm:"not null" json:"chain_id"`
	TxHash      string          `gorm:"type:varchar(66);not null;index" json:"tx_hash"`
	FromAddress string          `gorm:"type:varchar(42);not null" json:"from"`
	ToAddress   string          `gorm:"type:varchar(42);not null" json:"to"`
	Asset       string          `gorm:"type:varchar(64);not null" json:"asset"`
	Amount      decimal.Decimal `gorm:"type:decimal(78,18);not null;default:0" json:"amount"`
	Nonce       uint64          `gorm:"not null" json:"nonce"`
	Intent      string          `gorm:"type:varchar(16);not null;default:'NORMAL'" json:"intent"`
	Status      string          `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	BlockNumber uint64          `gorm:"not null;default:0" json:"block_number"`
	SentAt      time.Time       `gorm:"not null" json:"sent_at"`
	ConfirmedAt *time.Time      `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (TxHistory) TableName() string {
	return "tx_histories"
}
