package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Account 本地账户表 (发送方)
// WalletType 决定签名能力: LOCAL/HARDWARE 自行签名, WEB3/CUSTODIAL 签名即广播
type Account struct {
	ID             uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Address        string         `gorm:"type:varchar(42);not null;uniqueIndex:idx_network_address" json:"address"`
	Network        string         `gorm:"type:varchar(32);not null;uniqueIndex:idx_network_address" json:"network"`
	Label          string         `gorm:"type:varchar(255)" json:"label"`
	WalletType     string         `gorm:"type:varchar(20);not null;default:'LOCAL'" json:"wallet_type"`
	DerivationPath string         `gorm:"type:varchar(64)" json:"derivation_path"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	Balances []AccountBalance `gorm:"foreignKey:AccountID" json:"balances,omitempty"`
}

// AccountBalance 账户资产余额快照 (展示单位)
type AccountBalance struct {
	ID        uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID uint64          `gorm:"not null;uniqueIndex:idx_account_asset" json:"account_id"`
	AssetID   string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_account_asset" json:"asset_id"`
	Balance   decimal.Decimal `gorm:"type:decimal(78,18);not null;default:0" json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}

func (AccountBalance) TableName() string {
	return "account_balances"
}
