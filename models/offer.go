package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Offer 代表拍賣系統中的商品
// 包含商品資訊、拍賣期間、定價資訊以及目前的生命週期狀態
type Offer struct {
	ID                  uuid.UUID           `gorm:"type:uuid;primaryKey"`
	UserID              uuid.UUID           `gorm:"type:uuid;not null;index;<-:create"`
	Title               string              `gorm:"type:varchar(255);not null"`
	Description         string              `gorm:"type:text;not null"`
	AuctionDurationDays int                 `gorm:"type:integer;not null"`
	AuctionFinishedAt   *time.Time          `gorm:"index"`
	StartPrice          decimal.NullDecimal `gorm:"type:numeric(20,2)"`
	Step                decimal.NullDecimal `gorm:"type:numeric(20,2)"`
	WinBid              decimal.NullDecimal `gorm:"type:numeric(20,2)"`
	IsFree              bool                `gorm:"not null"`
	IsActive            bool                `gorm:"not null"`
	Status              Status              `gorm:"type:varchar(32);not null;index"`
	WinnerBidID         *uuid.UUID          `gorm:"type:uuid"`
	CategoryID          *uuid.UUID          `gorm:"type:uuid"`
	LocationID          *uuid.UUID          `gorm:"type:uuid"`
	// 由排程標記，代表此商品需要人工介入處理
	NeedsAttention bool      `gorm:"not null;index"`
	AttentionNote  string    `gorm:"type:text;not null;default:''"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`

	// 外鍵關聯
	User      User                 `gorm:"foreignKey:UserID"`
	StatusRef *OfferStatus         `gorm:"foreignKey:Status;references:Name"`
	Bids      []Bid                `gorm:"foreignKey:OfferID"`
	History   []StatusHistoryEntry `gorm:"foreignKey:OfferID"`
}

// HasWinner 判斷商品是否已經有得標出價
func (o Offer) HasWinner() bool {
	return o.WinnerBidID != nil
}

// Deadline 回傳拍賣截止時間，尚未開始拍賣時回傳零值
func (o Offer) Deadline() time.Time {
	if o.AuctionFinishedAt == nil {
		return time.Time{}
	}
	return *o.AuctionFinishedAt
}
