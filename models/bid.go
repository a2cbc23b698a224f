package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bid 代表商品的出價紀錄
// 建立後不可變更，生命週期引擎只會讀取
type Bid struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OfferID   uuid.UUID       `gorm:"type:uuid;not null;index;<-:create"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null;<-:create"`
	Value     decimal.Decimal `gorm:"type:numeric(20,2);not null;<-:create"`
	CreatedAt time.Time       `gorm:"not null;<-:create"`
}
