package models

import (
	"time"

	"github.com/google/uuid"
)

// StatusHistoryEntry 代表一次成功的狀態轉換紀錄，只會新增不會修改或刪除
type StatusHistoryEntry struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OfferID           uuid.UUID  `gorm:"type:uuid;not null;index;<-:create"`
	Status            Status     `gorm:"type:varchar(32);not null;<-:create"`
	RejectionReasonID *uuid.UUID `gorm:"type:uuid;<-:create"`
	CreatedAt         time.Time  `gorm:"not null;index;<-:create"`

	RejectionReason *RejectionReason `gorm:"foreignKey:RejectionReasonID"`
}

func (StatusHistoryEntry) TableName() string {
	return "status_history"
}

// RejectionReason 是退回或封鎖商品時附帶的原因，屬於參照資料
type RejectionReason struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Text string    `gorm:"type:text;not null"`
}
