package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ensureID 在建立資料前產生 UUIDv7 主鍵
func ensureID(id *uuid.UUID) error {
	if *id != uuid.Nil {
		return nil
	}
	v, err := uuid.NewV7()
	if err != nil {
		return err
	}
	*id = v
	return nil
}

func (o *Offer) BeforeCreate(*gorm.DB) error {
	return ensureID(&o.ID)
}

func (b *Bid) BeforeCreate(*gorm.DB) error {
	return ensureID(&b.ID)
}

func (u *User) BeforeCreate(*gorm.DB) error {
	return ensureID(&u.ID)
}

func (e *StatusHistoryEntry) BeforeCreate(*gorm.DB) error {
	return ensureID(&e.ID)
}

func (r *RejectionReason) BeforeCreate(*gorm.DB) error {
	return ensureID(&r.ID)
}
