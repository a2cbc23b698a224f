package models

import (
	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User 代表拍賣系統中的使用者
// 包含基本的使用者資訊，如使用者名稱、角色以及帳號是否啟用
type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username string    `gorm:"type:varchar(255);not null;<-:create"`
	Role     Role      `gorm:"type:varchar(16);not null"`
	IsActive bool      `gorm:"not null"`
}
