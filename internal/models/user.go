package models

import (
	"time"
)

type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Uid         string    `gorm:"uniqueIndex;size:8;not null" json:"uid"`
	AuthSubject string    `gorm:"uniqueIndex;not null" json:"-"` // 外部认证平台的 subject，首次登录时创建用户
	Username    string    `gorm:"not null;index" json:"username"`
	AvatarKey   string    `json:"-"`                   // 对象存储引用，响应里解析为可访问的 URL
	Bio         string    `gorm:"size:200" json:"bio"` // 个人简介
	Website     string    `json:"website"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	// No DeletedAt for hard delete (only via auth provider's deletion webhook)
}
