package models

import (
	"time"
)

const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
)

// DeviceToken 推送设备令牌。token 全局唯一：同一个物理设备换账号登录时，
// 重新注册会把归属转移给新用户，旧用户不再收到该设备的推送。
type DeviceToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"-"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	Platform  string    `gorm:"size:10;not null" json:"platform"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
