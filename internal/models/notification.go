package models

import (
	"time"
)

type NotificationType string

const (
	NotificationTypeCommentPost NotificationType = "comment_post"
	NotificationTypeMention     NotificationType = "mention"
	NotificationTypeSystem      NotificationType = "system"
)

// Notification 站内通知，与推送并行写入，客户端拉取用
type Notification struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	UserID       uint             `gorm:"not null;index" json:"user_id"` // Receiver
	User         User             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ActorID      *uint            `gorm:"index" json:"actor_id"` // Sender
	Actor        User             `gorm:"foreignKey:ActorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"actor"`
	Type         NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	Body         string           `gorm:"type:text" json:"body"`
	RedirectPath string           `json:"redirect_path"` // 客户端跳转路径，如 /p/:pid
	IsRead       bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt    time.Time        `json:"created_at"`
}
