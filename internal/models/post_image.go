package models

import (
	"time"
)

// PostImage 帖子图片，只保存对象存储的引用，字节由存储服务托管。
// 生命周期与帖子绑定：帖子删除时连带删除（见 Post 的删除钩子）。
type PostImage struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PostID      uint      `gorm:"not null;index" json:"post_id"`
	StorageKey  string    `gorm:"not null;index" json:"-"`
	ContentType string    `gorm:"size:64" json:"content_type"`
	Position    int       `gorm:"not null;default:0" json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}
