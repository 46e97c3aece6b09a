package models

import (
	"time"
)

// Like 点赞关系，(user_id, post_id) 唯一。
// 业务层先查后插，复合唯一索引兜底并发双击。
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_like_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;index;uniqueIndex:idx_like_user_post" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
