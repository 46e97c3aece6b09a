package models

import (
	"time"
)

// BeanProfile 可复用的豆卡，由用户维护，帖子可选关联
type BeanProfile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Name      string    `gorm:"not null" json:"name"`
	Roaster   string    `json:"roaster"`
	Origin    string    `json:"origin"`
	Producer  string    `json:"producer"`
	Farm      string    `json:"farm"`
	Process   string    `json:"process"` // 水洗/日晒/蜜处理...
	Variety   string    `json:"variety"`
	Elevation string    `json:"elevation"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
