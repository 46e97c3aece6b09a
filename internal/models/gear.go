package models

import (
	"time"
)

type GearType string

const (
	GearTypeGrinder GearType = "grinder"
	GearTypeBrewer  GearType = "brewer"
	GearTypeFilter  GearType = "filter"
)

// Gear 用户的器具档案（磨豆机/冲煮器具/滤纸）
type Gear struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Name      string    `gorm:"not null" json:"name"`
	Type      GearType  `gorm:"type:varchar(20);not null;index" json:"type"`
	Details   string    `gorm:"type:text" json:"details"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
