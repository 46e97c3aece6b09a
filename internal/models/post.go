package models

import (
	"time"

	"gorm.io/gorm"
)

type Post struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Pid    string `gorm:"uniqueIndex;size:8;not null" json:"pid"`
	UserID uint   `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`

	// 豆子：优先关联豆卡，未关联时用自由文本
	BeanName      string       `json:"bean_name"`
	BeanProfileID *uint        `gorm:"index" json:"bean_profile_id"`
	BeanProfile   *BeanProfile `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"bean_profile"`

	// 器具：按 id 关联，旧版本客户端写入的自由文本字段保留做降级显示
	BrewerID    *uint  `gorm:"index" json:"brewer_id"`
	Brewer      *Gear  `gorm:"foreignKey:BrewerID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"brewer"`
	GrinderID   *uint  `gorm:"index" json:"grinder_id"`
	Grinder     *Gear  `gorm:"foreignKey:GrinderID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"grinder"`
	FilterID    *uint  `gorm:"index" json:"filter_id"`
	Filter      *Gear  `gorm:"foreignKey:FilterID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"filter"`
	BrewerName  string `json:"brewer_name"`
	GrinderName string `json:"grinder_name"`
	FilterName  string `json:"filter_name"`

	// 冲煮参数
	DoseGrams    float64 `json:"dose_grams"`
	WaterGrams   float64 `json:"water_grams"`
	WaterTempC   float64 `json:"water_temp_c"`
	GrindSetting string  `json:"grind_setting"`

	Notes string `gorm:"type:text" json:"notes"` // Markdown，渲染后返回给详情页

	LikesCount int `gorm:"default:0" json:"likes_count"` // 冗余计数，只允许社交层的原子增减修改

	Steps  []RecipeStep `gorm:"constraint:OnDelete:CASCADE;" json:"steps"`
	Images []PostImage  `gorm:"constraint:OnDelete:CASCADE;" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 非数据库字段，查询时批量填充
	CommentCount int `gorm:"-" json:"comment_count"`
}

// BeforeDelete 删除帖子时连带清理子表，保证与帖子同一事务内原子完成。
// 不依赖数据库外键级联，调用方也不需要自己记得删。
func (p *Post) BeforeDelete(tx *gorm.DB) error {
	if err := tx.Where("post_id = ?", p.ID).Delete(&PostImage{}).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id = ?", p.ID).Delete(&RecipeStep{}).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id = ?", p.ID).Delete(&Like{}).Error; err != nil {
		return err
	}
	var commentIDs []uint
	if err := tx.Model(&Comment{}).Where("post_id = ?", p.ID).Pluck("id", &commentIDs).Error; err != nil {
		return err
	}
	if len(commentIDs) > 0 {
		if err := tx.Where("comment_id IN ?", commentIDs).Delete(&CommentMention{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", p.ID).Delete(&Comment{}).Error; err != nil {
			return err
		}
	}
	return nil
}

// RecipeStep 按时间轴排列的冲煮步骤
type RecipeStep struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	PostID     uint    `gorm:"not null;index" json:"post_id"`
	Position   int     `gorm:"not null" json:"position"`
	OffsetSec  int     `gorm:"not null" json:"offset_sec"` // 距开始的秒数
	Label      string  `gorm:"not null" json:"label"`      // 如 "绽放"、"第二段注水"
	WaterGrams float64 `json:"water_grams"`                // 该步骤累计注水量，0 表示未记录
}
