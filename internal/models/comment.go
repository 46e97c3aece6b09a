package models

import (
	"time"
)

type Comment struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Cid    string `gorm:"uniqueIndex;size:8;not null" json:"cid"`
	PostID uint   `gorm:"not null;index" json:"post_id"`
	Post   Post   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID uint   `gorm:"not null;index;uniqueIndex:idx_comment_user_token" json:"user_id"`
	User   User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`

	Content string `gorm:"type:text;not null" json:"content"` // 入库前已经过 bluemonday 清洗

	// 客户端生成的关联令牌，乐观更新用它对账；同一用户重复提交直接返回原评论。
	// 没带令牌时存 NULL，复合唯一索引只约束真实令牌，并发重试靠它兜底
	ClientToken *string `gorm:"size:64;uniqueIndex:idx_comment_user_token" json:"client_token"`

	// @提及在创建时解析一次，编辑不存在（评论只能删除），不做二次解析
	Mentions []CommentMention `gorm:"constraint:OnDelete:CASCADE;" json:"mentions"`

	CreatedAt time.Time `json:"created_at"`
}

// CommentMention 评论里 @ 到的用户，按首次出现顺序保存
type CommentMention struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	CommentID uint `gorm:"not null;index" json:"comment_id"`
	UserID    uint `gorm:"not null;index" json:"user_id"`
	User      User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Position  int  `gorm:"not null;default:0" json:"position"`
}
