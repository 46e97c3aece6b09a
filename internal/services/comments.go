package services

import (
	"errors"
	"fmt"

	"beans/internal/db"
	"beans/internal/models"
	"beans/internal/utils"

	"gorm.io/gorm"
)

// CommentService 评论创建/删除，连带提及解析和通知扇出
type CommentService struct {
	push *PushService
}

func NewCommentService(push *PushService) *CommentService {
	return &CommentService{push: push}
}

// Create 创建评论。clientToken 由客户端生成，乐观更新靠它对账：
// 同一用户带同一 token 重复提交时直接返回已有评论（幂等重试），
// 服务端原样回显 token，客户端缓存层用它替换预测条目。
func (s *CommentService) Create(user *models.User, pid, content, clientToken string) (*models.Comment, error) {
	var post models.Post
	if err := db.DB.Where("pid = ?", pid).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// 幂等重试：同一 token 已落库就直接返回原评论。
	// 这里只是快路径，并发重试由 (user_id, client_token) 唯一索引兜底
	if clientToken != "" {
		if existing, err := s.findByToken(user.ID, clientToken); err == nil {
			return existing, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	content = utils.SanitizeText(content)

	// @提及只在创建时解析一次
	mentioned, err := ResolveMentions(content)
	if err != nil {
		return nil, err
	}

	comment := models.Comment{
		Cid:     utils.RandID(8),
		PostID:  post.ID,
		UserID:  user.ID,
		Content: content,
	}
	if clientToken != "" {
		comment.ClientToken = &clientToken
	}

	stored, err := s.insertOrExisting(&comment, mentioned)
	if err != nil {
		return nil, err
	}
	if stored != &comment {
		// 并发重试的输家，赢家那条已经带着通知落库了
		return stored, nil
	}

	InvalidatePostDetails(post.Pid)

	// 通知扇出：帖子作者 + 被 @ 的用户，不通知自己；
	// 推送是 fire-and-forget，失败不影响评论创建
	go s.notify(user, &post, &comment, mentioned)

	comment.User = *user
	return &comment, nil
}

// insertOrExisting 评论连同提及行一个事务落库。
// 两个带同令牌的并发请求都可能通过 Create 的快路径检查，
// (user_id, client_token) 唯一索引让输家在这里撞车，回查返回赢家那条
func (s *CommentService) insertOrExisting(comment *models.Comment, mentioned []models.User) (*models.Comment, error) {
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		for i, m := range mentioned {
			mention := models.CommentMention{
				CommentID: comment.ID,
				UserID:    m.ID,
				Position:  i,
			}
			if err := tx.Create(&mention).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if comment.ClientToken != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
			if existing, err2 := s.findByToken(comment.UserID, *comment.ClientToken); err2 == nil {
				return existing, nil
			}
		}
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) findByToken(userID uint, token string) (*models.Comment, error) {
	var existing models.Comment
	err := db.DB.Preload("User").Preload("Mentions.User").
		Where("user_id = ? AND client_token = ?", userID, token).
		First(&existing).Error
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

func (s *CommentService) notify(actor *models.User, post *models.Post, comment *models.Comment, mentioned []models.User) {
	redirectPath := fmt.Sprintf("/p/%s", post.Pid)

	notifiedMention := make(map[uint]bool)
	for _, m := range mentioned {
		if m.ID == actor.ID {
			continue
		}
		notifiedMention[m.ID] = true
		notification := models.Notification{
			UserID:       m.ID,
			ActorID:      &actor.ID,
			Type:         models.NotificationTypeMention,
			Body:         fmt.Sprintf("%s 在冲煮记录的评论里提到了你", actor.Username),
			RedirectPath: redirectPath,
		}
		db.DB.Create(&notification)
		s.push.SendToUser(m.ID, "有人 @ 了你", comment.Content, redirectPath)
	}

	// 直接评论通知帖子作者（被 @ 过就不重复通知了）
	if post.UserID != actor.ID && !notifiedMention[post.UserID] {
		notification := models.Notification{
			UserID:       post.UserID,
			ActorID:      &actor.ID,
			Type:         models.NotificationTypeCommentPost,
			Body:         fmt.Sprintf("%s 评论了你的冲煮记录", actor.Username),
			RedirectPath: redirectPath,
		}
		db.DB.Create(&notification)
	}
}

// Delete 删除评论，只允许作者本人；评论不可编辑，删除是唯一的变更
func (s *CommentService) Delete(user *models.User, cid string) error {
	var comment models.Comment
	if err := db.DB.Preload("Post").Where("cid = ?", cid).First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if comment.UserID != user.ID {
		return ErrForbidden
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id = ?", comment.ID).Delete(&models.CommentMention{}).Error; err != nil {
			return err
		}
		return tx.Delete(&comment).Error
	})
	if err != nil {
		return err
	}

	InvalidatePostDetails(comment.Post.Pid)
	return nil
}
