package services

import (
	"errors"

	"beans/internal/db"
	"beans/internal/models"

	"gorm.io/gorm"
)

// LikePost 点赞。存在性检查、插入和计数自增在同一事务内完成，
// (user_id, post_id) 复合唯一索引兜底并发双击。
// 返回更新后的 likes_count。
func LikePost(userID, postID uint) (int, error) {
	var count int

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		// 检查是否已点赞
		var existing models.Like
		err := tx.Where("user_id = ? AND post_id = ?", userID, postID).First(&existing).Error
		if err == nil {
			return ErrAlreadyLiked
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		like := models.Like{UserID: userID, PostID: postID}
		if err := tx.Create(&like).Error; err != nil {
			// 唯一索引冲突说明并发请求抢先插入，按已点赞处理
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyLiked
			}
			return err
		}

		if err := tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("likes_count", gorm.Expr("likes_count + ?", 1)).Error; err != nil {
			return err
		}

		// 回读自增后的值，事务开头读到的行在并发下可能已经过期
		var updated models.Post
		if err := tx.Select("likes_count").First(&updated, postID).Error; err != nil {
			return err
		}
		count = updated.LikesCount
		return nil
	})
	if err != nil {
		return 0, err
	}

	// 异步校对计数，修复可能的漂移
	GetCounterAudit().ScheduleAudit(postID)

	return count, nil
}

// UnlikePost 取消点赞。未点赞时返回 ErrLikeNotFound；
// 计数下限钳制在 0，容忍历史漂移而不是把错误往上抛。
func UnlikePost(userID, postID uint) (int, error) {
	var count int

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var existing models.Like
		if err := tx.Where("user_id = ? AND post_id = ?", userID, postID).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLikeNotFound
			}
			return err
		}

		if err := tx.Delete(&existing).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("likes_count", gorm.Expr("CASE WHEN likes_count > 0 THEN likes_count - 1 ELSE 0 END")).Error; err != nil {
			return err
		}

		// 同样回读钳制后的最终值，不在内存里重新算一遍
		var updated models.Post
		if err := tx.Select("likes_count").First(&updated, postID).Error; err != nil {
			return err
		}
		count = updated.LikesCount
		return nil
	})
	if err != nil {
		return 0, err
	}

	GetCounterAudit().ScheduleAudit(postID)

	return count, nil
}

// FollowUser 关注。自关注拒绝；重复关注幂等，不报错，
// 调用方拿到权威的 following 布尔值做乐观状态对账。
func FollowUser(followerID, followeeID uint) error {
	if followerID == followeeID {
		return ErrSelfFollow
	}

	var followee models.User
	if err := db.DB.First(&followee, followeeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	var existing models.Follow
	err := db.DB.Where("follower_id = ? AND followee_id = ?", followerID, followeeID).First(&existing).Error
	if err == nil {
		return nil // 已关注，幂等
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	follow := models.Follow{FollowerID: followerID, FolloweeID: followeeID}
	if err := db.DB.Create(&follow).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	}
	return nil
}

// UnfollowUser 取消关注，边不存在时同样幂等
func UnfollowUser(followerID, followeeID uint) error {
	return db.DB.Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{}).Error
}

// IsFollowing 查询关注状态
func IsFollowing(followerID, followeeID uint) bool {
	var follow models.Follow
	err := db.DB.Where("follower_id = ? AND followee_id = ?", followerID, followeeID).First(&follow).Error
	return err == nil
}

// HasLiked 查询当前用户是否点赞过某帖
func HasLiked(userID, postID uint) bool {
	if userID == 0 {
		return false
	}
	var like models.Like
	err := db.DB.Where("user_id = ? AND post_id = ?", userID, postID).First(&like).Error
	return err == nil
}

// FollowCounts 返回（粉丝数, 关注数）
func FollowCounts(userID uint) (int64, int64) {
	var followers, following int64
	db.DB.Model(&models.Follow{}).Where("followee_id = ?", userID).Count(&followers)
	db.DB.Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&following)
	return followers, following
}

// ListFollowers 分页查询粉丝
func ListFollowers(userID uint, offset, limit int) ([]models.User, error) {
	var users []models.User
	err := db.DB.
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.followee_id = ?", userID).
		Order("follows.created_at DESC").
		Offset(offset).Limit(limit).
		Find(&users).Error
	return users, err
}

// ListFollowing 分页查询关注的人
func ListFollowing(userID uint, offset, limit int) ([]models.User, error) {
	var users []models.User
	err := db.DB.
		Joins("JOIN follows ON follows.followee_id = users.id").
		Where("follows.follower_id = ?", userID).
		Order("follows.created_at DESC").
		Offset(offset).Limit(limit).
		Find(&users).Error
	return users, err
}
