package handlers

import (
	"crypto/subtle"
	"net/http"
	"os"

	"beans/internal/db"
	"beans/internal/models"
	"beans/internal/services"
	"beans/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type UserHandler struct {
	resolver services.URLResolver
}

func NewUserHandler(resolver services.URLResolver) *UserHandler {
	return &UserHandler{resolver: resolver}
}

type meUpdateInput struct {
	Username  *string `json:"username"`
	Bio       *string `json:"bio"`
	Website   *string `json:"website"`
	AvatarKey *string `json:"avatar_key"`
}

// Me GET /api/me
func (h *UserHandler) Me(c *gin.Context) {
	user := CurrentUser(c)
	c.JSON(http.StatusOK, h.profileJSON(user, nil))
}

// UpdateMe PATCH /api/me — 字段都可选，只更新传了的
func (h *UserHandler) UpdateMe(c *gin.Context) {
	user := CurrentUser(c)

	var input meUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "invalid profile payload")
		return
	}

	if input.Username != nil {
		name := utils.SanitizeText(*input.Username)
		if name == "" {
			BadRequest(c, "username cannot be empty")
			return
		}
		user.Username = name
	}
	if input.Bio != nil {
		user.Bio = utils.SanitizeText(*input.Bio)
	}
	if input.Website != nil {
		user.Website = *input.Website
	}
	if input.AvatarKey != nil {
		store := services.GetObjectStore()
		if *input.AvatarKey != "" && !services.IsIssuedKey(*input.AvatarKey) {
			BadRequest(c, "unknown avatar key")
			return
		}
		if user.AvatarKey != "" && user.AvatarKey != *input.AvatarKey {
			go store.Delete(user.AvatarKey)
		}
		user.AvatarKey = *input.AvatarKey
	}

	if err := db.DB.Save(user).Error; err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.profileJSON(user, nil))
}

// Profile GET /api/users/:uid — 公开主页，带关注数和当前用户的关注状态
func (h *UserHandler) Profile(c *gin.Context) {
	target, ok := findUserByUid(c)
	if !ok {
		return
	}

	var following *bool
	if viewer := OptionalUser(c); viewer != nil && viewer.ID != target.ID {
		f := services.IsFollowing(viewer.ID, target.ID)
		following = &f
	}
	c.JSON(http.StatusOK, h.profileJSON(target, following))
}

func (h *UserHandler) profileJSON(u *models.User, following *bool) gin.H {
	avatarURL := ""
	if u.AvatarKey != "" {
		if url, err := h.resolver.ResolveURL(u.AvatarKey); err == nil {
			avatarURL = url
		}
	}
	followers, followees := services.FollowCounts(u.ID)
	body := gin.H{
		"uid":        u.Uid,
		"username":   u.Username,
		"avatar_url": avatarURL,
		"bio":        u.Bio,
		"website":    u.Website,
		"followers":  followers,
		"following":  followees,
		"created_at": u.CreatedAt,
	}
	if following != nil {
		body["is_following"] = *following
	}
	return body
}

// DeleteByAuthSubject DELETE /hooks/auth/users/:subject
// 账号注销只能由认证服务的回调触发，用共享密钥校验来源。
// 删号是硬删除，帖子逐条删以便触发级联清理。
func (h *UserHandler) DeleteByAuthSubject(c *gin.Context) {
	secret := os.Getenv("AUTH_WEBHOOK_SECRET")
	given := c.GetHeader("X-Webhook-Secret")
	if secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(given)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var user models.User
	if err := db.DB.Where("auth_subject = ?", c.Param("subject")).First(&user).Error; err != nil {
		// 回调可能重放，找不到就当已经删过
		c.Status(http.StatusNoContent)
		return
	}

	var posts []models.Post
	db.DB.Where("user_id = ?", user.ID).Find(&posts)

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		for i := range posts {
			if err := tx.Delete(&posts[i]).Error; err != nil {
				return err
			}
		}
		// 用户自己在别人帖子下的痕迹
		var commentIDs []uint
		tx.Model(&models.Comment{}).Where("user_id = ?", user.ID).Pluck("id", &commentIDs)
		if len(commentIDs) > 0 {
			if err := tx.Where("comment_id IN ?", commentIDs).Delete(&models.CommentMention{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", commentIDs).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
		}
		var likedPostIDs []uint
		tx.Model(&models.Like{}).Where("user_id = ?", user.ID).Pluck("post_id", &likedPostIDs)
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		for _, pid := range likedPostIDs {
			if err := tx.Model(&models.Post{}).Where("id = ?", pid).
				UpdateColumn("likes_count", gorm.Expr("CASE WHEN likes_count > 0 THEN likes_count - 1 ELSE 0 END")).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("follower_id = ? OR followee_id = ?", user.ID, user.ID).Delete(&models.Follow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.DeviceToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? OR actor_id = ?", user.ID, user.ID).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		Fail(c, err)
		return
	}

	if store := services.GetObjectStore(); store.Enabled && user.AvatarKey != "" {
		go store.Delete(user.AvatarKey)
	}
	logrus.WithField("uid", user.Uid).Info("user deleted via auth webhook")
	c.Status(http.StatusNoContent)
}
