package handlers

import (
	"net/http"

	"beans/internal/db"
	"beans/internal/models"
	"beans/internal/services"

	"github.com/gin-gonic/gin"
)

type LikeHandler struct{}

func NewLikeHandler() *LikeHandler {
	return &LikeHandler{}
}

func findPostByPid(c *gin.Context) (*models.Post, bool) {
	var post models.Post
	if err := db.DB.Where("pid = ?", c.Param("pid")).First(&post).Error; err != nil {
		Fail(c, services.ErrNotFound)
		return nil, false
	}
	return &post, true
}

// Like POST /api/posts/:pid/like
// 重复点赞返回 409 already_liked——双击竞态对客户端无害，
// 收到这个码直接按已点赞收敛即可
func (h *LikeHandler) Like(c *gin.Context) {
	user := CurrentUser(c)
	post, ok := findPostByPid(c)
	if !ok {
		return
	}

	count, err := services.LikePost(user.ID, post.ID)
	if err != nil {
		Fail(c, err)
		return
	}

	services.InvalidatePostDetails(post.Pid)
	c.JSON(http.StatusOK, gin.H{"liked": true, "likes_count": count})
}

// Unlike DELETE /api/posts/:pid/like
func (h *LikeHandler) Unlike(c *gin.Context) {
	user := CurrentUser(c)
	post, ok := findPostByPid(c)
	if !ok {
		return
	}

	count, err := services.UnlikePost(user.ID, post.ID)
	if err != nil {
		Fail(c, err)
		return
	}

	services.InvalidatePostDetails(post.Pid)
	c.JSON(http.StatusOK, gin.H{"liked": false, "likes_count": count})
}
