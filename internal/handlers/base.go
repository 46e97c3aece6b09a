package handlers

import (
	"errors"
	"net/http"

	"beans/internal/middleware"
	"beans/internal/models"
	"beans/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CurrentUser 取中间件注入的当前用户
func CurrentUser(c *gin.Context) *models.User {
	return c.MustGet(middleware.CheckUserKey).(*models.User)
}

// OptionalUser 公开页面也能带登录态访问，没登录返回 nil
func OptionalUser(c *gin.Context) *models.User {
	if user, exists := c.Get(middleware.CheckUserKey); exists && user != nil {
		return user.(*models.User)
	}
	return nil
}

// Fail 统一的错误出口：服务层的错误分类映射为 HTTP 状态码，
// 客户端转成 toast 提示。
func Fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
	case errors.Is(err, services.ErrAlreadyLiked):
		c.JSON(http.StatusConflict, gin.H{"error": "already_liked"})
	case errors.Is(err, services.ErrLikeNotFound):
		c.JSON(http.StatusConflict, gin.H{"error": "like_not_found"})
	case errors.Is(err, services.ErrSelfFollow):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot follow yourself"})
	case errors.Is(err, services.ErrAuthorMissing):
		// 孤儿帖子是级联删除的 bug，不吞
		logrus.Errorf("view assembly failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		logrus.Errorf("unhandled error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// BadRequest 参数校验失败
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
