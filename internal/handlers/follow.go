package handlers

import (
	"net/http"

	"beans/internal/db"
	"beans/internal/models"
	"beans/internal/services"
	"beans/internal/utils"

	"github.com/gin-gonic/gin"
)

type FollowHandler struct{}

func NewFollowHandler() *FollowHandler {
	return &FollowHandler{}
}

func findUserByUid(c *gin.Context) (*models.User, bool) {
	var user models.User
	if err := db.DB.Where("uid = ?", c.Param("uid")).First(&user).Error; err != nil {
		Fail(c, services.ErrNotFound)
		return nil, false
	}
	return &user, true
}

// Follow POST /api/users/:uid/follow
// 重复关注幂等；响应带权威的 following 布尔值，乐观翻转的客户端靠它收敛
func (h *FollowHandler) Follow(c *gin.Context) {
	user := CurrentUser(c)
	target, ok := findUserByUid(c)
	if !ok {
		return
	}

	if err := services.FollowUser(user.ID, target.ID); err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": true})
}

// Unfollow DELETE /api/users/:uid/follow
func (h *FollowHandler) Unfollow(c *gin.Context) {
	user := CurrentUser(c)
	target, ok := findUserByUid(c)
	if !ok {
		return
	}

	if err := services.UnfollowUser(user.ID, target.ID); err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": false})
}

// Followers GET /api/users/:uid/followers?page=
func (h *FollowHandler) Followers(c *gin.Context) {
	target, ok := findUserByUid(c)
	if !ok {
		return
	}
	page := utils.QueryInt(c.Query("page"))
	if page < 1 {
		page = 1
	}
	perPage := 30

	users, err := services.ListFollowers(target.ID, (page-1)*perPage, perPage)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": userCards(users), "page": page})
}

// Following GET /api/users/:uid/following?page=
func (h *FollowHandler) Following(c *gin.Context) {
	target, ok := findUserByUid(c)
	if !ok {
		return
	}
	page := utils.QueryInt(c.Query("page"))
	if page < 1 {
		page = 1
	}
	perPage := 30

	users, err := services.ListFollowing(target.ID, (page-1)*perPage, perPage)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": userCards(users), "page": page})
}

func userCards(users []models.User) []gin.H {
	cards := make([]gin.H, 0, len(users))
	for _, u := range users {
		cards = append(cards, gin.H{"uid": u.Uid, "username": u.Username})
	}
	return cards
}
