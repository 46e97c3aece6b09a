package handlers

import (
	"net/http"

	"beans/internal/services"
	"beans/internal/utils"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	comments *services.CommentService
}

func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

type createCommentInput struct {
	Content string `json:"content" binding:"required"`
	// 客户端生成的关联令牌，重试幂等 + 乐观更新对账
	ClientToken string `json:"client_token" binding:"max=64"`
}

// Create POST /api/posts/:pid/comments
func (h *CommentHandler) Create(c *gin.Context) {
	user := CurrentUser(c)

	var input createCommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "comment content required")
		return
	}
	if utils.SanitizeText(input.Content) == "" {
		BadRequest(c, "comment content required")
		return
	}

	comment, err := h.comments.Create(user, c.Param("pid"), input.Content, input.ClientToken)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// Delete DELETE /api/comments/:cid
func (h *CommentHandler) Delete(c *gin.Context) {
	user := CurrentUser(c)
	if err := h.comments.Delete(user, c.Param("cid")); err != nil {
		Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
