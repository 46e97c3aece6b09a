package handlers

import (
	"net/http"
	"strings"

	"beans/internal/services"

	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	store *services.ObjectStore
}

func NewUploadHandler(store *services.ObjectStore) *UploadHandler {
	return &UploadHandler{store: store}
}

type uploadInput struct {
	ContentType string `json:"content_type" binding:"required"`
}

// Create POST /api/uploads
// 客户端先来这里换一个预签名直传地址，上传完再把 key 挂到帖子或头像上。
func (h *UploadHandler) Create(c *gin.Context) {
	if !h.store.Enabled {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "uploads disabled"})
		return
	}

	var input uploadInput
	if err := c.ShouldBindJSON(&input); err != nil || !strings.HasPrefix(input.ContentType, "image/") {
		BadRequest(c, "image content_type required")
		return
	}

	key, url, err := h.store.IssueUploadURL(input.ContentType)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"key": key, "upload_url": url})
}
