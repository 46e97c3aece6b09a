package handlers

import (
	"net/http"

	"beans/internal/db"
	"beans/internal/models"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct{}

func NewNotificationHandler() *NotificationHandler {
	return &NotificationHandler{}
}

// List GET /api/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	user := CurrentUser(c)

	var notifications []models.Notification
	db.DB.Preload("Actor").
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Limit(50).
		Find(&notifications)

	var unread int64
	db.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", user.ID, false).
		Count(&unread)

	c.JSON(http.StatusOK, gin.H{"items": notifications, "unread": unread})
}

// Read POST /api/notifications/:id/read
func (h *NotificationHandler) Read(c *gin.Context) {
	user := CurrentUser(c)

	var notification models.Notification
	if err := db.DB.Where("id = ? AND user_id = ?", c.Param("id"), user.ID).First(&notification).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	notification.IsRead = true
	db.DB.Save(&notification)
	c.Status(http.StatusNoContent)
}

// ReadAll POST /api/notifications/read_all
func (h *NotificationHandler) ReadAll(c *gin.Context) {
	user := CurrentUser(c)

	db.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", user.ID, false).
		Update("is_read", true)
	c.Status(http.StatusNoContent)
}

// Delete DELETE /api/notifications/:id
func (h *NotificationHandler) Delete(c *gin.Context) {
	user := CurrentUser(c)

	db.DB.Where("id = ? AND user_id = ?", c.Param("id"), user.ID).
		Delete(&models.Notification{})
	c.Status(http.StatusNoContent)
}
