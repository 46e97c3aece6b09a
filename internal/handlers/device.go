package handlers

import (
	"errors"
	"net/http"

	"beans/internal/db"
	"beans/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type DeviceHandler struct{}

func NewDeviceHandler() *DeviceHandler {
	return &DeviceHandler{}
}

type deviceInput struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform" binding:"required,oneof=ios android"`
}

// Register POST /api/devices
// 设备换人登录时 token 归属跟着转移，同一台设备永远只推给当前登录的账号。
func (h *DeviceHandler) Register(c *gin.Context) {
	user := CurrentUser(c)

	var input deviceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "device token and platform required")
		return
	}

	var device models.DeviceToken
	err := db.DB.Where("token = ?", input.Token).First(&device).Error
	switch {
	case err == nil:
		device.UserID = user.ID
		device.Platform = input.Platform
		err = db.DB.Save(&device).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		device = models.DeviceToken{
			UserID:   user.ID,
			Token:    input.Token,
			Platform: input.Platform,
		}
		err = db.DB.Create(&device).Error
		// 并发注册撞了唯一索引，改走转移
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = db.DB.Model(&models.DeviceToken{}).Where("token = ?", input.Token).
				Update("user_id", user.ID).Error
		}
	}
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registered": true})
}

// Unregister DELETE /api/devices/:token — 退出登录时调用，幂等
func (h *DeviceHandler) Unregister(c *gin.Context) {
	user := CurrentUser(c)

	db.DB.Where("token = ? AND user_id = ?", c.Param("token"), user.ID).
		Delete(&models.DeviceToken{})
	c.Status(http.StatusNoContent)
}
