package handlers

import (
	"net/http"

	"beans/internal/db"
	"beans/internal/models"
	"beans/internal/services"
	"beans/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type GearHandler struct{}

func NewGearHandler() *GearHandler {
	return &GearHandler{}
}

type gearInput struct {
	Name    string `json:"name" binding:"required"`
	Type    string `json:"type" binding:"required,oneof=grinder brewer filter"`
	Details string `json:"details"`
}

// List GET /api/gear — 只列自己的器具，可按 type 过滤
func (h *GearHandler) List(c *gin.Context) {
	user := CurrentUser(c)

	query := db.DB.Where("user_id = ?", user.ID)
	if t := c.Query("type"); t != "" {
		query = query.Where("type = ?", t)
	}
	var items []models.Gear
	query.Order("updated_at DESC").Find(&items)
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Create POST /api/gear
func (h *GearHandler) Create(c *gin.Context) {
	user := CurrentUser(c)

	var input gearInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "gear name and type required")
		return
	}

	gear := models.Gear{
		UserID:  user.ID,
		Name:    input.Name,
		Type:    models.GearType(input.Type),
		Details: input.Details,
	}
	if err := db.DB.Create(&gear).Error; err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gear)
}

// Update POST /api/gear/:id — type 固定不变，磨豆机不会变成滤杯
func (h *GearHandler) Update(c *gin.Context) {
	user := CurrentUser(c)

	gear, ok := h.findOwned(c, user)
	if !ok {
		return
	}

	var input gearInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "gear name and type required")
		return
	}
	if models.GearType(input.Type) != gear.Type {
		BadRequest(c, "gear type cannot change")
		return
	}
	gear.Name = input.Name
	gear.Details = input.Details

	if err := db.DB.Save(gear).Error; err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gear)
}

// Delete DELETE /api/gear/:id — 引用的帖子降级到快照名，保住历史显示
func (h *GearHandler) Delete(c *gin.Context) {
	user := CurrentUser(c)

	gear, ok := h.findOwned(c, user)
	if !ok {
		return
	}

	var column, nameColumn string
	switch gear.Type {
	case models.GearTypeGrinder:
		column, nameColumn = "grinder_id", "grinder_name"
	case models.GearTypeBrewer:
		column, nameColumn = "brewer_id", "brewer_name"
	case models.GearTypeFilter:
		column, nameColumn = "filter_id", "filter_name"
	}

	if err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).Where(column+" = ?", gear.ID).
			Updates(map[string]interface{}{column: nil, nameColumn: gear.Name}).Error; err != nil {
			return err
		}
		return tx.Delete(gear).Error
	}); err != nil {
		Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GearHandler) findOwned(c *gin.Context, user *models.User) (*models.Gear, bool) {
	var gear models.Gear
	if err := db.DB.First(&gear, utils.QueryInt(c.Param("id"))).Error; err != nil {
		Fail(c, services.ErrNotFound)
		return nil, false
	}
	if gear.UserID != user.ID {
		Fail(c, services.ErrForbidden)
		return nil, false
	}
	return &gear, true
}
