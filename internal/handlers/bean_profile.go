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

type BeanProfileHandler struct{}

func NewBeanProfileHandler() *BeanProfileHandler {
	return &BeanProfileHandler{}
}

type beanProfileInput struct {
	Name      string `json:"name" binding:"required"`
	Roaster   string `json:"roaster"`
	Origin    string `json:"origin"`
	Producer  string `json:"producer"`
	Farm      string `json:"farm"`
	Process   string `json:"process"`
	Variety   string `json:"variety"`
	Elevation string `json:"elevation"`
}

// List GET /api/beans — 只列自己的豆卡
func (h *BeanProfileHandler) List(c *gin.Context) {
	user := CurrentUser(c)

	var profiles []models.BeanProfile
	db.DB.Where("user_id = ?", user.ID).Order("updated_at DESC").Find(&profiles)
	c.JSON(http.StatusOK, gin.H{"items": profiles})
}

// Create POST /api/beans
func (h *BeanProfileHandler) Create(c *gin.Context) {
	user := CurrentUser(c)

	var input beanProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "bean name required")
		return
	}

	profile := models.BeanProfile{UserID: user.ID}
	applyBeanInput(&profile, &input)

	if err := db.DB.Create(&profile).Error; err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

// Update POST /api/beans/:id
func (h *BeanProfileHandler) Update(c *gin.Context) {
	user := CurrentUser(c)

	profile, ok := h.findOwned(c, user)
	if !ok {
		return
	}

	var input beanProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "bean name required")
		return
	}
	applyBeanInput(profile, &input)

	if err := db.DB.Save(profile).Error; err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Delete DELETE /api/beans/:id — 引用它的帖子外键置空，降级回自由文本
func (h *BeanProfileHandler) Delete(c *gin.Context) {
	user := CurrentUser(c)

	profile, ok := h.findOwned(c, user)
	if !ok {
		return
	}

	if err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).Where("bean_profile_id = ?", profile.ID).
			Updates(map[string]interface{}{"bean_profile_id": nil, "bean_name": profile.Name}).Error; err != nil {
			return err
		}
		return tx.Delete(profile).Error
	}); err != nil {
		Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BeanProfileHandler) findOwned(c *gin.Context, user *models.User) (*models.BeanProfile, bool) {
	var profile models.BeanProfile
	if err := db.DB.First(&profile, utils.QueryInt(c.Param("id"))).Error; err != nil {
		Fail(c, services.ErrNotFound)
		return nil, false
	}
	if profile.UserID != user.ID {
		Fail(c, services.ErrForbidden)
		return nil, false
	}
	return &profile, true
}

func applyBeanInput(p *models.BeanProfile, in *beanProfileInput) {
	p.Name = in.Name
	p.Roaster = in.Roaster
	p.Origin = in.Origin
	p.Producer = in.Producer
	p.Farm = in.Farm
	p.Process = in.Process
	p.Variety = in.Variety
	p.Elevation = in.Elevation
}
