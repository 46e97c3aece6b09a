package handlers

import (
	"net/http"

	"beans/internal/db"
	"beans/internal/middleware"
	"beans/internal/models"
	"beans/internal/services"
	"beans/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PostHandler struct {
	feed  *services.FeedService
	store *services.ObjectStore
}

func NewPostHandler(feed *services.FeedService, store *services.ObjectStore) *PostHandler {
	return &PostHandler{feed: feed, store: store}
}

// viewerID 信息流对未登录用户可读，liked 标记按 0 处理
func viewerID(c *gin.Context) uint {
	if user, exists := c.Get(middleware.CheckUserKey); exists && user != nil {
		return user.(*models.User).ID
	}
	return 0
}

// Feed 全站信息流 GET /api/feed?cursor=&limit=
func (h *PostHandler) Feed(c *gin.Context) {
	items, next, err := h.feed.FeedPage(viewerID(c), c.Query("cursor"), utils.QueryInt(c.Query("limit")))
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "next_cursor": next})
}

// FollowingFeed 关注流 GET /api/feed/following
func (h *PostHandler) FollowingFeed(c *gin.Context) {
	user := CurrentUser(c)
	items, next, err := h.feed.FollowingFeed(user.ID, c.Query("cursor"), utils.QueryInt(c.Query("limit")))
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "next_cursor": next})
}

// UserPosts 某用户的帖子 GET /api/users/:uid/posts
func (h *PostHandler) UserPosts(c *gin.Context) {
	var author models.User
	if err := db.DB.Where("uid = ?", c.Param("uid")).First(&author).Error; err != nil {
		Fail(c, services.ErrNotFound)
		return
	}
	items, next, err := h.feed.UserPosts(viewerID(c), author.ID, c.Query("cursor"), utils.QueryInt(c.Query("limit")))
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "next_cursor": next})
}

// MyPosts GET /api/me/posts
func (h *PostHandler) MyPosts(c *gin.Context) {
	user := CurrentUser(c)
	items, next, err := h.feed.UserPosts(user.ID, user.ID, c.Query("cursor"), utils.QueryInt(c.Query("limit")))
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "next_cursor": next})
}

// Detail GET /api/posts/:pid
func (h *PostHandler) Detail(c *gin.Context) {
	details, err := h.feed.PostDetails(viewerID(c), c.Param("pid"))
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

type recipeStepInput struct {
	OffsetSec  int     `json:"offset_sec" binding:"min=0"`
	Label      string  `json:"label" binding:"required"`
	WaterGrams float64 `json:"water_grams"`
}

type postImageInput struct {
	Key         string `json:"key" binding:"required"`
	ContentType string `json:"content_type"`
}

type postInput struct {
	BeanName      string  `json:"bean_name"`
	BeanProfileID *uint   `json:"bean_profile_id"`
	BrewerID      *uint   `json:"brewer_id"`
	GrinderID     *uint   `json:"grinder_id"`
	FilterID      *uint   `json:"filter_id"`
	BrewerName    string  `json:"brewer_name"`
	GrinderName   string  `json:"grinder_name"`
	FilterName    string  `json:"filter_name"`
	DoseGrams     float64 `json:"dose_grams" binding:"min=0"`
	WaterGrams    float64 `json:"water_grams" binding:"min=0"`
	WaterTempC    float64 `json:"water_temp_c"`
	GrindSetting  string  `json:"grind_setting"`
	Notes         string  `json:"notes"`

	Steps  []recipeStepInput `json:"steps"`
	Images []postImageInput  `json:"images"`
}

// Create POST /api/posts
// 图片必须先经 /api/uploads 直传完成，引用非法直接拒绝整个帖子
func (h *PostHandler) Create(c *gin.Context) {
	user := CurrentUser(c)

	var input postInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "invalid post payload")
		return
	}
	if input.BeanName == "" && input.BeanProfileID == nil {
		BadRequest(c, "bean name or bean profile required")
		return
	}
	for _, img := range input.Images {
		if !services.IsIssuedKey(img.Key) {
			BadRequest(c, "unknown image reference")
			return
		}
	}

	post := models.Post{
		Pid:    utils.RandID(8),
		UserID: user.ID,
	}
	if err := h.applyInput(&post, user, &input); err != nil {
		Fail(c, err)
		return
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		for i, step := range input.Steps {
			s := models.RecipeStep{
				PostID:     post.ID,
				Position:   i,
				OffsetSec:  step.OffsetSec,
				Label:      step.Label,
				WaterGrams: step.WaterGrams,
			}
			if err := tx.Create(&s).Error; err != nil {
				return err
			}
		}
		for i, img := range input.Images {
			pi := models.PostImage{
				PostID:      post.ID,
				StorageKey:  img.Key,
				ContentType: img.ContentType,
				Position:    i,
			}
			if err := tx.Create(&pi).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		Fail(c, err)
		return
	}

	details, err := h.feed.PostDetails(user.ID, post.Pid)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, details)
}

// Update POST /api/posts/:pid — 只允许作者，步骤整组替换，图片不动
func (h *PostHandler) Update(c *gin.Context) {
	user := CurrentUser(c)

	var post models.Post
	if err := db.DB.Where("pid = ?", c.Param("pid")).First(&post).Error; err != nil {
		Fail(c, services.ErrNotFound)
		return
	}
	if post.UserID != user.ID {
		Fail(c, services.ErrForbidden)
		return
	}

	var input postInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "invalid post payload")
		return
	}
	if err := h.applyInput(&post, user, &input); err != nil {
		Fail(c, err)
		return
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&post).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.RecipeStep{}).Error; err != nil {
			return err
		}
		for i, step := range input.Steps {
			s := models.RecipeStep{
				PostID:     post.ID,
				Position:   i,
				OffsetSec:  step.OffsetSec,
				Label:      step.Label,
				WaterGrams: step.WaterGrams,
			}
			if err := tx.Create(&s).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		Fail(c, err)
		return
	}

	services.InvalidatePostDetails(post.Pid)

	details, err := h.feed.PostDetails(user.ID, post.Pid)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// applyInput 校验引用归属后回填帖子字段。
// 关联的豆卡/器具必须属于当前用户，器具类型必须匹配字段
func (h *PostHandler) applyInput(post *models.Post, user *models.User, input *postInput) error {
	if input.BeanProfileID != nil {
		var bp models.BeanProfile
		if err := db.DB.First(&bp, *input.BeanProfileID).Error; err != nil {
			return services.ErrNotFound
		}
		if bp.UserID != user.ID {
			return services.ErrForbidden
		}
	}
	for _, ref := range []struct {
		id       *uint
		wantType models.GearType
	}{
		{input.BrewerID, models.GearTypeBrewer},
		{input.GrinderID, models.GearTypeGrinder},
		{input.FilterID, models.GearTypeFilter},
	} {
		if ref.id == nil {
			continue
		}
		var gear models.Gear
		if err := db.DB.First(&gear, *ref.id).Error; err != nil {
			return services.ErrNotFound
		}
		if gear.UserID != user.ID || gear.Type != ref.wantType {
			return services.ErrForbidden
		}
	}

	post.BeanName = input.BeanName
	post.BeanProfileID = input.BeanProfileID
	post.BrewerID = input.BrewerID
	post.GrinderID = input.GrinderID
	post.FilterID = input.FilterID
	post.BrewerName = input.BrewerName
	post.GrinderName = input.GrinderName
	post.FilterName = input.FilterName
	post.DoseGrams = input.DoseGrams
	post.WaterGrams = input.WaterGrams
	post.WaterTempC = input.WaterTempC
	post.GrindSetting = input.GrindSetting
	post.Notes = input.Notes
	return nil
}

// Delete DELETE /api/posts/:pid
// 删除钩子在同一事务里清掉图片/步骤/评论/点赞行；
// 对象存储里的字节随后 best-effort 清理
func (h *PostHandler) Delete(c *gin.Context) {
	user := CurrentUser(c)

	var post models.Post
	if err := db.DB.Where("pid = ?", c.Param("pid")).First(&post).Error; err != nil {
		Fail(c, services.ErrNotFound)
		return
	}
	if post.UserID != user.ID {
		Fail(c, services.ErrForbidden)
		return
	}

	var keys []string
	db.DB.Model(&models.PostImage{}).Where("post_id = ?", post.ID).Pluck("storage_key", &keys)

	if err := db.DB.Delete(&post).Error; err != nil {
		Fail(c, err)
		return
	}

	services.InvalidatePostDetails(post.Pid)

	go func(keys []string) {
		for _, key := range keys {
			_ = h.store.Delete(key)
		}
	}(keys)

	c.Status(http.StatusNoContent)
}
