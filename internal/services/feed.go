package services

import (
	"errors"
	"fmt"
	"time"

	"beans/internal/db"
	"beans/internal/models"
	"beans/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// URLResolver 把存储引用解析为可访问 URL，生产环境由 ObjectStore 实现
type URLResolver interface {
	ResolveURL(key string) (string, error)
}

// FeedService 读模型组装器：把规范化的行拼成客户端直接渲染的聚合，
// 避免移动端做 N+1 次往返。
type FeedService struct {
	resolver URLResolver
}

func NewFeedService(resolver URLResolver) *FeedService {
	return &FeedService{resolver: resolver}
}

// AuthorCard 嵌在聚合里的作者信息，头像已解析为 URL
type AuthorCard struct {
	Uid       string `json:"uid"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// GearView 器具引用。优先取关联的器具档案；
// 旧数据没有 id 引用时降级为自由文本字段
type GearView struct {
	ID      *uint  `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Details string `json:"details,omitempty"`
}

// FeedPost 信息流里的一条帖子摘要
type FeedPost struct {
	Pid          string              `json:"pid"`
	Author       AuthorCard          `json:"author"`
	BeanName     string              `json:"bean_name"`
	BeanProfile  *models.BeanProfile `json:"bean_profile"`
	Brewer       *GearView           `json:"brewer"`
	Grinder      *GearView           `json:"grinder"`
	Filter       *GearView           `json:"filter"`
	DoseGrams    float64             `json:"dose_grams"`
	WaterGrams   float64             `json:"water_grams"`
	WaterTempC   float64             `json:"water_temp_c"`
	GrindSetting string              `json:"grind_setting"`
	ImageURLs    []string            `json:"image_urls"`
	LikesCount   int                 `json:"likes_count"`
	CommentCount int                 `json:"comment_count"`
	Liked        bool                `json:"liked"`
	CreatedAt    time.Time           `json:"created_at"`
}

// CommentView 详情页里的评论
type CommentView struct {
	Cid         string       `json:"cid"`
	Author      AuthorCard   `json:"author"`
	Content     string       `json:"content"`
	Mentions    []AuthorCard `json:"mentions"`
	ClientToken string       `json:"client_token,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// PostDetails 帖子详情：摘要 + 渲染后的笔记 + 完整步骤 + 评论
type PostDetails struct {
	FeedPost
	NotesHTML string              `json:"notes_html"`
	Steps     []models.RecipeStep `json:"steps"`
	Comments  []CommentView       `json:"comments"`
}

const detailCacheTTL = 5 * time.Minute

func detailCacheKey(pid string) string {
	return fmt.Sprintf("post:detail:shared:%s", pid)
}

// feedPreloads 信息流查询需要的关联
func feedPreloads(q *gorm.DB) *gorm.DB {
	return q.Preload("User").
		Preload("BeanProfile").
		Preload("Brewer").Preload("Grinder").Preload("Filter").
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") })
}

// FeedPage 全站信息流，(created_at, id) 双键降序的 keyset 分页。
// 返回一页摘要和下一页游标（空串表示到底）。
func (s *FeedService) FeedPage(viewerID uint, cursor string, limit int) ([]FeedPost, string, error) {
	q := feedPreloads(db.DB.Model(&models.Post{}))
	return s.page(q, viewerID, cursor, limit)
}

// FollowingFeed 只看关注的人
func (s *FeedService) FollowingFeed(viewerID uint, cursor string, limit int) ([]FeedPost, string, error) {
	q := feedPreloads(db.DB.Model(&models.Post{})).
		Joins("JOIN follows ON follows.followee_id = posts.user_id").
		Where("follows.follower_id = ?", viewerID)
	return s.page(q, viewerID, cursor, limit)
}

// UserPosts 某个用户发布的帖子，排序与信息流一致
func (s *FeedService) UserPosts(viewerID, authorID uint, cursor string, limit int) ([]FeedPost, string, error) {
	q := feedPreloads(db.DB.Model(&models.Post{})).Where("posts.user_id = ?", authorID)
	return s.page(q, viewerID, cursor, limit)
}

func (s *FeedService) page(q *gorm.DB, viewerID uint, cursor string, limit int) ([]FeedPost, string, error) {
	if limit < 1 || limit > 50 {
		limit = 20
	}

	if cursor != "" {
		c, err := utils.DecodeFeedCursor(cursor)
		if err != nil {
			return nil, "", err
		}
		q = q.Where("posts.created_at < ? OR (posts.created_at = ? AND posts.id < ?)",
			c.CreatedAt, c.CreatedAt, c.ID)
	}

	var posts []models.Post
	if err := q.Order("posts.created_at DESC, posts.id DESC").Limit(limit).Find(&posts).Error; err != nil {
		return nil, "", err
	}

	fillCommentCounts(posts)
	likedSet, err := likedPostIDs(viewerID, posts)
	if err != nil {
		return nil, "", err
	}

	items := make([]FeedPost, 0, len(posts))
	for i := range posts {
		fp, err := s.assembleFeedPost(&posts[i], likedSet[posts[i].ID])
		if err != nil {
			return nil, "", err
		}
		items = append(items, fp)
	}

	next := ""
	if len(posts) == limit {
		last := posts[len(posts)-1]
		next = utils.FeedCursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	return items, next, nil
}

// PostDetails 组装帖子详情。共享部分走缓存，viewer 相关的
// liked 标记每次实时查询后注入。
func (s *FeedService) PostDetails(viewerID uint, pid string) (*PostDetails, error) {
	cacheKey := detailCacheKey(pid)
	if cached := utils.GetCache().Get(cacheKey); cached != nil {
		if details, ok := cached.(PostDetails); ok {
			details.Liked = false
			if viewerID > 0 {
				var post models.Post
				if err := db.DB.Select("id").Where("pid = ?", pid).First(&post).Error; err == nil {
					details.Liked = HasLiked(viewerID, post.ID)
				}
			}
			return &details, nil
		}
	}

	var post models.Post
	q := feedPreloads(db.DB.Model(&models.Post{})).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") })
	if err := q.Where("pid = ?", pid).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var commentCount int64
	db.DB.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&commentCount)
	post.CommentCount = int(commentCount)

	fp, err := s.assembleFeedPost(&post, false)
	if err != nil {
		return nil, err
	}

	comments, err := s.assembleComments(post.ID)
	if err != nil {
		return nil, err
	}

	details := PostDetails{
		FeedPost:  fp,
		NotesHTML: utils.RenderNotes(post.Notes),
		Steps:     post.Steps,
		Comments:  comments,
	}
	if details.Steps == nil {
		details.Steps = []models.RecipeStep{}
	}

	utils.GetCache().Set(cacheKey, details, detailCacheTTL)

	if viewerID > 0 {
		details.Liked = HasLiked(viewerID, post.ID)
	}
	return &details, nil
}

// InvalidatePostDetails 帖子或评论变更后主动失效缓存
func InvalidatePostDetails(pid string) {
	utils.GetCache().Delete(detailCacheKey(pid))
}

// assembleFeedPost 拼装单条摘要。作者缺失是硬失败——孤儿帖子说明
// 级联删除出了 bug，静默丢弃只会掩盖问题。
// 图片解析失败统一过滤掉，列表和详情一个策略，绝不用 null 占位。
func (s *FeedService) assembleFeedPost(post *models.Post, liked bool) (FeedPost, error) {
	if post.User.ID == 0 {
		return FeedPost{}, fmt.Errorf("%w: post %s", ErrAuthorMissing, post.Pid)
	}

	beanName := post.BeanName
	if post.BeanProfile != nil {
		beanName = post.BeanProfile.Name
	}

	imageURLs := make([]string, 0, len(post.Images))
	for _, img := range post.Images {
		url, err := s.resolver.ResolveURL(img.StorageKey)
		if err != nil {
			logrus.Warnf("image resolution failed for post %s key %s: %v", post.Pid, img.StorageKey, err)
			continue
		}
		imageURLs = append(imageURLs, url)
	}

	return FeedPost{
		Pid:          post.Pid,
		Author:       s.authorCard(&post.User),
		BeanName:     beanName,
		BeanProfile:  post.BeanProfile,
		Brewer:       gearView(post.Brewer, post.BrewerName, models.GearTypeBrewer),
		Grinder:      gearView(post.Grinder, post.GrinderName, models.GearTypeGrinder),
		Filter:       gearView(post.Filter, post.FilterName, models.GearTypeFilter),
		DoseGrams:    post.DoseGrams,
		WaterGrams:   post.WaterGrams,
		WaterTempC:   post.WaterTempC,
		GrindSetting: post.GrindSetting,
		ImageURLs:    imageURLs,
		LikesCount:   post.LikesCount,
		CommentCount: post.CommentCount,
		Liked:        liked,
		CreatedAt:    post.CreatedAt,
	}, nil
}

func (s *FeedService) assembleComments(postID uint) ([]CommentView, error) {
	var comments []models.Comment
	err := db.DB.Preload("User").
		Preload("Mentions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Mentions.User").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}

	views := make([]CommentView, 0, len(comments))
	for i := range comments {
		views = append(views, s.commentView(&comments[i]))
	}
	return views, nil
}

func (s *FeedService) commentView(c *models.Comment) CommentView {
	mentions := make([]AuthorCard, 0, len(c.Mentions))
	for _, m := range c.Mentions {
		if m.User.ID == 0 {
			continue // 被 @ 的用户已注销
		}
		mentions = append(mentions, s.authorCard(&m.User))
	}
	token := ""
	if c.ClientToken != nil {
		token = *c.ClientToken
	}
	return CommentView{
		Cid:         c.Cid,
		Author:      s.authorCard(&c.User),
		Content:     c.Content,
		Mentions:    mentions,
		ClientToken: token,
		CreatedAt:   c.CreatedAt,
	}
}

func (s *FeedService) authorCard(u *models.User) AuthorCard {
	avatarURL := ""
	if u.AvatarKey != "" {
		url, err := s.resolver.ResolveURL(u.AvatarKey)
		if err == nil {
			avatarURL = url
		}
	}
	return AuthorCard{Uid: u.Uid, Username: u.Username, AvatarURL: avatarURL}
}

func gearView(g *models.Gear, legacyName string, t models.GearType) *GearView {
	if g != nil && g.ID != 0 {
		return &GearView{ID: &g.ID, Name: g.Name, Type: string(g.Type), Details: g.Details}
	}
	if legacyName != "" {
		return &GearView{Name: legacyName, Type: string(t)}
	}
	return nil
}

// fillCommentCounts 批量填充帖子的评论数量
func fillCommentCounts(posts []models.Post) {
	if len(posts) == 0 {
		return
	}

	postIDs := make([]uint, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
	}

	type countResult struct {
		PostID uint
		Count  int
	}
	var results []countResult
	db.DB.Model(&models.Comment{}).
		Select("post_id, COUNT(*) as count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&results)

	countMap := make(map[uint]int)
	for _, r := range results {
		countMap[r.PostID] = r.Count
	}

	for i := range posts {
		posts[i].CommentCount = countMap[posts[i].ID]
	}
}

// likedPostIDs 批量查询 viewer 点赞过的帖子集合
func likedPostIDs(viewerID uint, posts []models.Post) (map[uint]bool, error) {
	set := make(map[uint]bool)
	if viewerID == 0 || len(posts) == 0 {
		return set, nil
	}

	postIDs := make([]uint, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
	}

	var likes []models.Like
	if err := db.DB.Where("user_id = ? AND post_id IN ?", viewerID, postIDs).Find(&likes).Error; err != nil {
		return nil, err
	}
	for _, l := range likes {
		set[l.PostID] = true
	}
	return set, nil
}
