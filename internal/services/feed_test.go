package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"beans/internal/db"
	"beans/internal/models"
	"beans/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubResolver 测试用的 URL 解析器，指定 key 可以模拟解析失败
type stubResolver struct {
	fail map[string]bool
}

func (r stubResolver) ResolveURL(key string) (string, error) {
	if r.fail[key] {
		return "", errors.New("object gone")
	}
	return "https://cdn.test/" + key, nil
}

func newTestFeed(failKeys ...string) *FeedService {
	fail := make(map[string]bool)
	for _, k := range failKeys {
		fail[k] = true
	}
	return NewFeedService(stubResolver{fail: fail})
}

func TestFeedPageKeysetPagination(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")

	base := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		createPostAt(t, author, fmt.Sprintf("bean-%02d", i), base.Add(time.Duration(i)*time.Minute))
	}

	feed := newTestFeed()

	page1, cursor1, err := feed.FeedPage(0, "", 10)
	require.NoError(t, err)
	require.Len(t, page1, 10)
	require.NotEmpty(t, cursor1)
	// 最新的在最前
	assert.Equal(t, "bean-24", page1[0].BeanName)

	page2, cursor2, err := feed.FeedPage(0, cursor1, 10)
	require.NoError(t, err)
	require.Len(t, page2, 10)
	require.NotEmpty(t, cursor2)

	page3, cursor3, err := feed.FeedPage(0, cursor2, 10)
	require.NoError(t, err)
	assert.Len(t, page3, 5)
	assert.Empty(t, cursor3)

	// 三页拼起来无重复无遗漏
	seen := make(map[string]bool)
	for _, p := range [][]FeedPost{page1, page2, page3} {
		for _, item := range p {
			assert.False(t, seen[item.BeanName], "duplicate %s", item.BeanName)
			seen[item.BeanName] = true
		}
	}
	assert.Len(t, seen, 25)
}

func TestFeedCursorStableAcrossInserts(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")

	base := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		createPostAt(t, author, fmt.Sprintf("bean-%02d", i), base.Add(time.Duration(i)*time.Minute))
	}

	feed := newTestFeed()
	page1, cursor, err := feed.FeedPage(0, "", 5)
	require.NoError(t, err)
	require.Len(t, page1, 5)

	// 翻页间隙来了新帖，老游标的下一页不受影响
	createPostAt(t, author, "bean-new", base.Add(time.Hour))

	page2, _, err := feed.FeedPage(0, cursor, 5)
	require.NoError(t, err)
	require.Len(t, page2, 5)
	for _, item := range page2 {
		assert.NotEqual(t, "bean-new", item.BeanName)
		for _, prev := range page1 {
			assert.NotEqual(t, prev.BeanName, item.BeanName)
		}
	}

	// 同一个游标重复请求返回同一页
	again, _, err := feed.FeedPage(0, cursor, 5)
	require.NoError(t, err)
	assert.Equal(t, page2, again)
}

func TestFeedTieBreakOnEqualTimestamps(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")

	at := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	a := createPostAt(t, author, "same-a", at)
	b := createPostAt(t, author, "same-b", at)
	c := createPostAt(t, author, "same-c", at)

	feed := newTestFeed()
	page1, cursor, err := feed.FeedPage(0, "", 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	// 时间相同按 id 降序
	assert.Equal(t, c.Pid, page1[0].Pid)
	assert.Equal(t, b.Pid, page1[1].Pid)

	page2, _, err := feed.FeedPage(0, cursor, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, a.Pid, page2[0].Pid)
}

func TestFeedInvalidCursor(t *testing.T) {
	setupTestDB(t)
	feed := newTestFeed()

	_, _, err := feed.FeedPage(0, "not-base64!!", 10)
	assert.Error(t, err)
}

func TestFailedImageResolutionsFiltered(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")
	post := createPost(t, author, "Caturra")

	keys := []string{"images/" + utils.RandID(8), "images/" + utils.RandID(8), "images/" + utils.RandID(8)}
	for i, k := range keys {
		require.NoError(t, db.DB.Create(&models.PostImage{PostID: post.ID, StorageKey: k, Position: i}).Error)
	}

	// 中间那张解析失败，应该被整个过滤掉而不是留 null 占位
	feed := newTestFeed(keys[1])
	items, _, err := feed.FeedPage(0, "", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Len(t, items[0].ImageURLs, 2)
	assert.Equal(t, "https://cdn.test/"+keys[0], items[0].ImageURLs[0])
	assert.Equal(t, "https://cdn.test/"+keys[2], items[0].ImageURLs[1])
}

func TestOrphanPostIsHardFailure(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")
	post := createPost(t, author, "orphan")
	// 绕过级联直接删作者，制造孤儿帖子
	require.NoError(t, db.DB.Unscoped().Delete(author).Error)
	_ = post

	feed := newTestFeed()
	_, _, err := feed.FeedPage(0, "", 10)
	assert.ErrorIs(t, err, ErrAuthorMissing)
}

func TestFeedLikedFlagPerViewer(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")
	bob := createUser(t, "bob")
	carol := createUser(t, "carol")
	post := createPost(t, author, "Typica")

	_, err := LikePost(bob.ID, post.ID)
	require.NoError(t, err)

	feed := newTestFeed()

	forBob, _, err := feed.FeedPage(bob.ID, "", 10)
	require.NoError(t, err)
	assert.True(t, forBob[0].Liked)
	assert.Equal(t, 1, forBob[0].LikesCount)

	forCarol, _, err := feed.FeedPage(carol.ID, "", 10)
	require.NoError(t, err)
	assert.False(t, forCarol[0].Liked)

	anonymous, _, err := feed.FeedPage(0, "", 10)
	require.NoError(t, err)
	assert.False(t, anonymous[0].Liked)
}

func TestFollowingFeedOnlyFollowees(t *testing.T) {
	setupTestDB(t)
	alice := createUser(t, "alice")
	bob := createUser(t, "bob")
	carol := createUser(t, "carol")

	createPost(t, bob, "from-bob")
	createPost(t, carol, "from-carol")
	require.NoError(t, FollowUser(alice.ID, bob.ID))

	feed := newTestFeed()
	items, _, err := feed.FollowingFeed(alice.ID, "", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "from-bob", items[0].BeanName)
}

func TestBeanProfileNameWinsOverFreeText(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")

	profile := models.BeanProfile{UserID: author.ID, Name: "Chelbesa Natural", Roaster: "SEY"}
	require.NoError(t, db.DB.Create(&profile).Error)

	post := createPost(t, author, "stale free text")
	require.NoError(t, db.DB.Model(post).UpdateColumn("bean_profile_id", profile.ID).Error)

	feed := newTestFeed()
	items, _, err := feed.FeedPage(0, "", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Chelbesa Natural", items[0].BeanName)
	require.NotNil(t, items[0].BeanProfile)
	assert.Equal(t, "SEY", items[0].BeanProfile.Roaster)
}

func TestGearViewLegacyFallback(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")

	grinder := models.Gear{UserID: author.ID, Name: "Comandante C40", Type: models.GearTypeGrinder}
	require.NoError(t, db.DB.Create(&grinder).Error)

	post := createPost(t, author, "mix")
	require.NoError(t, db.DB.Model(post).Updates(map[string]interface{}{
		"grinder_id":  grinder.ID,
		"brewer_name": "V60 02", // 老数据只有自由文本
	}).Error)

	feed := newTestFeed()
	items, _, err := feed.FeedPage(0, "", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)

	fp := items[0]
	require.NotNil(t, fp.Grinder)
	assert.Equal(t, "Comandante C40", fp.Grinder.Name)
	require.NotNil(t, fp.Grinder.ID)

	require.NotNil(t, fp.Brewer)
	assert.Equal(t, "V60 02", fp.Brewer.Name)
	assert.Nil(t, fp.Brewer.ID)

	assert.Nil(t, fp.Filter)
}

func TestPostDetailsAssemblyAndCache(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")
	bob := createUser(t, "bob")
	post := createPost(t, author, "Sidra")
	require.NoError(t, db.DB.Model(post).UpdateColumn("notes", "silky body with **jasmine**").Error)

	steps := []models.RecipeStep{
		{PostID: post.ID, Position: 0, OffsetSec: 0, Label: "bloom", WaterGrams: 45},
		{PostID: post.ID, Position: 1, OffsetSec: 45, Label: "main pour", WaterGrams: 180},
	}
	require.NoError(t, db.DB.Create(&steps).Error)

	feed := newTestFeed()

	details, err := feed.PostDetails(0, post.Pid)
	require.NoError(t, err)
	require.Len(t, details.Steps, 2)
	assert.Equal(t, "bloom", details.Steps[0].Label)
	assert.Contains(t, details.NotesHTML, "<strong>jasmine</strong>")
	assert.False(t, details.Liked)

	// liked 是 viewer 维度的，不能从共享缓存里带出来
	_, err = LikePost(bob.ID, post.ID)
	require.NoError(t, err)
	InvalidatePostDetails(post.Pid)

	forBob, err := feed.PostDetails(bob.ID, post.Pid)
	require.NoError(t, err)
	assert.True(t, forBob.Liked)

	cached, err := feed.PostDetails(0, post.Pid)
	require.NoError(t, err)
	assert.False(t, cached.Liked)
	assert.Equal(t, 1, cached.LikesCount)
}

func TestPostDetailsNotFound(t *testing.T) {
	setupTestDB(t)
	feed := newTestFeed()

	_, err := feed.PostDetails(0, "missing1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserPostsScopedToAuthor(t *testing.T) {
	setupTestDB(t)
	alice := createUser(t, "alice")
	bob := createUser(t, "bob")
	createPost(t, alice, "mine")
	createPost(t, bob, "theirs")

	feed := newTestFeed()
	items, _, err := feed.UserPosts(0, alice.ID, "", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "mine", items[0].BeanName)
}
