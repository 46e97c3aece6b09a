package services

import (
	"testing"

	"beans/internal/db"
	"beans/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestComments() *CommentService {
	// 测试环境没有推送配置，PushService 自动降级为 disabled
	return NewCommentService(NewPushService())
}

func TestCreateCommentWithMentions(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")
	bob := createUser(t, "bob")
	carol := createUser(t, "carol")
	post := createPost(t, author, "Ethiopia")

	svc := newTestComments()
	comment, err := svc.Create(bob, post.Pid, "@carol check this ratio, also @alice nice pour", "")
	require.NoError(t, err)
	require.NotEmpty(t, comment.Cid)
	assert.Equal(t, bob.ID, comment.UserID)
	assert.Equal(t, bob.Username, comment.User.Username)

	var mentions []models.CommentMention
	require.NoError(t, db.DB.Where("comment_id = ?", comment.ID).Order("position ASC").Find(&mentions).Error)
	require.Len(t, mentions, 2)
	// 提及顺序跟文本出现顺序一致
	assert.Equal(t, carol.ID, mentions[0].UserID)
	assert.Equal(t, author.ID, mentions[1].UserID)
}

func TestCreateCommentSanitizesContent(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")
	post := createPost(t, author, "Kenya")

	svc := newTestComments()
	comment, err := svc.Create(author, post.Pid, `great <script>alert(1)</script> brew`, "")
	require.NoError(t, err)
	assert.NotContains(t, comment.Content, "<script>")
}

func TestCreateCommentIdempotentToken(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")
	bob := createUser(t, "bob")
	post := createPost(t, author, "Geisha")

	svc := newTestComments()
	token := "client-token-1"

	first, err := svc.Create(bob, post.Pid, "love the bloom phase", token)
	require.NoError(t, err)

	// 客户端超时重试，同一 token 直接返回原评论
	second, err := svc.Create(bob, post.Pid, "love the bloom phase", token)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.ClientToken)
	assert.Equal(t, token, *second.ClientToken)

	var count int64
	db.DB.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCommentTokenUniqueIndexBackstop(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")
	bob := createUser(t, "bob")
	post := createPost(t, author, "Wush Wush")

	// 绕过服务层的快路径检查，直接往表里塞第二条同 (user, token) 的行，
	// 模拟两个并发重试都通过了 First() 检查的情形
	token := "race-token"
	first := models.Comment{Cid: "rc000001", PostID: post.ID, UserID: bob.ID, Content: "one", ClientToken: &token}
	require.NoError(t, db.DB.Create(&first).Error)

	second := models.Comment{Cid: "rc000002", PostID: post.ID, UserID: bob.ID, Content: "two", ClientToken: &token}
	err := db.DB.Create(&second).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	var count int64
	db.DB.Model(&models.Comment{}).Where("user_id = ? AND client_token = ?", bob.ID, token).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCreateCommentRecoversFromConcurrentInsert(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")
	bob := createUser(t, "bob")
	post := createPost(t, author, "Sudan Rume")

	// 输家请求在唯一索引上撞车后应该回查并返回赢家那条
	token := "race-token-2"
	winner := models.Comment{Cid: "rc000003", PostID: post.ID, UserID: bob.ID, Content: "landed first", ClientToken: &token}
	require.NoError(t, db.DB.Create(&winner).Error)

	svc := newTestComments()
	loser := models.Comment{Cid: "rc000004", PostID: post.ID, UserID: bob.ID, Content: "landed second", ClientToken: &token}
	got, err := svc.insertOrExisting(&loser, nil)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, got.ID)
	assert.Equal(t, "landed first", got.Content)

	var count int64
	db.DB.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCreateCommentsWithoutTokenNeverConflict(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")
	post := createPost(t, author, "Castillo")

	svc := newTestComments()
	// 不带令牌的评论存 NULL，唯一索引不约束
	for i := 0; i < 3; i++ {
		_, err := svc.Create(author, post.Pid, "no token here", "")
		require.NoError(t, err)
	}

	var count int64
	db.DB.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&count)
	assert.Equal(t, int64(3), count)
}

func TestCreateCommentTokenScopedPerUser(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")
	bob := createUser(t, "bob")
	carol := createUser(t, "carol")
	post := createPost(t, author, "Pacas")

	svc := newTestComments()
	token := "shared-token"

	c1, err := svc.Create(bob, post.Pid, "first", token)
	require.NoError(t, err)
	c2, err := svc.Create(carol, post.Pid, "second", token)
	require.NoError(t, err)
	assert.NotEqual(t, c1.ID, c2.ID)
}

func TestCreateCommentMissingPost(t *testing.T) {
	setupTestDB(t)
	bob := createUser(t, "bob")

	svc := newTestComments()
	_, err := svc.Create(bob, "nope1234", "hello", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCommentAuthorOnly(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")
	bob := createUser(t, "bob")
	post := createPost(t, author, "SL28")

	svc := newTestComments()
	comment, err := svc.Create(bob, post.Pid, "mentioning @alice here", "")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(author, comment.Cid), ErrForbidden)

	require.NoError(t, svc.Delete(bob, comment.Cid))

	var count int64
	db.DB.Model(&models.Comment{}).Where("id = ?", comment.ID).Count(&count)
	assert.Equal(t, int64(0), count)
	// 提及行一起清掉
	db.DB.Model(&models.CommentMention{}).Where("comment_id = ?", comment.ID).Count(&count)
	assert.Equal(t, int64(0), count)

	assert.ErrorIs(t, svc.Delete(bob, comment.Cid), ErrNotFound)
}

func TestNotifyFanout(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")
	bob := createUser(t, "bob")
	carol := createUser(t, "carol")
	post := createPost(t, author, "Villa Sarchi")

	svc := newTestComments()
	comment := models.Comment{Cid: "c1", PostID: post.ID, UserID: bob.ID, Content: "@carol look"}
	require.NoError(t, db.DB.Create(&comment).Error)

	svc.notify(bob, post, &comment, []models.User{*carol})

	// carol 收到提及通知，alice 收到评论通知
	var forCarol, forAlice, forBob []models.Notification
	db.DB.Where("user_id = ?", carol.ID).Find(&forCarol)
	db.DB.Where("user_id = ?", author.ID).Find(&forAlice)
	db.DB.Where("user_id = ?", bob.ID).Find(&forBob)

	require.Len(t, forCarol, 1)
	assert.Equal(t, models.NotificationTypeMention, forCarol[0].Type)
	assert.Equal(t, "/p/"+post.Pid, forCarol[0].RedirectPath)

	require.Len(t, forAlice, 1)
	assert.Equal(t, models.NotificationTypeCommentPost, forAlice[0].Type)

	// 评论者自己不收通知
	assert.Empty(t, forBob)
}

func TestNotifySkipsDoubleNotifyForMentionedAuthor(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")
	bob := createUser(t, "bob")
	post := createPost(t, author, "Maragogype")

	svc := newTestComments()
	comment := models.Comment{Cid: "c2", PostID: post.ID, UserID: bob.ID, Content: "@alice nice"}
	require.NoError(t, db.DB.Create(&comment).Error)

	// 作者已经被 @ 了，不再追加一条评论通知
	svc.notify(bob, post, &comment, []models.User{*author})

	var forAlice []models.Notification
	db.DB.Where("user_id = ?", author.ID).Find(&forAlice)
	require.Len(t, forAlice, 1)
	assert.Equal(t, models.NotificationTypeMention, forAlice[0].Type)
}
