package services

import (
	"testing"

	"beans/internal/db"
	"beans/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 删帖的级联清理走模型钩子，这里用完整的对象图验证一遍
func TestDeletePostCascades(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")
	bob := createUser(t, "bob")
	post := createPost(t, author, "Laurina")
	other := createPost(t, author, "untouched")

	require.NoError(t, db.DB.Create(&models.RecipeStep{PostID: post.ID, Position: 0, Label: "bloom"}).Error)
	require.NoError(t, db.DB.Create(&models.PostImage{PostID: post.ID, StorageKey: "images/x", Position: 0}).Error)
	require.NoError(t, db.DB.Create(&models.RecipeStep{PostID: other.ID, Position: 0, Label: "keep me"}).Error)

	_, err := LikePost(bob.ID, post.ID)
	require.NoError(t, err)

	comments := newTestComments()
	comment, err := comments.Create(bob, post.Pid, "@alice great cup", "")
	require.NoError(t, err)

	require.NoError(t, db.DB.Delete(post).Error)

	counts := map[string]interface{}{
		"steps":    &models.RecipeStep{},
		"images":   &models.PostImage{},
		"likes":    &models.Like{},
		"comments": &models.Comment{},
	}
	for name, model := range counts {
		var n int64
		db.DB.Model(model).Where("post_id = ?", post.ID).Count(&n)
		assert.Equal(t, int64(0), n, "leftover %s", name)
	}

	var mentionCount int64
	db.DB.Model(&models.CommentMention{}).Where("comment_id = ?", comment.ID).Count(&mentionCount)
	assert.Equal(t, int64(0), mentionCount)

	// 别的帖子不受影响
	var otherSteps int64
	db.DB.Model(&models.RecipeStep{}).Where("post_id = ?", other.ID).Count(&otherSteps)
	assert.Equal(t, int64(1), otherSteps)
}
