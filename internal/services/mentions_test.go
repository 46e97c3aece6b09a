package services

import (
	"testing"

	"beans/internal/db"
	"beans/internal/models"
	"beans/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMentionsBasic(t *testing.T) {
	setupTestDB(t)
	alice := createUser(t, "alice")
	bob := createUser(t, "bob")

	users, err := ResolveMentions("@alice try this recipe, @bob you too")
	require.NoError(t, err)
	require.Len(t, users, 2)
	// 按首次出现顺序
	assert.Equal(t, alice.ID, users[0].ID)
	assert.Equal(t, bob.ID, users[1].ID)
}

func TestResolveMentionsUnknownDropped(t *testing.T) {
	setupTestDB(t)
	alice := createUser(t, "alice")

	users, err := ResolveMentions("@alice and @nobody_here")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, alice.ID, users[0].ID)
}

func TestResolveMentionsNoMentions(t *testing.T) {
	setupTestDB(t)
	createUser(t, "alice")

	users, err := ResolveMentions("just a plain comment, no at signs")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestResolveMentionsDedup(t *testing.T) {
	setupTestDB(t)
	alice := createUser(t, "alice")

	users, err := ResolveMentions("@alice @alice @alice")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, alice.ID, users[0].ID)
}

func TestResolveMentionsCaseSensitive(t *testing.T) {
	setupTestDB(t)
	createUser(t, "alice")

	users, err := ResolveMentions("hi @Alice")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestResolveMentionsDuplicateUsernameLowestID(t *testing.T) {
	setupTestDB(t)
	// 用户名不保证唯一，重名取最早注册的
	first := createUser(t, "sam")
	second := models.User{Uid: utils.RandID(8), AuthSubject: "auth0|dup", Username: "sam"}
	require.NoError(t, db.DB.Create(&second).Error)
	require.Greater(t, second.ID, first.ID)

	users, err := ResolveMentions("@sam")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, first.ID, users[0].ID)
}
