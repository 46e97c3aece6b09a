package services

import (
	"testing"
	"time"

	"beans/internal/db"
	"beans/internal/models"
	"beans/internal/utils"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB 用 sqlite 内存库替换全局连接，和生产一样开 TranslateError
func setupTestDB(t *testing.T) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// 内存库每个连接各是一份数据，锁死在单连接上
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(gdb))
	db.DB = gdb
}

func createUser(t *testing.T, username string) *models.User {
	t.Helper()
	user := models.User{
		Uid:         utils.RandID(8),
		AuthSubject: "auth0|" + utils.RandID(12),
		Username:    username,
	}
	require.NoError(t, db.DB.Create(&user).Error)
	return &user
}

func createPost(t *testing.T, author *models.User, beanName string) *models.Post {
	t.Helper()
	post := models.Post{
		Pid:      utils.RandID(8),
		UserID:   author.ID,
		BeanName: beanName,
	}
	require.NoError(t, db.DB.Create(&post).Error)
	return &post
}

func createPostAt(t *testing.T, author *models.User, beanName string, at time.Time) *models.Post {
	t.Helper()
	post := createPost(t, author, beanName)
	require.NoError(t, db.DB.Model(post).UpdateColumn("created_at", at).Error)
	post.CreatedAt = at
	return post
}
