package db

import (
	"os"

	"beans/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		// Fallback for local dev if not set
		dsn = "host=localhost user=postgres password=postgres dbname=beans port=5432 sslmode=disable"
	}

	var err error
	// TranslateError 让唯一索引冲突映射为 gorm.ErrDuplicatedKey，
	// 社交层依赖它兜底并发双击
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}

	logrus.Info("Database connection established")

	if err := Migrate(DB); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}
	logrus.Info("Database migration completed")
}

// Migrate 统一迁移入口，测试里用 sqlite 内存库跑同一份模型
func Migrate(g *gorm.DB) error {
	return g.AutoMigrate(
		&models.User{},
		&models.BeanProfile{},
		&models.Gear{},
		&models.Post{},
		&models.RecipeStep{},
		&models.PostImage{},
		&models.Comment{},
		&models.CommentMention{},
		&models.Like{},
		&models.Follow{},
		&models.DeviceToken{},
		&models.Notification{},
	)
}
