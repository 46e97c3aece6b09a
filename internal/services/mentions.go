package services

import (
	"errors"
	"regexp"

	"beans/internal/db"
	"beans/internal/models"

	"gorm.io/gorm"
)

// @后跟一个或多个 word 字符
var mentionPattern = regexp.MustCompile(`@(\w+)`)

// ResolveMentions 从评论文本中提取 @用户名 并解析为用户。
// 规则：token 去重后按首次出现顺序解析；用户名精确匹配（区分大小写）；
// 重名时取 id 最小的一个（已知限制：用户名不保证唯一）；
// 没有匹配用户的 token 静默丢弃——@一个不存在的人没有通知对象。
func ResolveMentions(content string) ([]models.User, error) {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool)
	resolved := make(map[uint]bool)
	var users []models.User

	for _, m := range matches {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true

		var user models.User
		err := db.DB.Where("username = ?", name).Order("id ASC").First(&user).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}

		// 不同 token 可能解析到同一用户，用户维度也去重
		if resolved[user.ID] {
			continue
		}
		resolved[user.ID] = true
		users = append(users, user)
	}

	return users, nil
}
