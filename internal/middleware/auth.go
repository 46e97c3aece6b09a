package middleware

import (
	"net/http"
	"strings"

	"beans/internal/db"
	"beans/internal/models"
	"beans/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const CheckUserKey = "user"
const UnreadCountKey = "unread_count"

// LoadUser 从 Bearer token 里取外部认证平台的 subject 并换成内部用户。
// 签名校验归认证平台/网关，这一层按约定原样信任 subject，所以用
// ParseUnverified 只做解码。subject 第一次出现时创建用户（首次登录）。
func LoadUser() gin.HandlerFunc {
	parser := jwt.NewParser()

	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.Next()
			return
		}

		claims := jwt.MapClaims{}
		if _, _, err := parser.ParseUnverified(strings.TrimPrefix(auth, "Bearer "), claims); err != nil {
			c.Next()
			return
		}

		subject, _ := claims.GetSubject()
		if subject == "" {
			c.Next()
			return
		}

		user, err := resolveUser(subject, claims)
		if err != nil {
			logrus.Errorf("failed to resolve user for subject %s: %v", subject, err)
			c.Next()
			return
		}
		c.Set(CheckUserKey, user)

		// 未读通知数，客户端角标用
		var count int64
		db.DB.Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", user.ID, false).Count(&count)
		c.Set(UnreadCountKey, count)

		c.Next()
	}
}

func resolveUser(subject string, claims jwt.MapClaims) (*models.User, error) {
	var user models.User
	if err := db.DB.Where("auth_subject = ?", subject).First(&user).Error; err == nil {
		return &user, nil
	}

	// 首次登录，建用户。用户名优先取 token 里的 name claim
	username := "brewer_" + utils.RandID(6)
	if name, ok := claims["name"].(string); ok && name != "" {
		username = name
	}

	user = models.User{
		Uid:         utils.RandID(8),
		AuthSubject: subject,
		Username:    utils.SanitizeText(username),
	}
	if err := db.DB.Create(&user).Error; err != nil {
		// 并发首登时另一个请求可能抢先创建，回查一次
		var existing models.User
		if err2 := db.DB.Where("auth_subject = ?", subject).First(&existing).Error; err2 == nil {
			return &existing, nil
		}
		return nil, err
	}
	return &user, nil
}

// AuthRequired ensures a user is resolved
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(CheckUserKey); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}
