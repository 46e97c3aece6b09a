package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"beans/internal/db"
	"beans/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupAuthTest(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(gdb))
	db.DB = gdb

	r := gin.New()
	r.Use(LoadUser())
	r.GET("/whoami", AuthRequired(), func(c *gin.Context) {
		user := c.MustGet(CheckUserKey).(*models.User)
		c.JSON(http.StatusOK, gin.H{"uid": user.Uid, "username": user.Username})
	})
	return r
}

func bearerToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	// 签名校验在网关做，这一层只解码，用什么 key 签都行
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test"))
	require.NoError(t, err)
	return "Bearer " + token
}

func TestLoadUserCreatesOnFirstRequest(t *testing.T) {
	r := setupAuthTest(t)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", bearerToken(t, jwt.MapClaims{"sub": "auth0|abc123", "name": "Alice"}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var user models.User
	require.NoError(t, db.DB.Where("auth_subject = ?", "auth0|abc123").First(&user).Error)
	assert.Equal(t, "Alice", user.Username)
	assert.Len(t, user.Uid, 8)
}

func TestLoadUserReusesExistingUser(t *testing.T) {
	r := setupAuthTest(t)

	auth := bearerToken(t, jwt.MapClaims{"sub": "auth0|repeat"})
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/whoami", nil)
		req.Header.Set("Authorization", auth)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	var count int64
	db.DB.Model(&models.User{}).Where("auth_subject = ?", "auth0|repeat").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestAuthRequiredWithoutToken(t *testing.T) {
	r := setupAuthTest(t)

	req := httptest.NewRequest("GET", "/whoami", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredWithGarbageToken(t *testing.T) {
	r := setupAuthTest(t)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTokenWithoutSubjectIgnored(t *testing.T) {
	r := setupAuthTest(t)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", bearerToken(t, jwt.MapClaims{"name": "NoSubject"}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
