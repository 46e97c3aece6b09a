package services

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"beans/internal/db"
	"beans/internal/models"

	"github.com/sirupsen/logrus"
)

// PushService 推送服务的瘦客户端。投递语义（重试、去重）完全归推送平台，
// 这里只做 fire-and-forget 的一次调用，失败记日志不回传。
type PushService struct {
	APIURL  string
	APIKey  string
	Enabled bool
}

func NewPushService() *PushService {
	apiURL := os.Getenv("PUSH_API_URL")
	apiKey := os.Getenv("PUSH_API_KEY")

	enabled := apiURL != "" && apiKey != ""
	if !enabled {
		logrus.Warn("PushService disabled: missing PUSH_API_URL / PUSH_API_KEY")
	}

	return &PushService{
		APIURL:  apiURL,
		APIKey:  apiKey,
		Enabled: enabled,
	}
}

type pushPayload struct {
	Token        string `json:"token"`
	Platform     string `json:"platform"`
	Title        string `json:"title"`
	Body         string `json:"body"`
	RedirectPath string `json:"redirect_path"`
}

// SendToUser 给用户的所有注册设备各发一条推送（异步）
func (s *PushService) SendToUser(userID uint, title, body, redirectPath string) {
	if !s.Enabled {
		return
	}

	go func() {
		var tokens []models.DeviceToken
		if err := db.DB.Where("user_id = ?", userID).Find(&tokens).Error; err != nil {
			logrus.Errorf("push: failed to load device tokens for user %d: %v", userID, err)
			return
		}

		client := &http.Client{Timeout: 10 * time.Second}
		for _, t := range tokens {
			payload := pushPayload{
				Token:        t.Token,
				Platform:     t.Platform,
				Title:        title,
				Body:         body,
				RedirectPath: redirectPath,
			}
			raw, _ := json.Marshal(payload)

			req, err := http.NewRequest("POST", s.APIURL, bytes.NewReader(raw))
			if err != nil {
				logrus.Errorf("push: build request: %v", err)
				continue
			}
			req.Header.Set("Authorization", "Bearer "+s.APIKey)
			req.Header.Set("Content-Type", "application/json")

			resp, err := client.Do(req)
			if err != nil {
				logrus.Errorf("push: send to user %d failed: %v", userID, err)
				continue
			}
			resp.Body.Close()
			if resp.StatusCode >= 300 {
				logrus.Errorf("push: provider returned %d for user %d", resp.StatusCode, userID)
			}
		}
	}()
}
