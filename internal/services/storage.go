package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ObjectStore 对象存储服务。本层只签发一次性上传 URL、保存/解析引用，
// 字节永远不经过这台服务器：客户端拿预签名 PUT URL 直传，
// 读取时把存储 key 解析成限时的 GET URL。
type ObjectStore struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	keyPrefix string
	Enabled   bool
}

var (
	objectStore *ObjectStore
	storeOnce   sync.Once
)

const (
	uploadURLExpiry = 15 * time.Minute
	viewURLExpiry   = 24 * time.Hour
)

// GetObjectStore 获取单例存储服务。缺少环境变量时降级为 disabled，
// 上传被拒绝但服务可以继续跑（本地开发场景）。
func GetObjectStore() *ObjectStore {
	storeOnce.Do(func() {
		bucket := os.Getenv("S3_BUCKET")
		region := os.Getenv("S3_REGION")
		accessID := os.Getenv("S3_ACCESS_ID")
		accessKey := os.Getenv("S3_ACCESS_KEY")

		enabled := bucket != "" && region != "" && accessID != "" && accessKey != ""
		if !enabled {
			logrus.Warn("ObjectStore disabled: missing S3 environment variables")
			objectStore = &ObjectStore{Enabled: false}
			return
		}

		cfg, err := awsconfig.LoadDefaultConfig(
			context.TODO(),
			awsconfig.WithRegion(region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessID, accessKey, "")),
		)
		if err != nil {
			logrus.Errorf("ObjectStore disabled: %v", err)
			objectStore = &ObjectStore{Enabled: false}
			return
		}

		client := s3.NewFromConfig(cfg)
		objectStore = &ObjectStore{
			client:    client,
			presign:   s3.NewPresignClient(client),
			bucket:    bucket,
			keyPrefix: os.Getenv("S3_KEY_PREFIX"),
			Enabled:   true,
		}
	})
	return objectStore
}

// IssueUploadURL 生成存储 key 和一次性上传 URL。
// key 格式固定为 images/<uuid>，帖子创建时校验引用确实是我们签发的
func (s *ObjectStore) IssueUploadURL(contentType string) (key, url string, err error) {
	if !s.Enabled {
		return "", "", fmt.Errorf("object storage not configured")
	}

	key = "images/" + uuid.New().String()
	resp, err := s.presign.PresignPutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.keyPrefix + key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(uploadURLExpiry))
	if err != nil {
		return "", "", fmt.Errorf("presign upload: %w", err)
	}
	return key, resp.URL, nil
}

// ResolveURL 把存储引用解析为限时可访问的 GET URL
func (s *ObjectStore) ResolveURL(key string) (string, error) {
	if !s.Enabled {
		return "", fmt.Errorf("object storage not configured")
	}

	resp, err := s.presign.PresignGetObject(context.TODO(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.keyPrefix + key),
	}, s3.WithPresignExpires(viewURLExpiry))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return resp.URL, nil
}

// Delete 删除对象，帖子删除后的清理是 best-effort
func (s *ObjectStore) Delete(key string) error {
	if !s.Enabled {
		return nil
	}
	_, err := s.client.DeleteObject(context.TODO(), &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.keyPrefix + key),
	})
	if err != nil {
		logrus.Errorf("failed to delete object %s: %v", key, err)
	}
	return err
}

// IsIssuedKey 校验客户端回传的引用确实符合我们签发的格式
func IsIssuedKey(key string) bool {
	if !strings.HasPrefix(key, "images/") {
		return false
	}
	_, err := uuid.Parse(strings.TrimPrefix(key, "images/"))
	return err == nil
}
