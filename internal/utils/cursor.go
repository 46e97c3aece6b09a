package utils

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FeedCursor 信息流的 keyset 分页游标：(created_at, id) 双键降序。
// 相比 offset 分页，插入新帖不会让后续页重复或漏掉已出现过的帖子，
// 同一个游标重复请求返回同一页。
type FeedCursor struct {
	CreatedAt time.Time
	ID        uint
}

// Encode 编码为不透明的 base64 串，客户端原样带回
func (c FeedCursor) Encode() string {
	raw := fmt.Sprintf("%d.%d", c.CreatedAt.UnixNano(), c.ID)
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// DecodeFeedCursor 解码游标，格式非法返回错误
func DecodeFeedCursor(encoded string) (FeedCursor, error) {
	decoded, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return FeedCursor{}, fmt.Errorf("invalid cursor: %v", err)
	}

	parts := strings.SplitN(string(decoded), ".", 2)
	if len(parts) != 2 {
		return FeedCursor{}, fmt.Errorf("invalid cursor: %s", encoded)
	}

	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return FeedCursor{}, fmt.Errorf("invalid timestamp in cursor: %v", err)
	}
	id, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return FeedCursor{}, fmt.Errorf("invalid id in cursor: %v", err)
	}

	return FeedCursor{CreatedAt: time.Unix(0, nanos), ID: uint(id)}, nil
}
