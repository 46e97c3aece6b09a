package services

import (
	"errors"
)

// 错误分类：handler 层统一映射为 HTTP 状态码和 toast 文案。
// AlreadyLiked / LikeNotFound 单独建类，客户端据此区分
// "无害的双击竞态" 和真正的 bug。
var (
	ErrNotFound      = errors.New("record not found")
	ErrForbidden     = errors.New("not the owner")
	ErrAlreadyLiked  = errors.New("already liked")
	ErrLikeNotFound  = errors.New("like not found")
	ErrSelfFollow    = errors.New("cannot follow yourself")
	ErrAuthorMissing = errors.New("post author missing") // 孤儿帖子视为 bug，硬失败
)
