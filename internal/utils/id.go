package utils

import (
	"math/rand"
)

const idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandID 生成短随机公开 id（pid/cid/uid 用）。不承诺全局唯一，
// 8 位时空间有 62^8，撞上唯一索引的概率可以忽略，真撞了就让请求失败
func RandID(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = idCharset[rand.Intn(len(idCharset))]
	}
	return string(b)
}
