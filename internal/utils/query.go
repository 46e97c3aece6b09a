package utils

import (
	"strconv"
)

// QueryInt 解析 limit/page/:id 这类数字参数，空串或非法输入按 0 处理，
// 具体的默认值和上限由调用方收敛
func QueryInt(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
