// Package utils 工具函数
package utils

import (
	"fmt"
	"strings"
	"time"
)

// FormatTimeCST 格式化时间为北京时间字符串
func FormatTimeCST(t time.Time, layout string) string {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		return t.Format(layout)
	}
	return t.In(loc).Format(layout)
}

// ParseTimeParam 解析查询参数中的时间，支持 RFC3339 和 2006-01-02，空字符串返回零值
func ParseTimeParam(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("无法解析时间: %s", value)
}

// Truncate 截断字符串（按字符）
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
